package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

// formatSteering renders one steering offset as a console line.
func formatSteering(off steering.Offset) string {
	return fmt.Sprintf("[STEER] X=%+6.3f  Y=%+6.3f", off.X, off.Y)
}

// formatSample renders one raw sample as a console line.
func formatSample(s motion.Sample) string {
	tag := "[ACC]  "
	if s.Channel == motion.MagneticField {
		tag = "[MAG]  "
	}
	return fmt.Sprintf("%s x=%8.3f y=%8.3f z=%8.3f  |v|=%7.3f  src=%s",
		tag, s.X, s.Y, s.Z, s.Norm(), s.Source)
}

// RunConsoleMQTT prints steering offsets and, if showSamples is set, the raw
// samples feeding them until interrupted.
func RunConsoleMQTT(showSamples bool) error {
	cfg := config.Get()

	client, err := connectMQTT("console", cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	err = subscribe("console", client, cfg.TopicSteering, func(_ string, payload []byte) {
		var off steering.Offset
		if err := json.Unmarshal(payload, &off); err != nil {
			log.Printf("console: steering unmarshal error: %v", err)
			return
		}
		fmt.Println(formatSteering(off))
	})
	if err != nil {
		return err
	}

	if showSamples {
		for _, topic := range []string{cfg.TopicAccel, cfg.TopicMag} {
			ch := motion.Accelerometer
			if topic == cfg.TopicMag {
				ch = motion.MagneticField
			}
			err := subscribe("console", client, topic, func(_ string, payload []byte) {
				var s motion.Sample
				if err := json.Unmarshal(payload, &s); err != nil {
					log.Printf("console: %s unmarshal error: %v", ch, err)
					return
				}
				s.Channel = ch
				fmt.Println(formatSample(s))
			})
			if err != nil {
				return err
			}
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
