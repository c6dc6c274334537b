// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

// Session commands accepted on TOPIC_SESSION.
const (
	SessionPause  = "pause"
	SessionResume = "resume"
)

// steeringService connects MQTT samples to a steering.Controller and
// publishes the resulting offsets, one per frame.
type steeringService struct {
	topicAccel    string
	topicMag      string
	topicSteering string
	topicSession  string

	ctrl  *steering.Controller
	pub   publisher
	meter *steering.FrameMeter

	last      steering.Offset
	published bool
}

func newSteeringService(cfg *config.Config, pub publisher) (*steeringService, error) {
	ctrl, err := steering.New(cfg.SteeringSettings())
	if err != nil {
		return nil, err
	}
	return &steeringService{
		topicAccel:    cfg.TopicAccel,
		topicMag:      cfg.TopicMag,
		topicSteering: cfg.TopicSteering,
		topicSession:  cfg.TopicSession,
		ctrl:          ctrl,
		pub:           pub,
		meter:         steering.NewFrameMeter(time.Duration(cfg.FPSLogInterval) * time.Millisecond),
	}, nil
}

// handleMessage dispatches one MQTT message by topic. Bad payloads are
// logged and dropped.
func (s *steeringService) handleMessage(topic string, payload []byte) {
	switch topic {
	case s.topicAccel:
		s.handleSample(motion.Accelerometer, payload)
	case s.topicMag:
		s.handleSample(motion.MagneticField, payload)
	case s.topicSession:
		cmd, err := parseSessionCommand(payload)
		if err != nil {
			log.Printf("steering: %v", err)
			return
		}
		switch cmd {
		case SessionPause:
			s.ctrl.Pause()
		case SessionResume:
			s.ctrl.Resume()
		}
		log.Printf("steering: session %s", cmd)
	default:
		log.Printf("steering: message on unexpected topic %s", topic)
	}
}

func (s *steeringService) handleSample(ch motion.Channel, payload []byte) {
	var sample motion.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		log.Printf("steering: %s unmarshal error: %v", ch, err)
		return
	}
	// The topic decides the channel.
	sample.Channel = ch
	s.ctrl.HandleSample(sample)
}

// frame advances the controller and publishes the offset if it moved.
func (s *steeringService) frame(now time.Time) error {
	off := s.ctrl.Tick(now)

	if fps, ok := s.meter.Frame(now); ok {
		st := s.ctrl.Status()
		log.Printf("steering: %.1f fps | offset x=%.3f y=%.3f | intent x=%+.0f y=%+.0f | samples=%d paused=%t",
			fps, off.X, off.Y, st.IntentX, st.IntentY, st.Samples, st.Paused)
	}

	if s.published && off.X == s.last.X && off.Y == s.last.Y {
		return nil
	}

	payload, err := json.Marshal(off)
	if err != nil {
		return fmt.Errorf("json marshal error (steering): %w", err)
	}
	if err := s.pub.Publish(s.topicSteering, true, payload); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", s.topicSteering, err)
	}
	s.last = off
	s.published = true
	return nil
}

// parseSessionCommand accepts either a bare word or {"action": "..."}.
func parseSessionCommand(payload []byte) (string, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var msg struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return "", fmt.Errorf("session command unmarshal error: %w", err)
		}
		text = msg.Action
	}
	switch cmd := strings.ToLower(strings.TrimSpace(text)); cmd {
	case SessionPause, SessionResume:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown session command %q", text)
	}
}

// RunSteering runs the steering service until ctx is cancelled. When
// configPath is set, edits to that file retune the running controller.
func RunSteering(ctx context.Context, configPath string) error {
	cfg := config.Get()
	log.Printf("steering: starting (mode=%s alpha=%.2f speed=%.3f threshold=%.3f)",
		cfg.SteeringMode, cfg.FilterAlpha, cfg.SmootherSpeed, cfg.SmootherThreshold)

	client, err := connectMQTT("steering", cfg.MQTTBroker, cfg.MQTTClientIDSteering)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	svc, err := newSteeringService(cfg, mqttPublisher{client: client})
	if err != nil {
		return err
	}

	for _, topic := range []string{cfg.TopicAccel, cfg.TopicMag, cfg.TopicSession} {
		if topic == "" {
			continue
		}
		if err := subscribe("steering", client, topic, svc.handleMessage); err != nil {
			return err
		}
	}

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(c *config.Config) {
				if err := svc.ctrl.Apply(c.SteeringSettings()); err != nil {
					log.Printf("steering: reloaded settings rejected: %v", err)
					return
				}
				log.Printf("steering: settings reloaded (mode=%s alpha=%.2f speed=%.3f threshold=%.3f)",
					c.SteeringMode, c.FilterAlpha, c.SmootherSpeed, c.SmootherThreshold)
			})
			if err != nil {
				log.Printf("steering: config watch stopped: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(time.Duration(cfg.FrameInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st := svc.ctrl.Status()
			log.Printf("steering: stopping after %d samples, %d frames", st.Samples, st.Frames)
			return nil
		case t := <-ticker.C:
			if err := svc.frame(t); err != nil {
				log.Printf("steering: %v", err)
			}
		}
	}
}
