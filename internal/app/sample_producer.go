// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/sensors"
)

// producerLogEvery controls how often the publish loop logs a summary line.
const producerLogEvery = 250

const streamRetryDelay = 500 * time.Millisecond

// RunSampleProducer opens the sample source named by kind (empty means
// SAMPLE_SOURCE) and publishes every reading on TOPIC_ACCEL or TOPIC_MAG
// until ctx is cancelled.
func RunSampleProducer(ctx context.Context, kind string) error {
	cfg := config.Get()
	if kind == "" {
		kind = cfg.SampleSource
	}
	log.Printf("producer: starting sample producer (source=%s)", kind)

	src, err := sensors.OpenSource(cfg, kind)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		// Closing the port unblocks a pending serial read on shutdown.
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer func() {
			if stop() {
				c.Close()
			}
		}()
	}

	client, err := connectMQTT("producer", cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pub := mqttPublisher{client: client}

	// The serial board paces itself; polled sources run on the sample ticker.
	if kind == sensors.KindSerial {
		return streamSamples(ctx, src, pub, cfg)
	}
	return pollSamples(ctx, src, pub, cfg, time.Duration(cfg.SampleInterval)*time.Millisecond)
}

func pollSamples(ctx context.Context, src motion.Source, pub publisher, cfg *config.Config, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var published uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopping after %d samples", published)
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			log.Printf("producer: sample read error: %v", err)
			continue
		}
		if err := publishSample(pub, cfg, s); err != nil {
			log.Printf("producer: %v", err)
			continue
		}
		published++
		if published%producerLogEvery == 0 {
			log.Printf("producer: %d samples published, last %s x=%.3f y=%.3f z=%.3f",
				published, s.Channel, s.X, s.Y, s.Z)
		}
	}
}

func streamSamples(ctx context.Context, src motion.Source, pub publisher, cfg *config.Config) error {
	var published uint64
	for ctx.Err() == nil {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("producer: sample stream closed after %d samples", published)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("producer: sample read error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(streamRetryDelay):
			}
			continue
		}
		if err := publishSample(pub, cfg, s); err != nil {
			log.Printf("producer: %v", err)
			continue
		}
		published++
	}
	log.Printf("producer: stopping after %d samples", published)
	return nil
}

// publishSample routes s to the topic of its channel.
func publishSample(pub publisher, cfg *config.Config, s motion.Sample) error {
	var topic string
	switch s.Channel {
	case motion.Accelerometer:
		topic = cfg.TopicAccel
	case motion.MagneticField:
		topic = cfg.TopicMag
	default:
		return fmt.Errorf("sample with unknown channel %q", s.Channel)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json marshal error (%s): %w", s.Channel, err)
	}
	if err := pub.Publish(topic, false, payload); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, err)
	}
	return nil
}
