// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/parallax_steering/internal/app"
	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./parallax_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting parallax-steering IMU producer (MPU-9250 accel + AK8963 mag → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSampleProducer(ctx, sensors.KindIMU); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
