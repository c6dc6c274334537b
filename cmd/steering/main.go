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
)

func main() {
	configPath := flag.String("config", "parallax_config.txt", "path to configuration file")
	watch := flag.Bool("watch", true, "reload steering settings when the config file changes")
	flag.Parse()

	log.Println("starting parallax-steering service (MQTT samples → steering offsets)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchPath := ""
	if *watch {
		watchPath = *configPath
	}
	if err := app.RunSteering(ctx, watchPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
