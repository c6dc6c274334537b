// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/parallax_steering/internal/app"
	"github.com/relabs-tech/parallax_steering/internal/config"
)

func main() {
	configPath := flag.String("config", "parallax_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting parallax-steering (local console, mock source)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunLocalConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
