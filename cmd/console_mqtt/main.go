package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/parallax_steering/internal/app"
	"github.com/relabs-tech/parallax_steering/internal/config"
)

func main() {
	configPath := flag.String("config", "parallax_config.txt", "path to configuration file")
	samples := flag.Bool("samples", false, "also print raw accelerometer and magnetometer samples")
	flag.Parse()

	log.Println("starting parallax-steering console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(*samples); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
