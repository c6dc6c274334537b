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
	source := flag.String("source", "", "sample source: mock, imu or serial (default SAMPLE_SOURCE)")
	flag.Parse()

	log.Println("starting parallax-steering sample producer (sensor → MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSampleProducer(ctx, *source); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
