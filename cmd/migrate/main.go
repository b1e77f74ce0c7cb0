package main

import (
	"flag"
	"log"

	"authgate/internal/infrastructure/postgres"
	"authgate/internal/shared/config"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := postgres.Migrate(cfg.Database.URL(), *direction); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Printf("Migrations applied (%s)", *direction)
}
