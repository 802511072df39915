package main

import (
	"log"

	"gridiron-datastore/app"
	"gridiron-datastore/config"
)

func main() {
	cfg := config.LoadFromEnv()

	application := app.New(cfg)
	if err := application.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}

	application.Run()
}
