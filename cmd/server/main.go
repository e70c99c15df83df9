package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/fleetops/contractd/internal/server"
	"github.com/fleetops/contractd/internal/server/config"
)

func main() {

	// optional; env vars stay authoritative
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
