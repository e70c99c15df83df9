package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/fleetops/contractd/internal/ctl"
)

func main() {

	_ = godotenv.Load()

	if err := ctl.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
