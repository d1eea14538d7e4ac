package main

import (
	"context"

	// Auto-load .env if present; real environment variables take precedence.
	_ "github.com/joho/godotenv/autoload"

	"canister/internal/app"
)

func main() {
	c, log, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}

	// Run blocks until SIGINT/SIGTERM, then shuts everything down in
	// reverse start order within the configured timeout.
	if err := c.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	log.Info().Msg("shutdown complete")
}
