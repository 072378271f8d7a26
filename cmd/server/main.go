// Command server runs the expense tracking HTTP API.
//
// Configuration comes from a YAML file (CONFIG_PATH, default ./config.yaml)
// overridden by environment variables; a local .env file is loaded first
// when present.
//
// Exit codes: 0 = clean shutdown, 1 = startup or runtime error.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/mic-e/abrechnung/internal/app"
)

func main() {
	// Developer convenience; production sets real environment variables.
	_ = godotenv.Load()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
