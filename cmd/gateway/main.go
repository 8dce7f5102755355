// Command gateway runs the realtime event gateway: the websocket fan-out hub
// plus the REST surface that feeds it.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cambio-network/exchange_layer/internal/app"
	"github.com/cambio-network/exchange_layer/internal/config"
)

func main() {
	// A missing .env file is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init gateway: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}
