package main

import (
	"context"
	"log"

	"github.com/transdovic/backoffice/internal/flagx"
	"github.com/transdovic/backoffice/internal/server"
	"github.com/transdovic/backoffice/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(flagx.ConfigPathFlag())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
