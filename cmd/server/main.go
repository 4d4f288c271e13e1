package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server"
	"github.com/dmitrijs2005/pinmail/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "starting server", "err", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
