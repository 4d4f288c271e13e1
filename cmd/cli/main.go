package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pinmail/internal/client/cli"
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

	// the REPL owns stdout, so diagnostics go to stderr
	logger, err := logging.New(cfg.LogFormat, "warn", os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer srv.Close()
	go srv.Listen(ctx)

	app := cli.NewApp(srv.Controller(), srv.Sessions(), srv.Keys(), []byte(cfg.SecretKey), cfg.SessionTTL, os.Stdin, os.Stdout)
	app.Root(ctx)
	cancel()
}
