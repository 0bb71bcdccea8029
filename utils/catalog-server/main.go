// Package main - catalog editor HTTP server
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alwitt/catalog"
	"github.com/alwitt/catalog/server"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.IsProduction() {
		log.SetHandler(json.New(os.Stderr))
	}
	log.SetLevel(cfg.AppLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repositories, err := catalog.NewCatalogRepositories(
		ctx, cfg.Dialector(), cfg.GORMLogLevel(), true,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare catalog persistence")
	}

	srv, err := server.NewServer(ctx, cfg, repositories)
	if err != nil {
		log.WithError(err).Fatal("Failed to define HTTP server")
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		log.WithError(err).Fatal("HTTP server failed")
	}
	log.Info("Stopped")
}
