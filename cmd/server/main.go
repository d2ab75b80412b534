// Package main is the entry point for the PetMatch API server.
//
// main only composes: configuration, logger, store, server. Everything else
// lives in internal/.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/petmatch/petmatch/internal/config"
	"github.com/petmatch/petmatch/internal/database"
	"github.com/petmatch/petmatch/internal/server"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("petmatch",
		slog.String("version", buildVersion),
		slog.String("date", buildDate),
		slog.String("commit", buildCommit),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		logger.Error("failed to open database",
			slog.String("driver", cfg.Database.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		store.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// blocks until SIGINT/SIGTERM
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
