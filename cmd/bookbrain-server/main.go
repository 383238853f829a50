// Package main provides the BookBrain API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/raphaelgruber/bookbrain-go/internal/classify"
	"github.com/raphaelgruber/bookbrain-go/internal/config"
	"github.com/raphaelgruber/bookbrain-go/internal/ingest"
	"github.com/raphaelgruber/bookbrain-go/internal/llm"
	"github.com/raphaelgruber/bookbrain-go/internal/metrics"
	"github.com/raphaelgruber/bookbrain-go/internal/server"
	"github.com/raphaelgruber/bookbrain-go/internal/store"
	"github.com/raphaelgruber/bookbrain-go/internal/vectorindex"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() { _ = closeLog() }()

	logger.Info("starting bookbrain-server", "host", cfg.Host, "port", cfg.Port)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := store.NewClient(ctx, store.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = dbClient.InitSchema(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	index, err := vectorindex.New(embedder, cfg.EmbedDimension, cfg.BatchSize, cfg.IndexDir)
	if err != nil {
		logger.Error("failed to load vector index", "error", err,
			"hint", "run 'bookbrain rebuild' to recover from diverged index files")
		os.Exit(1)
	}

	taxonomy := classify.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		taxonomy, err = classify.LoadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			logger.Error("failed to load taxonomy", "file", cfg.TaxonomyFile, "error", err)
			os.Exit(1)
		}
	}
	classifier := classify.New(taxonomy, embedder)

	collector := metrics.NewCollector()
	pipeline := ingest.New(cfg, classifier, dbClient, index, collector, logger)
	handler := server.NewHandler(cfg, dbClient, index, pipeline, collector)
	srv := server.New(cfg, handler, logger)

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if err := index.Persist(); err != nil {
		logger.Error("persisting index failed", "error", err)
	}
}
