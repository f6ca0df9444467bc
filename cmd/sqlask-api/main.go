package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sqlask/sqlask/internal/api"
	"github.com/sqlask/sqlask/internal/api/uistatic"
	"github.com/sqlask/sqlask/internal/archive"
	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/llm"
	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/query/engine"
	"github.com/sqlask/sqlask/internal/schema"
	s3store "github.com/sqlask/sqlask/internal/storage/s3"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/seed"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("sqlask-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	fileStore, err := store.New(store.Config{Driver: cfg.Store.Driver, Path: cfg.Store.Path})
	if err != nil {
		logger.Error("failed to configure store", slog.Any("error", err))
		os.Exit(1)
	}
	seedStore, err := store.New(store.Config{Driver: cfg.Store.Driver, Path: cfg.Store.Path, Create: true})
	if err != nil {
		logger.Error("failed to configure store", slog.Any("error", err))
		os.Exit(1)
	}

	backend, err := llm.New(context.Background(), llm.Config{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize model backend", slog.Any("error", err))
		os.Exit(1)
	}

	reader := schema.NewReader(fileStore)
	executor := engine.NewEngine(fileStore, cfg.Store.QueryTimeout).WithLogger(logger)
	pipeline := nl2sql.NewPipeline(
		reader,
		nl2sql.NewSelector(backend, logger),
		nl2sql.NewGenerator(backend, logger),
		executor,
		logger,
	)
	runner := seed.NewRunner()

	deps := api.Dependencies{
		Logger:   logger,
		Pipeline: pipeline,
		Schema:   reader,
		Executor: executor,
		Bootstrap: func(ctx context.Context) (seed.Summary, error) {
			return runner.Bootstrap(ctx, seedStore)
		},
		UI: uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckStore(fileStore),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: cfg.Store.ReadyTimeout,
	}
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver, err := archive.New(objectStore, logger)
		if err != nil {
			logger.Error("failed to initialize result archive", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Archive = archiver
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store", cfg.Store.Path),
			slog.String("provider", cfg.AI.Provider),
			slog.String("model", cfg.AI.Model),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
