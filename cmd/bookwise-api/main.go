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

	"github.com/bookwise/bookwise/internal/api"
	"github.com/bookwise/bookwise/internal/audit"
	"github.com/bookwise/bookwise/internal/auth"
	"github.com/bookwise/bookwise/internal/chat"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/genai"
	librarypostgres "github.com/bookwise/bookwise/internal/library/postgres"
	"github.com/bookwise/bookwise/internal/observability"
	s3store "github.com/bookwise/bookwise/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("bookwise-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	libraryDB, err := librarypostgres.Open(context.Background(), librarypostgres.DBConfig{
		DSN:             cfg.Library.DSN,
		MaxOpenConns:    cfg.Library.MaxOpenConns,
		MaxIdleConns:    cfg.Library.MaxIdleConns,
		ConnMaxIdleTime: cfg.Library.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Library.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open library db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = libraryDB.Close() }()

	store := librarypostgres.NewRepository(libraryDB)

	deps := api.Dependencies{
		Logger:            logger,
		Store:             store,
		DependencyTimeout: time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Chat.Enabled {
		generator, err := genai.NewGeminiClient(genai.GeminiConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize generation client", slog.Any("error", err))
			os.Exit(1)
		}

		var auditor chat.Auditor
		if cfg.Audit.Enabled {
			auditor = audit.NewRecorder(libraryDB, logger)
		}

		deps.MemberChat = chat.NewPipeline(store, generator,
			chat.Policy{AllowMutations: false, MaxResults: cfg.Chat.MaxQueryResults}, auditor, logger)
		deps.AdminChat = chat.NewPipeline(store, generator,
			chat.Policy{AllowMutations: true, MaxResults: cfg.Chat.MaxQueryResults}, auditor, logger)
	}

	var archiveStore *s3store.Store
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiveStore = objectStore
		archiver := audit.NewArchiver(libraryDB, objectStore, cfg.Archive.BatchSize, logger)
		deps.Archiver = archiver
		if cfg.Archive.Interval > 0 {
			go archiver.Run(ctx, cfg.Archive.Interval)
		}
	}

	readiness := []api.ReadinessCheck{
		api.CheckStoreHealth(store),
		api.CheckArchiveConfig(cfg),
	}
	if archiveStore != nil {
		readiness = append(readiness, api.CheckArchiveStore(archiveStore))
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
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
