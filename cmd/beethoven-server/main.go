// Package main provides the HTTP server that ingests and processes recordings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/raphaelgruber/beethoven-go/internal/analysis"
	"github.com/raphaelgruber/beethoven-go/internal/audio"
	"github.com/raphaelgruber/beethoven-go/internal/config"
	"github.com/raphaelgruber/beethoven-go/internal/db"
	"github.com/raphaelgruber/beethoven-go/internal/llm"
	"github.com/raphaelgruber/beethoven-go/internal/metrics"
	"github.com/raphaelgruber/beethoven-go/internal/prompt"
	"github.com/raphaelgruber/beethoven-go/internal/server"
	"github.com/raphaelgruber/beethoven-go/internal/service"
	"github.com/raphaelgruber/beethoven-go/internal/storage"
)

// drainTimeout bounds how long shutdown waits for in-flight recordings.
const drainTimeout = 2 * time.Minute

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "loaded .env")
	}

	cfg := config.Load()

	logger, closeLog := config.SetupLogger("beethoven-server", cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger, *wipeDB || os.Getenv("BEETHOVEN_WIPE_DB") == "true"); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, wipe bool) error {
	logger.Info("starting beethoven-server",
		"port", cfg.ServerPort,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"stt_model", cfg.STTModel,
		"storage", cfg.StorageEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if wipe {
		if err := dbClient.WipeData(ctx); err != nil {
			return fmt.Errorf("wipe database: %w", err)
		}
	}

	seeded, err := prompt.SeedFromFile(ctx, cfg.PromptsFile, dbClient, logger)
	if err != nil {
		return err
	}
	if seeded > 0 {
		logger.Info("seeded default settings", "created", seeded, "path", cfg.PromptsFile)
	}

	// Left nil without object storage: uploads are then processed from memory only.
	var audioStore service.AudioStore
	if cfg.StorageEnabled() {
		store, err := storage.NewStore(ctx, storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		}, logger)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		audioStore = store
	}

	mc := metrics.NewCollector()

	transcriber, err := llm.NewTranscriber(llm.TranscriberOptions{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Model:   cfg.STTModel,
		Timeout: cfg.TranscribeTimeout,
		Metrics: mc,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("init transcriber: %w", err)
	}

	model, err := llm.NewModel(ctx, cfg, mc)
	if err != nil {
		return fmt.Errorf("init analysis model: %w", err)
	}

	pipeline := service.NewPipeline(service.PipelineDeps{
		Store: dbClient,
		Normalizer: audio.NewNormalizer(audio.Options{
			FFmpegPath: cfg.FFmpegPath,
			Timeout:    cfg.NormalizeTimeout,
			MaxOutput:  cfg.NormalizeMaxOutput,
			Logger:     logger,
		}),
		Transcriber: transcriber,
		Analyzer:    analysis.NewAnalyzer(model, cfg.AnalyzeTimeout, logger),
		Prompts:     prompt.NewResolver(dbClient),
		Metrics:     mc,
		Logger:      logger,
	})

	recordings := service.NewRecordingService(dbClient, audioStore, pipeline, logger)
	if err := recordings.RecoverInterrupted(ctx); err != nil {
		logger.Warn("failed to recover interrupted recordings", "error", err)
	}
	cancel()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Deps{
		Recordings: recordings,
		Settings:   service.NewSettingsService(dbClient),
		DB:         dbClient,
		Metrics:    mc,
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s/api", cfg.ServerPort))
		errCh <- srv.ListenAndServe(":" + cfg.ServerPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down server...", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if !pipeline.WaitTimeout(drainTimeout) {
		logger.Warn("in-flight recordings did not finish before shutdown, they will be marked error on next start")
	}

	logger.Info("server stopped")
	return nil
}
