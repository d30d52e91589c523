package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docvalidator/api"
	"docvalidator/classifier"
	"docvalidator/config"
	"docvalidator/modelsync"
	"docvalidator/onnx/native"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to config file")
	flag.Parse()

	// =========
	// Config
	// =========
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("invalid config: %v", e)
		}
		log.Fatalf("config has %d errors", len(errs))
	}

	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	// run owns every other resource so its deferred releases happen before
	// the process exits.
	err = run(cfg, logger)
	if err != nil {
		logger.Error("server exited", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========
	// Model sync
	// =========
	if cfg.Sync.Enabled {
		state := &modelsync.StateStore{DBPath: cfg.Sync.StatePath}
		if err := state.Init(); err != nil {
			return fmt.Errorf("failed to open sync state: %w", err)
		}
		defer state.Close()

		store, err := modelsync.NewS3Store(ctx, modelsync.S3Config{
			Bucket:       cfg.Sync.Bucket,
			Key:          cfg.Sync.Key,
			Region:       cfg.Sync.Region,
			Endpoint:     cfg.Sync.Endpoint,
			UsePathStyle: cfg.Sync.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("failed to create s3 client: %w", err)
		}

		syncer, err := modelsync.NewSyncer(store, state, cfg.Model.Path, logger.Named("modelsync"),
			&http.Client{Timeout: 30 * time.Minute})
		if err != nil {
			return fmt.Errorf("failed to create model syncer: %w", err)
		}

		if cfg.Sync.OnStartup {
			if _, err := syncer.Sync(ctx); err != nil {
				logger.Error("initial model sync failed", zap.Error(err))
			}
		}

		scheduler := modelsync.NewScheduler(syncer, cfg.Sync.Schedule, logger.Named("modelsync"), func() {
			logger.Warn("new model downloaded; restart to load it", zap.String("path", cfg.Model.Path))
		})
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start model sync: %w", err)
		}
		defer scheduler.Stop()
	}

	// =========
	// Model
	// =========
	runtime, err := native.NewRuntime(native.Config{
		ModelPath:         cfg.Model.Path,
		TokenizerPath:     cfg.Model.TokenizerPath,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		MaxLength:         cfg.Model.MaxLength,
		InputIDsName:      cfg.Model.InputIDsName,
		AttentionMaskName: cfg.Model.AttentionMaskName,
		TokenTypeIDsName:  cfg.Model.TokenTypeIDsName,
		OutputName:        cfg.Model.OutputName,
	}, logger.Named("onnx"))
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer runtime.Close()

	aggregator, err := classifier.NewAggregator(runtime, cfg.ChunkBudget(), logger.Named("classifier"))
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	// =========
	// HTTP
	// =========
	server := api.NewServer(aggregator, runtime, cfg.App.Port, cfg.App.MaxBodyBytes, logger.Named("api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
