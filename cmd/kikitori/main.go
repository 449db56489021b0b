package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
	"github.com/kikitori-app/kikitori-go/internal/api"
	"github.com/kikitori-app/kikitori-go/internal/config"
	"github.com/kikitori-app/kikitori-go/internal/history"
	"github.com/kikitori-app/kikitori-go/internal/logging"
	"github.com/kikitori-app/kikitori-go/internal/observability"
	"github.com/kikitori-app/kikitori-go/internal/session"
	"github.com/kikitori-app/kikitori-go/internal/tts"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting kikitori", "version", "0.1.0")

	// Warn if bearer token auth is disabled
	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	// Log loaded configuration (without sensitive values)
	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"sample_rate", cfg.SampleRate,
		"analyzer", cfg.Analyzer,
		"storage_backend", cfg.StorageBackend,
		"max_text_length", cfg.MaxTextLength,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	// Initialize TTS engine registry with Piper
	ttsRegistry := tts.NewRegistry()
	if cfg.PiperModel != "" {
		piperCfg := tts.PiperConfig{
			BinaryPath:   cfg.PiperPath,
			ModelPath:    cfg.PiperModel,
			DefaultVoice: cfg.Voice,
			SampleRate:   cfg.SampleRate,
		}
		piperEngine, err := tts.NewPiperEngine(piperCfg, logger)
		if err != nil {
			logger.Warn("failed to initialize Piper TTS", "error", err)
		} else {
			if err := ttsRegistry.Register(piperEngine); err != nil {
				logger.Warn("failed to register Piper TTS", "error", err)
			} else {
				logger.Info("Piper TTS engine registered", "model", cfg.PiperModel)
			}
		}
	} else {
		logger.Warn("no Piper model configured, synthesis will not work")
	}

	// Initialize the text analyzer. Analysis is best effort: without it
	// playback still works with fallback segmentation.
	var analyzer analyze.Analyzer
	if cfg.Analyzer == "kagome" {
		analyzer, err = analyze.NewKagomeAnalyzer(logger)
		if err != nil {
			logger.Warn("failed to initialize kagome analyzer, continuing without analysis", "error", err)
			analyzer = nil
		} else {
			logger.Info("kagome analyzer ready")
		}
	} else {
		logger.Info("text analysis disabled")
	}

	// Open the history snapshot backend
	var storage history.Storage
	switch cfg.StorageBackend {
	case "sqlite":
		sqliteStorage, err := history.NewSQLiteStorage(cfg.StoragePath)
		if err != nil {
			logger.Error("failed to open sqlite storage", "error", err, "path", cfg.StoragePath)
			os.Exit(1)
		}
		defer sqliteStorage.Close()
		storage = sqliteStorage
	default:
		storage = history.NewFileStorage(cfg.StoragePath)
	}
	logger.Info("history storage ready", "backend", cfg.StorageBackend, "path", cfg.StoragePath)

	store := history.NewStore(storage, logger)
	metrics := observability.NewMetrics("kikitori")
	metrics.HistoryItems.Set(float64(store.Len()))

	sessions := session.NewManager(ttsRegistry, analyzer, store, metrics, logger)
	defer sessions.Close()

	// Create and start HTTP server
	server := api.New(cfg, logger, sessions)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
}
