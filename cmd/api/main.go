package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruckquest/augmenter"
	"github.com/ruckquest/augmenter/api"
	"github.com/ruckquest/augmenter/config"
	"github.com/ruckquest/augmenter/db"
	"github.com/ruckquest/augmenter/metrics"
	"github.com/ruckquest/augmenter/storage"
	"github.com/ruckquest/augmenter/tracing"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("augmenter service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("augmenter")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Command-line flags (override configuration)
	configPath := flag.String("config", getEnv("AUGMENTER_CONFIG", ""), "Path to YAML config file")
	port := flag.String("port", getEnv("PORT", "8080"), "Server port")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Database.DSN == "" {
		logger.Error("database DSN is required (DATABASE_DSN or config file)")
		os.Exit(1)
	}
	if cfg.Gemini.APIKey == "" {
		logger.Error("Gemini API key is required (GEMINI_API_KEY or config file)")
		os.Exit(1)
	}

	serverConfig := api.Config{
		Addr:     ":" + *port,
		DBConfig: db.Config{DSN: cfg.Database.DSN},
		EngineConfig: augmenter.Config{
			WindowWords:    cfg.Engine.WindowWords,
			SuggestWorkers: cfg.Engine.SuggestWorkers,
		},
		CORSEnabled: !*disableCORS,

		GeminiAPIKey: cfg.Gemini.APIKey,
		GeminiModel:  cfg.Gemini.Model,

		GetImgAPIKey: cfg.GetImg.APIKey,
		GetImgAPIURL: cfg.GetImg.APIURL,
		SerperAPIKey: cfg.Serper.APIKey,

		WordPressBaseURL:     cfg.Site.BaseURL,
		WordPressUsername:    cfg.WordPress.Username,
		WordPressAppPassword: cfg.WordPress.AppPassword,

		StorageBackend: cfg.Storage.Backend,
		StoragePath:    cfg.Storage.BasePath,
		S3Config: storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		},
	}
	if serverConfig.StorageBackend == "" {
		serverConfig.StorageBackend = "filesystem"
	}
	if serverConfig.StoragePath == "" {
		serverConfig.StoragePath = "./storage"
	}

	server, err := api.NewServer(context.Background(), serverConfig)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Initialize database metrics
	dbMetrics := metrics.NewDatabaseMetrics("augmenter")
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			dbMetrics.UpdateDBStats(server.DB().DB())
		}
	}()
	logger.Info("database metrics initialized")

	// Start server in a goroutine
	go func() {
		logger.Info("augmenter service starting",
			"port", *port,
			"base_url", cfg.Site.BaseURL,
			"storage_backend", serverConfig.StorageBackend,
			"gemini_model", cfg.Gemini.Model,
		)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
