package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/mentions-bot/internal/analysis"
	"github.com/socialpulse/mentions-bot/internal/api"
	"github.com/socialpulse/mentions-bot/internal/archive"
	"github.com/socialpulse/mentions-bot/internal/cache"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/lifecycle"
	"github.com/socialpulse/mentions-bot/internal/models"
	"github.com/socialpulse/mentions-bot/internal/notifications"
	"github.com/socialpulse/mentions-bot/internal/pipeline"
	"github.com/socialpulse/mentions-bot/internal/scheduler"
	"github.com/socialpulse/mentions-bot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logger := logrus.StandardLogger()

	logrus.Info("Starting mentions bot")

	// Initialize storage
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("Failed to create database directory: %v", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath, logger)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize query cache and lifecycle manager
	mentionCache := cache.New[[]models.Mention](time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
	manager := lifecycle.NewManager(store, mentionCache, logger)

	// Initialize analysis
	model := analysis.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ModelRateRPM, logger)
	analyzer := analysis.NewAnalyzer(model, logger)

	// Initialize notification services
	notificationService := notifications.NewService(cfg)

	// Initialize snapshot archive when an Azure storage account is configured
	var archiveClient archive.ArchiveInterface
	if cfg.StorageAccount != "" {
		azureArchive, err := archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive: %v", err)
		}
		archiveClient = azureArchive
	}

	// Initialize collection pipeline
	pipelineService := pipeline.NewService(cfg, analyzer, manager, notificationService, archiveClient)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, pipelineService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	apiServer := api.NewServer(cfg, manager, pipelineService, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		// POST /api/collect runs a full collection synchronously.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
