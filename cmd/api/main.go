package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pairwise-app/faceverify/internal/api"
	"github.com/pairwise-app/faceverify/internal/config"
	"github.com/pairwise-app/faceverify/internal/database"
	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/detector/mock"
	"github.com/pairwise-app/faceverify/internal/detector/rekognition"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Faceverify API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("detector", cfg.DetectorType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Face detector
	faceDetector, err := newDetector(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create face detector: %w", err)
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		DB:       db,
		Detector: faceDetector,
		Config:   cfg,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}

func newDetector(ctx context.Context, cfg *config.Config) (detector.FaceDetector, error) {
	switch cfg.DetectorType {
	case "rekognition":
		return rekognition.New(ctx, rekognition.Config{Region: cfg.AWSRegion})
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown detector type: %s", cfg.DetectorType)
	}
}
