package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/earth-imagery-service/internal/api/http"
	"github.com/i474232898/earth-imagery-service/internal/audit"
	"github.com/i474232898/earth-imagery-service/internal/config"
	"github.com/i474232898/earth-imagery-service/internal/geocode"
	"github.com/i474232898/earth-imagery-service/internal/imagery"
	"github.com/i474232898/earth-imagery-service/internal/imagery/providers"
	"github.com/i474232898/earth-imagery-service/internal/scheduler"
	"github.com/i474232898/earth-imagery-service/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Audit trail: file-backed when configured, otherwise discarded.
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.AuditLogPath != "" {
		fileRecorder, err := audit.NewFileRecorder(cfg.AuditLogPath)
		if err != nil {
			log.Fatalf("failed to open audit log: %v", err)
		}
		defer fileRecorder.Close()
		recorder = fileRecorder
	}

	// Providers: each constructor enforces its own credentials, and a
	// provider with missing credentials is simply not offered.
	var provs []imagery.Provider

	if nasa, err := providers.NewNASAProvider(httpClient, cfg.NASAAPIKey); err != nil {
		log.Printf("nasa provider disabled: %v", err)
	} else {
		provs = append(provs, nasa)
	}

	if sentinel, err := providers.NewSentinelProvider(httpClient, cfg.SentinelClientID, cfg.SentinelClientSecret); err != nil {
		log.Printf("sentinel provider disabled: %v", err)
	} else {
		provs = append(provs, sentinel)
	}

	// GIBS needs no credentials and is always available.
	provs = append(provs, providers.NewGIBSProvider(httpClient, cfg.GIBSLayer))

	// Core service orchestrating providers and the audit trail.
	service := imagery.NewService(provs, recorder)

	// Probe-history store and the scheduler feeding it.
	probeStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	sched := scheduler.New(provs, cfg.ProbeInterval, probeStore)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "earth-imagery-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Health endpoint with the latest per-provider probe results.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "earth-imagery-service",
			"providers": probeStore.LatestAll(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, geocode.New(cfg.GeocoderAPIKey), httpapi.Defaults{
		CloudCoverMax: cfg.DefaultCloudCoverMax,
		FOVDegrees:    0.2,
	})

	// Start server with graceful shutdown
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
