/**
 * KPI OCR Service - HTTP Server Entry Point
 *
 * Accepts messaging-dashboard screenshots, runs the OCR extraction
 * pipeline, persists daily KPI snapshots, and serves the day-over-day
 * delta report.
 *
 * Architecture:
 * - Tesseract-backed OCR engine, one long-lived client per process
 * - Zone classifier + field extractors calibrated to the dashboard layout
 * - PostgreSQL persistence (in-memory store for local runs)
 * - Optional Redis: asynq queue for async submissions, delta report cache
 */

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatperf/kpi-ocr/internal/cache"
	"github.com/chatperf/kpi-ocr/internal/config"
	"github.com/chatperf/kpi-ocr/internal/delta"
	"github.com/chatperf/kpi-ocr/internal/extract"
	"github.com/chatperf/kpi-ocr/internal/httpx"
	"github.com/chatperf/kpi-ocr/internal/imagestore"
	"github.com/chatperf/kpi-ocr/internal/ingest"
	"github.com/chatperf/kpi-ocr/internal/logging"
	"github.com/chatperf/kpi-ocr/internal/ocr"
	"github.com/chatperf/kpi-ocr/internal/queue"
	"github.com/chatperf/kpi-ocr/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("KPI OCR server starting...")
	log.Printf("Configuration loaded: Port=%s, Store=%s, OCRLanguage=%s",
		cfg.Port, cfg.StoreBackend, cfg.OCRLanguage)

	// Initialize storage
	var store storage.Store
	var pgStore *storage.PostgresStore
	switch cfg.StoreBackend {
	case "postgres":
		log.Printf("Connecting to PostgreSQL...")
		pgStore, err = storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		store = pgStore
		log.Printf("PostgreSQL storage initialized")
	case "memory":
		store = storage.NewMemoryStore()
		log.Printf("In-memory storage initialized (data is not persisted)")
	default:
		log.Fatalf("Unknown store backend %q (want postgres or memory)", cfg.StoreBackend)
	}

	// Initialize OCR engine and extraction pipeline
	engine := ocr.NewTesseractEngine(cfg.OCRLanguage)
	defer engine.Close()
	pipeline := extract.NewPipeline(engine, time.Duration(cfg.OCRTimeoutMs)*time.Millisecond)
	log.Printf("OCR pipeline initialized (language=%s, timeout=%dms)", cfg.OCRLanguage, cfg.OCRTimeoutMs)

	// Optional delta report cache
	var deltaCache *cache.DeltaCache
	if cfg.RedisURL != "" {
		deltaCache, err = cache.NewDeltaCache(cfg.RedisURL, time.Duration(cfg.DeltaCacheTTLSec)*time.Second)
		if err != nil {
			log.Printf("Warning: delta cache unavailable, computing deltas per request: %v", err)
			deltaCache = nil
		} else {
			defer deltaCache.Close()
			log.Printf("Delta cache initialized (ttl=%ds)", cfg.DeltaCacheTTLSec)
		}
	}

	// Optional image host for persisting source screenshots
	var images *imagestore.Client
	if cfg.ImageHostURL != "" {
		images = imagestore.NewClient(cfg.ImageHostURL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := images.HealthCheck(ctx); err != nil {
			log.Printf("Warning: image host health check failed, uploads may fail: %v", err)
		}
		cancel()
		log.Printf("Image host client initialized (url=%s)", cfg.ImageHostURL)
	}

	// Optional queue producer for ?async=1 submissions
	var enqueuer *queue.Enqueuer
	if cfg.RedisURL != "" {
		enqueuer, err = queue.NewEnqueuer(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: queue unavailable, async submissions disabled: %v", err)
			enqueuer = nil
		} else {
			defer enqueuer.Close()
			log.Printf("Queue producer initialized")
		}
	}

	service := ingest.NewService(pipeline, store, images, deltaCache)
	deltas := delta.NewCalculator(store)

	handler := httpx.NewRouter(httpx.RouterConfig{
		Service:      service,
		Store:        store,
		Deltas:       deltas,
		Enqueuer:     enqueuer,
		Cache:        deltaCache,
		Logger:       logging.NewLogger("http"),
		MaxImageSize: cfg.MaxImageSize,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("===========================================")
		log.Printf("KPI OCR server is READY on :%s", cfg.Port)
		log.Printf("===========================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	} else {
		log.Printf("HTTP server stopped")
	}

	log.Printf("Shutdown complete")
}
