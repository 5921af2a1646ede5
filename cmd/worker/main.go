/**
 * KPI OCR Worker - Main Entry Point
 *
 * Consumes queued screenshot submissions off Redis, runs the OCR
 * extraction pipeline, and persists the resulting KPI snapshots.
 * Also runs the evening cron that precomputes the day's delta report
 * into the cache once the end-of-day capture is expected to exist.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/chatperf/kpi-ocr/internal/cache"
	"github.com/chatperf/kpi-ocr/internal/config"
	"github.com/chatperf/kpi-ocr/internal/delta"
	"github.com/chatperf/kpi-ocr/internal/extract"
	"github.com/chatperf/kpi-ocr/internal/imagestore"
	"github.com/chatperf/kpi-ocr/internal/ingest"
	"github.com/chatperf/kpi-ocr/internal/models"
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
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required for the worker")
	}

	log.Printf("KPI OCR worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Store=%s, Workers=%d",
		cfg.RedisURL, cfg.StoreBackend, cfg.WorkerConcurrency)

	// Initialize storage
	var store storage.Store
	switch cfg.StoreBackend {
	case "postgres":
		log.Printf("Connecting to PostgreSQL...")
		pgStore, err := storage.NewPostgresStore(cfg.DatabaseURL)
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

	// Delta cache, shared by the ingest invalidation path and the cron refresh
	var deltaCache *cache.DeltaCache
	deltaCache, err = cache.NewDeltaCache(cfg.RedisURL, time.Duration(cfg.DeltaCacheTTLSec)*time.Second)
	if err != nil {
		log.Printf("Warning: delta cache unavailable: %v", err)
		deltaCache = nil
	} else {
		defer deltaCache.Close()
	}

	// Optional image host for persisting source screenshots
	var images *imagestore.Client
	if cfg.ImageHostURL != "" {
		images = imagestore.NewClient(cfg.ImageHostURL)
		log.Printf("Image host client initialized (url=%s)", cfg.ImageHostURL)
	}

	service := ingest.NewService(pipeline, store, images, deltaCache)

	// Initialize queue consumer
	log.Printf("Connecting to Redis queue...")
	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.RedisURL,
		Concurrency: cfg.WorkerConcurrency,
		Service:     service,
		JobTimeout:  time.Duration(cfg.JobTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}
	if err := consumer.Start(); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}
	log.Printf("Queue consumer started with concurrency=%d", cfg.WorkerConcurrency)

	// Evening cron: precompute today's delta report into the cache so the
	// first dashboard query after end-of-day capture is a cache hit.
	deltas := delta.NewCalculator(store)
	scheduler := cron.New()
	if deltaCache != nil {
		_, err = scheduler.AddFunc(cfg.DeltaCronSpec, func() {
			today := models.Today()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			report, err := deltas.Compute(ctx, today)
			if err != nil {
				log.Printf("Scheduled delta refresh for %s failed: %v", today, err)
				return
			}
			deltaCache.Set(ctx, today, report)
			log.Printf("Scheduled delta refresh for %s completed", today)
		})
		if err != nil {
			log.Fatalf("Invalid delta cron spec %q: %v", cfg.DeltaCronSpec, err)
		}
		scheduler.Start()
		log.Printf("Delta refresh scheduled (%s)", cfg.DeltaCronSpec)
	}

	log.Printf("===========================================")
	log.Printf("KPI OCR worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s", queue.QueueName)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Waiting for jobs...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	log.Printf("Scheduler stopped")

	consumer.Stop()

	log.Printf("Shutdown complete")
}
