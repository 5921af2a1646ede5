/**
 * Queue consumer for the KPI OCR worker
 *
 * Consumes screenshot extraction jobs from the Redis-backed queue and
 * runs them through the ingest service. Uses Asynq for queue management.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chatperf/kpi-ocr/internal/extract"
	"github.com/chatperf/kpi-ocr/internal/ingest"
)

// Consumer handles job consumption from the Redis queue.
type Consumer struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	service *ingest.Service
	config  *ConsumerConfig
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL    string
	Concurrency int
	Service     *ingest.Service
	JobTimeout  time.Duration // per-job processing bound (default: 2 minutes)
}

// NewConsumer creates a new queue consumer.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("Service is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueName: 10,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server:  server,
		mux:     mux,
		service: cfg.Service,
		config:  cfg,
	}

	mux.HandleFunc(TaskExtractKPI, consumer.handleExtract)

	return consumer, nil
}

// Start starts the queue consumer.
func (c *Consumer) Start() error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully.
func (c *Consumer) Stop() {
	log.Printf("Stopping queue consumer...")
	c.server.Shutdown()
	log.Printf("Queue consumer stopped")
}

// handleExtract processes one screenshot extraction job.
func (c *Consumer) handleExtract(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job ExtractJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	log.Printf("[Job %s] Processing screenshot: date=%s, moment=%s, size=%d bytes",
		job.JobID, job.Date, job.Moment, len(job.Image))

	timeout := 2 * time.Minute
	if c.config.JobTimeout > 0 {
		timeout = c.config.JobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := c.service.ProcessScreenshot(jobCtx, &extract.Request{
		Image:  job.Image,
		Date:   job.Date,
		Moment: job.Moment,
		Note:   job.Note,
	})

	duration := time.Since(startTime)

	if err != nil {
		if incomplete, ok := err.(*extract.IncompleteDataError); ok {
			// Retrying the same image cannot make missing fields appear.
			log.Printf("[Job %s] Extraction incomplete after %v: missing=%v", job.JobID, duration, incomplete.Missing)
			return fmt.Errorf("incomplete extraction: %v: %w", incomplete.Missing, asynq.SkipRetry)
		}
		log.Printf("[Job %s] Processing failed after %v: %v", job.JobID, duration, err)
		return fmt.Errorf("screenshot processing failed: %w", err)
	}

	log.Printf("[Job %s] Processing completed in %v: snapshot=%s (%s %s)",
		job.JobID, duration, snapshot.ID, snapshot.Date, snapshot.Moment)

	return nil
}
