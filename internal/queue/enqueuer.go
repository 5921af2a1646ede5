/**
 * Task enqueuer
 *
 * Submits screenshot extraction jobs to the Redis-backed queue. Used by
 * the HTTP layer when the caller opts out of waiting for the OCR call.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer submits extraction tasks.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an enqueuer from a Redis URL.
func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(redisOpt)}, nil
}

// EnqueueExtract submits one job and returns its ID. The job ID is
// assigned here when empty.
func (e *Enqueuer) EnqueueExtract(ctx context.Context, job *ExtractJob) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	task := asynq.NewTask(TaskExtractKPI, payload)
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue extraction job: %w", err)
	}

	return job.JobID, nil
}

// Close releases the underlying Redis connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
