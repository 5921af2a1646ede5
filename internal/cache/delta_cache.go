/**
 * Redis delta-report cache
 *
 * Delta reports are pure functions of stored rows, so they cache well.
 * Entries are keyed by date, expire after a short TTL, and are
 * invalidated whenever a snapshot is saved for that date. Redis
 * failures degrade to cache misses.
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatperf/kpi-ocr/internal/models"
)

// DeltaCache caches computed delta reports in Redis.
type DeltaCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeltaCache connects to Redis and verifies connectivity.
func NewDeltaCache(redisURL string, ttl time.Duration) (*DeltaCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &DeltaCache{client: client, ttl: ttl}, nil
}

func deltaKey(date models.Date) string {
	return "kpi:delta:" + date.String()
}

// Get returns the cached report for a date, or a miss.
func (c *DeltaCache) Get(ctx context.Context, date models.Date) (*models.DeltaReport, bool) {
	raw, err := c.client.Get(ctx, deltaKey(date)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[cache] delta get failed for %s: %v", date, err)
		return nil, false
	}

	var report models.DeltaReport
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Printf("[cache] dropping undecodable delta entry for %s: %v", date, err)
		c.Invalidate(ctx, date)
		return nil, false
	}
	return &report, true
}

// Set stores a report under the date key.
func (c *DeltaCache) Set(ctx context.Context, date models.Date, report *models.DeltaReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		log.Printf("[cache] failed to encode delta report for %s: %v", date, err)
		return
	}
	if err := c.client.Set(ctx, deltaKey(date), raw, c.ttl).Err(); err != nil {
		log.Printf("[cache] delta set failed for %s: %v", date, err)
	}
}

// Invalidate drops the cached report for a date.
func (c *DeltaCache) Invalidate(ctx context.Context, date models.Date) {
	if err := c.client.Del(ctx, deltaKey(date)).Err(); err != nil {
		log.Printf("[cache] delta invalidate failed for %s: %v", date, err)
	}
}

// Close releases the Redis connection.
func (c *DeltaCache) Close() error {
	return c.client.Close()
}
