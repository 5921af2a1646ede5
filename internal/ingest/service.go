/**
 * Ingest service
 *
 * One screenshot submission end to end: extraction pipeline, optional
 * screenshot upload to the image host, persistence, cache invalidation.
 * Shared by the HTTP handler (sync path) and the queue worker (async path).
 */

package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/chatperf/kpi-ocr/internal/cache"
	kpierrors "github.com/chatperf/kpi-ocr/internal/errors"
	"github.com/chatperf/kpi-ocr/internal/extract"
	"github.com/chatperf/kpi-ocr/internal/imagestore"
	"github.com/chatperf/kpi-ocr/internal/metrics"
	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/storage"
)

// Service processes screenshot submissions.
type Service struct {
	pipeline *extract.Pipeline
	store    storage.Store
	images   *imagestore.Client // optional
	cache    *cache.DeltaCache  // optional
}

// NewService wires the pipeline and its collaborators. images and
// deltaCache may be nil; the corresponding steps are then skipped.
func NewService(pipeline *extract.Pipeline, store storage.Store, images *imagestore.Client, deltaCache *cache.DeltaCache) *Service {
	return &Service{pipeline: pipeline, store: store, images: images, cache: deltaCache}
}

// ProcessScreenshot runs the extraction pipeline and persists the result.
// Extraction failures pass through untouched (*extract.IncompleteDataError
// or *kpierrors.PipelineError); persistence failures come back wrapped as
// STORAGE_FAILED.
func (s *Service) ProcessScreenshot(ctx context.Context, req *extract.Request) (*models.KpiSnapshot, error) {
	result, err := s.pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	snapshot := result.Snapshot

	if s.images != nil {
		url, err := s.images.Upload(ctx, &imagestore.UploadRequest{
			Image:    req.Image,
			Filename: fmt.Sprintf("kpi_%s_%s.png", req.Date, req.Moment),
			SourceID: snapshot.ID,
		})
		if err != nil {
			// Snapshot is still persisted, just without a source image link.
			log.Printf("[%s %s] WARNING: screenshot upload failed: %v", req.Date, req.Moment, err)
		} else {
			snapshot.ImageURL = url
		}
	}

	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, kpierrors.NewStorageFailedError(err)
	}
	metrics.RecordSnapshotSaved()

	if s.cache != nil {
		s.cache.Invalidate(ctx, snapshot.Date)
	}

	return snapshot, nil
}
