/**
 * Extraction pipeline
 *
 * Orchestrates one screenshot end to end:
 * image bytes -> OCR detections -> zoned detections -> assembled snapshot.
 *
 * Each invocation is a single synchronous call chain with no shared
 * mutable state, so concurrent extractions need no coordination beyond
 * the OCR engine's own serialization.
 */

package extract

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	kpierrors "github.com/chatperf/kpi-ocr/internal/errors"
	"github.com/chatperf/kpi-ocr/internal/metrics"
	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/ocr"
)

// Pipeline runs OCR, zone classification, and assembly for one capture.
type Pipeline struct {
	engine     ocr.Engine
	ocrTimeout time.Duration
}

// Request is one screenshot to extract, plus the caller-supplied fields.
type Request struct {
	Image  []byte
	Date   models.Date
	Moment models.Moment
	Note   string
}

// Result is a successfully assembled snapshot with pipeline metadata.
type Result struct {
	Snapshot   *models.KpiSnapshot
	Detections int
	Duration   time.Duration
}

// NewPipeline wires the engine into a pipeline. ocrTimeout bounds the
// engine call; the OCR step can take seconds on large captures.
func NewPipeline(engine ocr.Engine, ocrTimeout time.Duration) *Pipeline {
	if ocrTimeout <= 0 {
		ocrTimeout = 30 * time.Second
	}
	return &Pipeline{engine: engine, ocrTimeout: ocrTimeout}
}

// Run executes the pipeline. Failures come back as *IncompleteDataError
// or *kpierrors.PipelineError; nothing propagates as an unhandled fault.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	log.Printf("[%s %s] Step 1: running OCR (%d bytes)", req.Date, req.Moment, len(req.Image))

	ocrCtx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()

	ocrStart := time.Now()
	detections, err := p.engine.Detect(ocrCtx, req.Image)
	metrics.ObserveOCRDuration(time.Since(ocrStart))

	if err != nil {
		metrics.RecordExtraction("ocr_failed")
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, kpierrors.NewOCRTimeoutError(p.ocrTimeout, err)
		}
		return nil, kpierrors.NewOCRFailedError(err)
	}
	if len(detections) == 0 {
		metrics.RecordExtraction("ocr_failed")
		return nil, kpierrors.NewOCRFailedError(fmt.Errorf("engine returned no detections"))
	}

	log.Printf("[%s %s] Step 2: classifying %d detections into zones", req.Date, req.Moment, len(detections))
	zones := ClassifyZones(detections)
	for zone, items := range zones {
		log.Printf("[%s %s]   zone %-8s %d detections", req.Date, req.Moment, zone, len(items))
	}

	log.Printf("[%s %s] Step 3: assembling KPI record", req.Date, req.Moment)
	snapshot, err := Assemble(zones, CallerFields{Date: req.Date, Moment: req.Moment, Note: req.Note})
	if err != nil {
		metrics.RecordExtraction("incomplete")
		return nil, err
	}

	duration := time.Since(start)
	metrics.RecordExtraction("ok")
	log.Printf("[%s %s] Extraction complete in %v: msg=%d/%.1f%% photos=%d/%.1f%% gifts=%d/%.1f%% speed=%.1f%%",
		req.Date, req.Moment, duration,
		snapshot.MsgSent, snapshot.MsgRR,
		snapshot.PhotosSent, snapshot.PhotosRR,
		snapshot.GiftsSent, snapshot.GiftsRR,
		snapshot.SpeedRR)

	return &Result{Snapshot: snapshot, Detections: len(detections), Duration: duration}, nil
}
