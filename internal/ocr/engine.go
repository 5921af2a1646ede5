/**
 * OCR engine adapter
 *
 * Wraps Tesseract behind a small Engine interface so the extraction
 * pipeline and its tests do not depend on the native library. One
 * long-lived client is created lazily and reused across requests;
 * engine initialization is expensive and per-call instantiation was
 * the dominant latency source before this adapter existed.
 */

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine produces text detections from raw image bytes.
type Engine interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// TesseractEngine is the production Engine backed by gosseract.
// The underlying client is not safe for concurrent use, so calls are
// serialized behind a mutex.
type TesseractEngine struct {
	language string

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine creates an engine with the given language hint
// (e.g. "eng"). The Tesseract client itself is created on first use.
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{language: language}
}

// Detect runs word-level OCR on the image and returns one Detection per
// recognized word. The blocking native call runs on its own goroutine so
// the caller's context deadline is honored; on timeout the in-flight call
// finishes in the background and its result is discarded.
func (e *TesseractEngine) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image buffer")
	}

	type result struct {
		detections []Detection
		err        error
	}

	ch := make(chan result, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		detections, err := e.detectLocked(image)
		ch <- result{detections, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.detections, r.err
	}
}

// detectLocked does the actual OCR work. Caller must hold e.mu.
func (e *TesseractEngine) detectLocked(image []byte) ([]Detection, error) {
	if e.client == nil {
		client := gosseract.NewClient()
		if err := client.SetLanguage(e.language); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language %q: %w", e.language, err)
		}
		e.client = client
	}

	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	detections := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		detections = append(detections, Detection{
			Box: BoundingBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
			Text: b.Word,
			// gosseract reports confidence in [0,100]
			Confidence: b.Confidence / 100.0,
		})
	}

	return detections, nil
}

// Close releases the underlying Tesseract client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}
