/**
 * Zone classifier
 *
 * Partitions flat OCR detections into the five named dashboard regions
 * using bounding-box centroids against fixed pixel thresholds.
 *
 * The thresholds are calibrated to one fixed screenshot resolution.
 * There is no adaptive/relative-coordinate mode: captures at a different
 * resolution need re-calibration of the bands below. Known limitation.
 */

package extract

import (
	"strings"

	"github.com/chatperf/kpi-ocr/internal/ocr"
)

// Zone names one dashboard region assumed to contain one badge category.
type Zone string

const (
	ZoneMessages Zone = "messages"
	ZoneGifts    Zone = "gifts"
	ZonePhotos   Zone = "photos"
	ZoneSpeed    Zone = "speed"
	ZoneMeta     Zone = "meta"
)

const (
	// Detections below these floors are OCR noise and never classified.
	minConfidence = 0.3
	minTextLen    = 2
)

// ClassifyZones assigns each usable detection to a region. Zone assignment
// is a pure function of the centroid coordinates, so re-running it on the
// same detections is deterministic. Detections whose centroid falls between
// the calibrated bands get no zone at all and are silently dropped.
func ClassifyZones(detections []ocr.Detection) map[Zone][]ocr.Detection {
	zones := make(map[Zone][]ocr.Detection)

	for _, d := range detections {
		if d.Confidence < minConfidence {
			continue
		}
		if len(strings.TrimSpace(d.Text)) < minTextLen {
			continue
		}

		cx, cy := d.Box.Centroid()
		zone, ok := zoneForCentroid(cx, cy)
		if !ok {
			continue
		}
		zones[zone] = append(zones[zone], d)
	}

	return zones
}

// zoneForCentroid maps a centroid to its calibrated screen band.
func zoneForCentroid(cx, cy float64) (Zone, bool) {
	switch {
	case cy <= 200:
		return ZoneMeta, true
	case cy > 300 && cy < 500 && cx < 480:
		return ZoneMessages, true
	case cy > 300 && cy < 500 && cx >= 480:
		return ZoneGifts, true
	case cy >= 600 && cy < 800 && cx < 480:
		return ZonePhotos, true
	case cy >= 600 && cy < 800 && cx >= 480:
		return ZoneSpeed, true
	}
	return "", false
}
