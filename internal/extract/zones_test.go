/**
 * Zone classifier tests
 *
 * Validates the centroid-to-zone banding, the confidence/text-length
 * floors, and classification determinism.
 */

package extract

import (
	"reflect"
	"testing"

	"github.com/chatperf/kpi-ocr/internal/ocr"
)

// boxAt builds a 10x10 box whose centroid is (cx, cy).
func boxAt(cx, cy float64) ocr.BoundingBox {
	return ocr.BoundingBox{X: int(cx) - 5, Y: int(cy) - 5, Width: 10, Height: 10}
}

func det(text string, conf float64, cx, cy float64) ocr.Detection {
	return ocr.Detection{Box: boxAt(cx, cy), Text: text, Confidence: conf}
}

func TestZoneForCentroid(t *testing.T) {
	testCases := []struct {
		name     string
		cx, cy   float64
		wantZone Zone
		wantOK   bool
	}{
		{name: "meta at top", cx: 100, cy: 50, wantZone: ZoneMeta, wantOK: true},
		{name: "meta boundary inclusive", cx: 100, cy: 200, wantZone: ZoneMeta, wantOK: true},
		{name: "gap between meta and messages", cx: 100, cy: 250, wantOK: false},
		{name: "messages", cx: 100, cy: 400, wantZone: ZoneMessages, wantOK: true},
		{name: "gifts right of split", cx: 480, cy: 400, wantZone: ZoneGifts, wantOK: true},
		{name: "messages band lower bound exclusive", cx: 100, cy: 300, wantOK: false},
		{name: "messages band upper bound exclusive", cx: 100, cy: 500, wantOK: false},
		{name: "photos", cx: 100, cy: 700, wantZone: ZonePhotos, wantOK: true},
		{name: "photos band lower bound inclusive", cx: 100, cy: 600, wantZone: ZonePhotos, wantOK: true},
		{name: "speed", cx: 600, cy: 700, wantZone: ZoneSpeed, wantOK: true},
		{name: "below all bands", cx: 100, cy: 900, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			zone, ok := zoneForCentroid(tc.cx, tc.cy)
			if ok != tc.wantOK {
				t.Fatalf("zoneForCentroid(%v, %v) ok = %v, want %v", tc.cx, tc.cy, ok, tc.wantOK)
			}
			if ok && zone != tc.wantZone {
				t.Errorf("zoneForCentroid(%v, %v) = %q, want %q", tc.cx, tc.cy, zone, tc.wantZone)
			}
		})
	}
}

func TestClassifyZonesFiltersNoise(t *testing.T) {
	detections := []ocr.Detection{
		det("1340 Sent", 0.9, 100, 400),
		det("low confidence", 0.2, 100, 400), // below the 0.3 floor
		det(" x ", 0.9, 100, 400),            // single char after trim
		det("", 0.9, 100, 400),
		det("65% RR", 0.35, 100, 400),
	}

	zones := ClassifyZones(detections)

	msgs := zones[ZoneMessages]
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages-zone detections, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Text != "1340 Sent" || msgs[1].Text != "65% RR" {
		t.Errorf("unexpected detections kept: %+v", msgs)
	}
}

func TestClassifyZonesPreservesOrder(t *testing.T) {
	detections := []ocr.Detection{
		det("first", 0.9, 100, 350),
		det("second", 0.9, 200, 400),
		det("third", 0.9, 300, 450),
	}

	zones := ClassifyZones(detections)
	msgs := zones[ZoneMessages]
	if len(msgs) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Text != want {
			t.Errorf("position %d = %q, want %q", i, msgs[i].Text, want)
		}
	}
}

func TestClassifyZonesDeterministic(t *testing.T) {
	detections := []ocr.Detection{
		det("Total KPI: -2.5", 0.9, 100, 50),
		det("1340 Sent 65% RR", 0.9, 100, 400),
		det("12 Sent 80% RR", 0.9, 600, 400),
		det("5 Sent 70% RR", 0.9, 100, 700),
		det("95% RR", 0.9, 600, 700),
	}

	first := ClassifyZones(detections)
	second := ClassifyZones(detections)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	for _, zone := range []Zone{ZoneMeta, ZoneMessages, ZoneGifts, ZonePhotos, ZoneSpeed} {
		if len(first[zone]) != 1 {
			t.Errorf("zone %s has %d detections, want 1", zone, len(first[zone]))
		}
	}
}
