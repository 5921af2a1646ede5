/**
 * KPI assembler tests
 *
 * Validates zone merging, the required-field completeness check, and the
 * exact contents of the incomplete-data failure.
 */

package extract

import (
	"reflect"
	"testing"

	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/ocr"
)

func fullZones() map[Zone][]ocr.Detection {
	return map[Zone][]ocr.Detection{
		ZoneMeta:     textDetections("Total KPI: -2.5 KPI Effect: -3"),
		ZoneMessages: textDetections("1340 Sent 65% RR"),
		ZoneGifts:    textDetections("12 Sent 55% RR"),
		ZonePhotos:   textDetections("34 Sent 71% RR"),
		ZoneSpeed:    textDetections("95% RR"),
	}
}

func TestAssembleComplete(t *testing.T) {
	date, _ := models.ParseDate("2026-08-29")
	caller := CallerFields{Date: date, Moment: models.MomentEnd, Note: "late capture"}

	snapshot, err := Assemble(fullZones(), caller)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if snapshot.Date != date || snapshot.Moment != models.MomentEnd || snapshot.Note != "late capture" {
		t.Errorf("caller fields not carried: %+v", snapshot)
	}
	if snapshot.MsgSent != 1340 || snapshot.MsgRR != 65.0 {
		t.Errorf("messages = (%d, %v), want (1340, 65)", snapshot.MsgSent, snapshot.MsgRR)
	}
	if snapshot.GiftsSent != 12 || snapshot.GiftsRR != 55.0 {
		t.Errorf("gifts = (%d, %v), want (12, 55)", snapshot.GiftsSent, snapshot.GiftsRR)
	}
	if snapshot.PhotosSent != 34 || snapshot.PhotosRR != 71.0 {
		t.Errorf("photos = (%d, %v), want (34, 71)", snapshot.PhotosSent, snapshot.PhotosRR)
	}
	if snapshot.SpeedRR != 95.0 {
		t.Errorf("speed = %v, want 95", snapshot.SpeedRR)
	}
	if snapshot.ID != "" {
		t.Errorf("ID should be assigned by the store, got %q", snapshot.ID)
	}
}

func TestAssembleMissingFields(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(map[Zone][]ocr.Detection)
		wantMissing []string
	}{
		{
			name:        "speed zone empty",
			mutate:      func(z map[Zone][]ocr.Detection) { delete(z, ZoneSpeed) },
			wantMissing: []string{"speed_rr"},
		},
		{
			name:        "messages zone empty",
			mutate:      func(z map[Zone][]ocr.Detection) { delete(z, ZoneMessages) },
			wantMissing: []string{"msg_sent", "msg_rr"},
		},
		{
			name: "rate unreadable in photos",
			mutate: func(z map[Zone][]ocr.Detection) {
				z[ZonePhotos] = textDetections("34 Sent")
			},
			wantMissing: []string{"photo_rr"},
		},
		{
			name: "everything empty",
			mutate: func(z map[Zone][]ocr.Detection) {
				for zone := range z {
					delete(z, zone)
				}
			},
			wantMissing: []string{"msg_sent", "msg_rr", "photo_sent", "photo_rr", "gift_sent", "gift_rr", "speed_rr"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			zones := fullZones()
			tc.mutate(zones)

			_, err := Assemble(zones, CallerFields{Date: models.Today(), Moment: models.MomentStart})
			incomplete, ok := err.(*IncompleteDataError)
			if !ok {
				t.Fatalf("expected *IncompleteDataError, got %T (%v)", err, err)
			}
			if !reflect.DeepEqual(incomplete.Missing, tc.wantMissing) {
				t.Errorf("Missing = %v, want %v", incomplete.Missing, tc.wantMissing)
			}
		})
	}
}

func TestAssemblePartialCarriesExtractedFields(t *testing.T) {
	zones := fullZones()
	delete(zones, ZoneSpeed)

	_, err := Assemble(zones, CallerFields{Date: models.Today(), Moment: models.MomentStart})
	incomplete, ok := err.(*IncompleteDataError)
	if !ok {
		t.Fatalf("expected *IncompleteDataError, got %T", err)
	}

	fields := incomplete.Partial.Fields()
	if fields["msg_sent"] != 1340 {
		t.Errorf("partial msg_sent = %v, want 1340", fields["msg_sent"])
	}
	if fields["total_kpi"] != -2.5 {
		t.Errorf("partial total_kpi = %v, want -2.5", fields["total_kpi"])
	}
	if _, present := fields["speed_rr"]; present {
		t.Errorf("speed_rr should be absent from partial fields: %v", fields)
	}
}

func TestMergeZonesIgnoresSpeedSentCounter(t *testing.T) {
	zones := fullZones()
	zones[ZoneSpeed] = textDetections("77 Sent 95% RR")

	partial := MergeZones(zones)
	if !partial.SpeedRR.Present || partial.SpeedRR.Value != 95.0 {
		t.Errorf("SpeedRR = %+v, want 95 present", partial.SpeedRR)
	}
	// The speed badge has no sent counter of its own; a stray "Sent" match
	// there must not leak into any counter field.
	if partial.MsgSent.Value != 1340 || partial.PhotosSent.Value != 34 || partial.GiftsSent.Value != 12 {
		t.Errorf("sent counters disturbed: %+v", partial)
	}
}
