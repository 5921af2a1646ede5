/**
 * KPI assembler
 *
 * Merges per-zone extraction results into one candidate snapshot,
 * overlays the caller-supplied date/moment/note, and checks that every
 * required field was actually extracted before anything is persisted.
 */

package extract

import (
	"fmt"
	"strings"

	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/ocr"
)

// CallerFields are the request-supplied values overlaid on the extraction.
type CallerFields struct {
	Date   models.Date
	Moment models.Moment
	Note   string
}

// PartialKPI is the merged per-zone result with explicit per-field
// presence, so the completeness check is an exhaustive match rather
// than a key probe.
type PartialKPI struct {
	MsgSent    OptInt
	MsgRR      OptFloat
	PhotosSent OptInt
	PhotosRR   OptFloat
	GiftsSent  OptInt
	GiftsRR    OptFloat
	SpeedRR    OptFloat

	// Metadata strip values, informational only (not required).
	TotalKPI  OptFloat
	KPIEffect OptFloat
}

// MissingRequired lists the absent required fields in a stable order.
func (p PartialKPI) MissingRequired() []string {
	var missing []string
	if !p.MsgSent.Present {
		missing = append(missing, "msg_sent")
	}
	if !p.MsgRR.Present {
		missing = append(missing, "msg_rr")
	}
	if !p.PhotosSent.Present {
		missing = append(missing, "photo_sent")
	}
	if !p.PhotosRR.Present {
		missing = append(missing, "photo_rr")
	}
	if !p.GiftsSent.Present {
		missing = append(missing, "gift_sent")
	}
	if !p.GiftsRR.Present {
		missing = append(missing, "gift_rr")
	}
	if !p.SpeedRR.Present {
		missing = append(missing, "speed_rr")
	}
	return missing
}

// Fields returns the present fields as a name-to-value mapping, used in
// the structured failure payload so the caller can see what the OCR did
// manage to read.
func (p PartialKPI) Fields() map[string]interface{} {
	out := make(map[string]interface{})
	if p.MsgSent.Present {
		out["msg_sent"] = p.MsgSent.Value
	}
	if p.MsgRR.Present {
		out["msg_rr"] = p.MsgRR.Value
	}
	if p.PhotosSent.Present {
		out["photo_sent"] = p.PhotosSent.Value
	}
	if p.PhotosRR.Present {
		out["photo_rr"] = p.PhotosRR.Value
	}
	if p.GiftsSent.Present {
		out["gift_sent"] = p.GiftsSent.Value
	}
	if p.GiftsRR.Present {
		out["gift_rr"] = p.GiftsRR.Value
	}
	if p.SpeedRR.Present {
		out["speed_rr"] = p.SpeedRR.Value
	}
	if p.TotalKPI.Present {
		out["total_kpi"] = p.TotalKPI.Value
	}
	if p.KPIEffect.Present {
		out["kpi_effect"] = p.KPIEffect.Value
	}
	return out
}

// IncompleteDataError reports a failed completeness check. It carries the
// partial record and the exact missing field names so the caller can
// decide what to do (typically: re-capture at a higher resolution).
type IncompleteDataError struct {
	Partial PartialKPI
	Missing []string
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("incomplete extraction, missing fields: %s", strings.Join(e.Missing, ", "))
}

// MergeZones runs field extraction per zone and merges the results.
// The speed badge shows only a rate, so its sent counter is ignored.
func MergeZones(zones map[Zone][]ocr.Detection) PartialKPI {
	var p PartialKPI

	msg := ExtractSentAndRate(ZoneMessages, zones[ZoneMessages])
	p.MsgSent, p.MsgRR = msg.Sent, msg.Rate

	gifts := ExtractSentAndRate(ZoneGifts, zones[ZoneGifts])
	p.GiftsSent, p.GiftsRR = gifts.Sent, gifts.Rate

	photos := ExtractSentAndRate(ZonePhotos, zones[ZonePhotos])
	p.PhotosSent, p.PhotosRR = photos.Sent, photos.Rate

	speed := ExtractSentAndRate(ZoneSpeed, zones[ZoneSpeed])
	p.SpeedRR = speed.Rate

	meta := ExtractMeta(zones[ZoneMeta])
	p.TotalKPI, p.KPIEffect = meta.TotalKPI, meta.KPIEffect

	return p
}

// Assemble builds a complete snapshot from classified zones, or fails
// with *IncompleteDataError when any required field is absent. The
// snapshot ID is assigned by the store on save.
func Assemble(zones map[Zone][]ocr.Detection, caller CallerFields) (*models.KpiSnapshot, error) {
	partial := MergeZones(zones)

	if missing := partial.MissingRequired(); len(missing) > 0 {
		return nil, &IncompleteDataError{Partial: partial, Missing: missing}
	}

	return &models.KpiSnapshot{
		Date:       caller.Date,
		Moment:     caller.Moment,
		Note:       caller.Note,
		MsgSent:    partial.MsgSent.Value,
		MsgRR:      partial.MsgRR.Value,
		PhotosSent: partial.PhotosSent.Value,
		PhotosRR:   partial.PhotosRR.Value,
		GiftsSent:  partial.GiftsSent.Value,
		GiftsRR:    partial.GiftsRR.Value,
		SpeedRR:    partial.SpeedRR.Value,
	}, nil
}
