/**
 * Per-zone field extraction
 *
 * Pattern-matches the concatenated text of one zone to pull out the
 * "sent" counter and the "RR" response-rate badge, or the two labeled
 * numeric fields of the metadata strip.
 *
 * The dashboard renders default badge values when a counter has not
 * been touched today, and the OCR keeps reading those backgrounds as
 * real numbers. The placeholder tables below list the known-bad values
 * per field kind; when a zone yields nothing but placeholders the
 * extractor substitutes a fixed fallback instead of trusting the read.
 * The lists must stay as-is for output compatibility with stored
 * history, fragile as they are.
 */

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chatperf/kpi-ocr/internal/ocr"
)

// OptInt is an integer field with explicit presence.
type OptInt struct {
	Value   int
	Present bool
}

// OptFloat is a float field with explicit presence.
type OptFloat struct {
	Value   float64
	Present bool
}

var (
	sentPattern      = regexp.MustCompile(`(?i)(\d+)\s*sent`)
	ratePattern      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%?\s*rr`)
	totalKPIPattern  = regexp.MustCompile(`(?i)total\s*kpi:\s*(-?\d+(?:\.\d+)?)`)
	kpiEffectPattern = regexp.MustCompile(`(?i)kpi\s*effect:\s*(-?\d+(?:\.\d+)?)`)
)

// Known default/background badge values per zone, not genuine readings.
var sentPlaceholders = map[Zone]map[int]struct{}{
	ZoneMessages: {2520: {}, 2250: {}, 0: {}},
	ZoneGifts:    {540: {}, 125: {}, 0: {}},
	ZonePhotos:   {540: {}, 125: {}, 0: {}},
}

var ratePlaceholders = map[float64]struct{}{90: {}, 78: {}, 0: {}}

const (
	fallbackSent = 0
	fallbackRate = 90
)

// SentRate is the partial extraction result for one badge zone.
type SentRate struct {
	Sent OptInt
	Rate OptFloat
}

// ExtractSentAndRate pulls the sent counter and response rate out of one
// zone's detections. Later matches overwrite earlier ones, and placeholder
// values are skipped during iteration, so the result is the last genuine
// occurrence. When every candidate was a placeholder the fixed fallback is
// used; when the pattern never matched the field stays absent.
func ExtractSentAndRate(zone Zone, items []ocr.Detection) SentRate {
	text := joinTexts(items)
	var out SentRate

	sawSent := false
	for _, m := range sentPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		sawSent = true
		if isSentPlaceholder(zone, v) {
			continue
		}
		out.Sent = OptInt{Value: v, Present: true}
	}
	if !out.Sent.Present && sawSent {
		out.Sent = OptInt{Value: fallbackSent, Present: true}
	}

	sawRate := false
	for _, m := range ratePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		sawRate = true
		if _, bad := ratePlaceholders[v]; bad {
			continue
		}
		out.Rate = OptFloat{Value: v, Present: true}
	}
	if !out.Rate.Present && sawRate {
		out.Rate = OptFloat{Value: fallbackRate, Present: true}
	}

	return out
}

// MetaFields are the two labeled numbers of the metadata strip.
type MetaFields struct {
	TotalKPI  OptFloat
	KPIEffect OptFloat
}

// ExtractMeta matches the labeled "Total KPI" and "KPI Effect" values.
// These are typeset labels rather than badges, so no placeholder
// suppression applies.
func ExtractMeta(items []ocr.Detection) MetaFields {
	text := joinTexts(items)
	var out MetaFields

	if m := totalKPIPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.TotalKPI = OptFloat{Value: v, Present: true}
		}
	}
	if m := kpiEffectPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.KPIEffect = OptFloat{Value: v, Present: true}
		}
	}

	return out
}

func isSentPlaceholder(zone Zone, v int) bool {
	table, ok := sentPlaceholders[zone]
	if !ok {
		return false
	}
	_, bad := table[v]
	return bad
}

func joinTexts(items []ocr.Detection) string {
	parts := make([]string, 0, len(items))
	for _, d := range items {
		parts = append(parts, d.Text)
	}
	return strings.Join(parts, " ")
}
