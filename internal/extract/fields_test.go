/**
 * Field extraction tests
 *
 * Validates the sent/rate pattern matching, placeholder suppression with
 * fallback substitution, and the metadata strip parsing.
 */

package extract

import (
	"testing"

	"github.com/chatperf/kpi-ocr/internal/ocr"
)

func textDetections(texts ...string) []ocr.Detection {
	out := make([]ocr.Detection, 0, len(texts))
	for _, s := range texts {
		out = append(out, ocr.Detection{Text: s, Confidence: 0.9})
	}
	return out
}

func TestExtractSentAndRate(t *testing.T) {
	testCases := []struct {
		name     string
		zone     Zone
		texts    []string
		wantSent OptInt
		wantRate OptFloat
	}{
		{
			name:     "genuine values pass through",
			zone:     ZoneMessages,
			texts:    []string{"1340 Sent 65% RR"},
			wantSent: OptInt{Value: 1340, Present: true},
			wantRate: OptFloat{Value: 65.0, Present: true},
		},
		{
			name:     "placeholders suppressed to fallbacks",
			zone:     ZoneMessages,
			texts:    []string{"2520 Sent 90% RR"},
			wantSent: OptInt{Value: 0, Present: true},
			wantRate: OptFloat{Value: 90, Present: true},
		},
		{
			name:     "second messages placeholder",
			zone:     ZoneMessages,
			texts:    []string{"2250 Sent 78% RR"},
			wantSent: OptInt{Value: 0, Present: true},
			wantRate: OptFloat{Value: 90, Present: true},
		},
		{
			name:     "gifts placeholder table differs from messages",
			zone:     ZoneGifts,
			texts:    []string{"540 Sent 55% RR"},
			wantSent: OptInt{Value: 0, Present: true},
			wantRate: OptFloat{Value: 55.0, Present: true},
		},
		{
			name:     "messages table does not suppress gifts placeholder",
			zone:     ZoneMessages,
			texts:    []string{"540 Sent 55% RR"},
			wantSent: OptInt{Value: 540, Present: true},
			wantRate: OptFloat{Value: 55.0, Present: true},
		},
		{
			name:     "genuine value beats earlier placeholder",
			zone:     ZoneMessages,
			texts:    []string{"2520 Sent", "1340 Sent 65% RR"},
			wantSent: OptInt{Value: 1340, Present: true},
			wantRate: OptFloat{Value: 65.0, Present: true},
		},
		{
			name:     "later genuine match wins",
			zone:     ZoneMessages,
			texts:    []string{"100 Sent", "200 Sent"},
			wantSent: OptInt{Value: 200, Present: true},
			wantRate: OptFloat{},
		},
		{
			name:     "decimal rate",
			zone:     ZoneMessages,
			texts:    []string{"1340 Sent 65.5% RR"},
			wantSent: OptInt{Value: 1340, Present: true},
			wantRate: OptFloat{Value: 65.5, Present: true},
		},
		{
			name:     "rate without percent sign",
			zone:     ZoneSpeed,
			texts:    []string{"95 RR"},
			wantSent: OptInt{},
			wantRate: OptFloat{Value: 95, Present: true},
		},
		{
			name:     "pattern spans adjacent detections",
			zone:     ZoneMessages,
			texts:    []string{"1340", "Sent", "65%", "RR"},
			wantSent: OptInt{Value: 1340, Present: true},
			wantRate: OptFloat{Value: 65.0, Present: true},
		},
		{
			name:     "no match leaves fields absent",
			zone:     ZoneMessages,
			texts:    []string{"unrelated text"},
			wantSent: OptInt{},
			wantRate: OptFloat{},
		},
		{
			name:     "empty zone",
			zone:     ZoneMessages,
			texts:    nil,
			wantSent: OptInt{},
			wantRate: OptFloat{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractSentAndRate(tc.zone, textDetections(tc.texts...))
			if got.Sent != tc.wantSent {
				t.Errorf("Sent = %+v, want %+v", got.Sent, tc.wantSent)
			}
			if got.Rate != tc.wantRate {
				t.Errorf("Rate = %+v, want %+v", got.Rate, tc.wantRate)
			}
		})
	}
}

func TestExtractMeta(t *testing.T) {
	testCases := []struct {
		name       string
		texts      []string
		wantTotal  OptFloat
		wantEffect OptFloat
	}{
		{
			name:       "negative decimals",
			texts:      []string{"Total KPI: -2.5 KPI Effect: -3"},
			wantTotal:  OptFloat{Value: -2.5, Present: true},
			wantEffect: OptFloat{Value: -3.0, Present: true},
		},
		{
			name:       "positive values split across detections",
			texts:      []string{"Total KPI:", "12.75", "KPI Effect:", "4"},
			wantTotal:  OptFloat{Value: 12.75, Present: true},
			wantEffect: OptFloat{Value: 4, Present: true},
		},
		{
			name:       "no suppression of round values",
			texts:      []string{"Total KPI: 0 KPI Effect: 90"},
			wantTotal:  OptFloat{Value: 0, Present: true},
			wantEffect: OptFloat{Value: 90, Present: true},
		},
		{
			name:  "missing labels stay absent",
			texts: []string{"nothing recognizable"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractMeta(textDetections(tc.texts...))
			if got.TotalKPI != tc.wantTotal {
				t.Errorf("TotalKPI = %+v, want %+v", got.TotalKPI, tc.wantTotal)
			}
			if got.KPIEffect != tc.wantEffect {
				t.Errorf("KPIEffect = %+v, want %+v", got.KPIEffect, tc.wantEffect)
			}
		})
	}
}
