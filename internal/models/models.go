/**
 * Domain model for the KPI OCR service
 *
 * KpiSnapshot is one dashboard capture (start or end of a day),
 * PeriodStat carries the rolling weekly/monthly figures tied to a snapshot,
 * DeltaReport is the transient day-over-day computation result.
 */

package models

import (
	"fmt"
	"time"
)

// Moment tags a snapshot as the first or last capture of a day.
type Moment string

const (
	MomentStart Moment = "start"
	MomentEnd   Moment = "end"
)

// ParseMoment validates a caller-supplied moment tag.
func ParseMoment(s string) (Moment, error) {
	switch Moment(s) {
	case MomentStart, MomentEnd:
		return Moment(s), nil
	}
	return "", fmt.Errorf("invalid moment %q (want %q or %q)", s, MomentStart, MomentEnd)
}

// PeriodKind is the rolling window a PeriodStat aggregates over.
type PeriodKind string

const (
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// Date is a calendar day with no time-of-day component.
// It marshals as "2006-01-02" to match the dashboard capture dates.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// Today returns the current calendar day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return Date{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", string(data))
	}
	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// KpiSnapshot is one measurement of the messaging dashboard at one instant.
// At most one snapshot exists per (date, moment) pair; the store enforces it.
type KpiSnapshot struct {
	ID         string    `json:"id"`
	Date       Date      `json:"date"`
	Moment     Moment    `json:"moment"`
	MsgSent    int       `json:"msg_sent"`
	MsgRR      float64   `json:"msg_rr"`
	PhotosSent int       `json:"photos_sent"`
	PhotosRR   float64   `json:"photos_rr"`
	GiftsSent  int       `json:"gifts_sent"`
	GiftsRR    float64   `json:"gifts_rr"`
	SpeedRR    float64   `json:"speed_rr"`
	Note       string    `json:"note,omitempty"`
	ImageURL   string    `json:"image_kpi,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PeriodStat holds the rolling weekly or monthly figures attached to one
// snapshot. At most one row exists per (snapshot, moment, period kind);
// Penalties is constrained to be <= 0.
type PeriodStat struct {
	ID            string     `json:"id"`
	SnapshotID    string     `json:"kpi_daily"`
	Moment        Moment     `json:"moment"`
	Period        PeriodKind `json:"period_type"`
	Responses     int        `json:"responses"`
	KpiEffect     int        `json:"kpi_effect"`
	ExtraBenefits int        `json:"extra_benefits"`
	Penalties     int        `json:"penalties"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Total computes the scored outcome for the period.
func (s *PeriodStat) Total() float64 {
	return float64(s.Responses+s.KpiEffect+s.ExtraBenefits)*0.03 - float64(s.Penalties)
}

// DeltaKPI is the net daily activity between the start and end snapshots.
type DeltaKPI struct {
	Date       Date    `json:"date"`
	MsgSent    int     `json:"msg_sent"`
	MsgRR      float64 `json:"msg_rr"`
	PhotosSent int     `json:"photos_sent"`
	GiftsSent  int     `json:"gifts_sent"`
}

// DeltaPeriod reports one period kind inside a delta report. For the week
// branch Responses is a true end-minus-start delta; the month branch carries
// the end snapshot's raw responses figure (observed behavior, kept as is).
type DeltaPeriod struct {
	Responses     int     `json:"responses"`
	KpiEffect     int     `json:"kpi_effect"`
	ExtraBenefits int     `json:"extra_benefits"`
	Penalties     int     `json:"penalties"`
	Total         float64 `json:"total"`
}

// DeltaStats groups the per-window delta figures.
type DeltaStats struct {
	Week  DeltaPeriod `json:"week"`
	Month DeltaPeriod `json:"month"`
}

// DeltaReport is the transient result of the day-over-day computation.
// It is never persisted.
type DeltaReport struct {
	KPI   DeltaKPI   `json:"delta_kpi"`
	Stats DeltaStats `json:"delta_stats"`
}
