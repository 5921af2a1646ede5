/**
 * Delta calculator
 *
 * Loads the start and end snapshots of a day plus their weekly/monthly
 * period stats, and computes the net daily activity and scored outcome.
 * All six lookups run inside one consistent read view.
 */

package delta

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"

	kpierrors "github.com/chatperf/kpi-ocr/internal/errors"
	"github.com/chatperf/kpi-ocr/internal/models"
	"github.com/chatperf/kpi-ocr/internal/storage"
)

// Calculator computes day-over-day delta reports.
type Calculator struct {
	store storage.Store
}

// NewCalculator wires the storage collaborator.
func NewCalculator(store storage.Store) *Calculator {
	return &Calculator{store: store}
}

// Compute builds the delta report for one date. It fails with a
// SNAPSHOT_NOT_FOUND error when any of the six rows is absent, and with
// ZERO_SENT_WINDOW when no messages were sent between the two captures
// (the response-rate delta would otherwise divide by zero).
func (c *Calculator) Compute(ctx context.Context, date models.Date) (*models.DeltaReport, error) {
	var report *models.DeltaReport

	err := c.store.View(ctx, func(r storage.Reader) error {
		start, err := c.loadSnapshot(ctx, r, date, models.MomentStart)
		if err != nil {
			return err
		}
		end, err := c.loadSnapshot(ctx, r, date, models.MomentEnd)
		if err != nil {
			return err
		}

		startWeek, err := c.loadStat(ctx, r, start, models.PeriodWeek)
		if err != nil {
			return err
		}
		endWeek, err := c.loadStat(ctx, r, end, models.PeriodWeek)
		if err != nil {
			return err
		}
		// The month branch surfaces end-side figures only, but the start
		// row is still a required part of the day's records.
		if _, err := c.loadStat(ctx, r, start, models.PeriodMonth); err != nil {
			return err
		}
		endMonth, err := c.loadStat(ctx, r, end, models.PeriodMonth)
		if err != nil {
			return err
		}

		msgSentDelta := end.MsgSent - start.MsgSent
		weekResponses := endWeek.Responses - startWeek.Responses

		if msgSentDelta == 0 {
			return kpierrors.NewZeroSentWindowError(date.String())
		}

		report = &models.DeltaReport{
			KPI: models.DeltaKPI{
				Date:       date,
				MsgSent:    msgSentDelta,
				MsgRR:      float64(weekResponses*100) / float64(msgSentDelta),
				PhotosSent: end.PhotosSent - start.PhotosSent,
				GiftsSent:  end.GiftsSent - start.GiftsSent,
			},
			Stats: models.DeltaStats{
				Week: models.DeltaPeriod{
					Responses:     weekResponses,
					KpiEffect:     endWeek.KpiEffect,
					ExtraBenefits: endWeek.ExtraBenefits,
					Penalties:     endWeek.Penalties,
					Total:         endWeek.Total(),
				},
				// Month responses is the end snapshot's raw figure, not a
				// delta. Observed behavior, kept as is.
				Month: models.DeltaPeriod{
					Responses:     endMonth.Responses,
					KpiEffect:     endMonth.KpiEffect,
					ExtraBenefits: endMonth.ExtraBenefits,
					Penalties:     endMonth.Penalties,
					Total:         endMonth.Total(),
				},
			},
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("[delta %s] computed: msg=%+d msg_rr=%.1f photos=%+d gifts=%+d",
		date, report.KPI.MsgSent, report.KPI.MsgRR, report.KPI.PhotosSent, report.KPI.GiftsSent)

	return report, nil
}

func (c *Calculator) loadSnapshot(ctx context.Context, r storage.Reader, date models.Date, moment models.Moment) (*models.KpiSnapshot, error) {
	snap, err := r.GetSnapshot(ctx, date, moment)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, kpierrors.NewSnapshotNotFoundError(date.String(), string(moment))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot for %s: %w", moment, date, err)
	}
	return snap, nil
}

func (c *Calculator) loadStat(ctx context.Context, r storage.Reader, snap *models.KpiSnapshot, period models.PeriodKind) (*models.PeriodStat, error) {
	stat, err := r.GetPeriodStat(ctx, snap.ID, snap.Moment, period)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, kpierrors.NewPeriodStatNotFoundError(snap.Date.String(), string(snap.Moment), string(period))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s stats for %s (%s): %w", period, snap.Date, snap.Moment, err)
	}
	return stat, nil
}
