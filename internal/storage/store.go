/**
 * Storage collaborator contract
 *
 * Exact-match lookups by natural key, list-all, and persistence for
 * snapshots and period stats. Lookups return ErrNotFound rather than
 * best-effort results.
 */

package storage

import (
	"context"
	"errors"

	"github.com/chatperf/kpi-ocr/internal/models"
)

// ErrNotFound is returned by exact-match lookups with no stored row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a save would violate an at-most-one
// invariant: (date, moment) for snapshots, (snapshot, moment, period)
// for period stats.
var ErrDuplicate = errors.New("already exists")

// Reader is the read-only view of the store.
type Reader interface {
	// GetSnapshot looks up the snapshot for one (date, moment) pair.
	GetSnapshot(ctx context.Context, date models.Date, moment models.Moment) (*models.KpiSnapshot, error)

	// ListSnapshots returns every snapshot, date descending then moment ascending.
	ListSnapshots(ctx context.Context) ([]models.KpiSnapshot, error)

	// GetPeriodStat looks up the stat row for one (snapshot, moment, period) triple.
	GetPeriodStat(ctx context.Context, snapshotID string, moment models.Moment, period models.PeriodKind) (*models.PeriodStat, error)
}

// Store is the full storage collaborator.
type Store interface {
	Reader

	// SaveSnapshot persists a new snapshot, assigning its ID when empty.
	// A second snapshot for the same (date, moment) is rejected.
	SaveSnapshot(ctx context.Context, s *models.KpiSnapshot) error

	// SavePeriodStat persists a new period stat row, assigning its ID when
	// empty. A second row for the same (snapshot, moment, period) is rejected.
	SavePeriodStat(ctx context.Context, s *models.PeriodStat) error

	// DeleteSnapshot removes a snapshot and, with it, its period stats.
	DeleteSnapshot(ctx context.Context, date models.Date, moment models.Moment) error

	// View runs fn against a consistent read-only view, so a group of
	// lookups (the delta calculator does six) observes one state.
	View(ctx context.Context, fn func(Reader) error) error
}
