/**
 * In-memory store
 *
 * Same contract as the PostgreSQL store, backed by maps. Used by tests
 * and for running the service without a database.
 */

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatperf/kpi-ocr/internal/models"
)

type snapshotKey struct {
	date   string
	moment models.Moment
}

type statKey struct {
	snapshotID string
	moment     models.Moment
	period     models.PeriodKind
}

// MemoryStore implements Store with in-process maps.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]models.KpiSnapshot
	stats     map[statKey]models.PeriodStat
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[snapshotKey]models.KpiSnapshot),
		stats:     make(map[statKey]models.PeriodStat),
	}
}

func (m *MemoryStore) SaveSnapshot(ctx context.Context, s *models.KpiSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := snapshotKey{date: s.Date.String(), moment: s.Moment}
	if _, exists := m.snapshots[key]; exists {
		return fmt.Errorf("snapshot for %s (%s) %w", s.Date, s.Moment, ErrDuplicate)
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	m.snapshots[key] = *s
	return nil
}

func (m *MemoryStore) SavePeriodStat(ctx context.Context, s *models.PeriodStat) error {
	if s.Penalties > 0 {
		return fmt.Errorf("penalties must be <= 0, got %d", s.Penalties)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := statKey{snapshotID: s.SnapshotID, moment: s.Moment, period: s.Period}
	if _, exists := m.stats[key]; exists {
		return fmt.Errorf("period stat for snapshot %s (%s, %s) %w", s.SnapshotID, s.Moment, s.Period, ErrDuplicate)
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	m.stats[key] = *s
	return nil
}

func (m *MemoryStore) DeleteSnapshot(ctx context.Context, date models.Date, moment models.Moment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := snapshotKey{date: date.String(), moment: moment}
	snap, exists := m.snapshots[key]
	if !exists {
		return ErrNotFound
	}
	delete(m.snapshots, key)

	// cascade like the schema does
	for k := range m.stats {
		if k.snapshotID == snap.ID {
			delete(m.stats, k)
		}
	}
	return nil
}

func (m *MemoryStore) GetSnapshot(ctx context.Context, date models.Date, moment models.Moment) (*models.KpiSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSnapshotLocked(date, moment)
}

func (m *MemoryStore) ListSnapshots(ctx context.Context) ([]models.KpiSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSnapshotsLocked()
}

func (m *MemoryStore) GetPeriodStat(ctx context.Context, snapshotID string, moment models.Moment, period models.PeriodKind) (*models.PeriodStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPeriodStatLocked(snapshotID, moment, period)
}

// View holds the read lock for the duration of fn, which gives the same
// consistent-view guarantee as the read-only transaction in postgres.
func (m *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(memReader{store: m})
}

func (m *MemoryStore) getSnapshotLocked(date models.Date, moment models.Moment) (*models.KpiSnapshot, error) {
	snap, exists := m.snapshots[snapshotKey{date: date.String(), moment: moment}]
	if !exists {
		return nil, ErrNotFound
	}
	out := snap
	return &out, nil
}

func (m *MemoryStore) listSnapshotsLocked() ([]models.KpiSnapshot, error) {
	out := make([]models.KpiSnapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].Moment < out[j].Moment
	})
	return out, nil
}

func (m *MemoryStore) getPeriodStatLocked(snapshotID string, moment models.Moment, period models.PeriodKind) (*models.PeriodStat, error) {
	stat, exists := m.stats[statKey{snapshotID: snapshotID, moment: moment, period: period}]
	if !exists {
		return nil, ErrNotFound
	}
	out := stat
	return &out, nil
}

// memReader reads without re-acquiring the lock View already holds.
type memReader struct {
	store *MemoryStore
}

func (r memReader) GetSnapshot(ctx context.Context, date models.Date, moment models.Moment) (*models.KpiSnapshot, error) {
	return r.store.getSnapshotLocked(date, moment)
}

func (r memReader) ListSnapshots(ctx context.Context) ([]models.KpiSnapshot, error) {
	return r.store.listSnapshotsLocked()
}

func (r memReader) GetPeriodStat(ctx context.Context, snapshotID string, moment models.Moment, period models.PeriodKind) (*models.PeriodStat, error) {
	return r.store.getPeriodStatLocked(snapshotID, moment, period)
}
