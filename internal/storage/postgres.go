/**
 * PostgreSQL store for KPI snapshots and period stats
 *
 * Hand-written SQL over database/sql with lib/pq. The (date, moment)
 * and (snapshot, moment, period) uniqueness invariants live in the
 * schema; period stats cascade-delete with their snapshot.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chatperf/kpi-ocr/internal/models"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	pgReader
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// NewPostgresStore connects, tunes the pool, and verifies connectivity.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, pgReader: pgReader{q: db}}, nil
}

// EnsureSchema creates the two tables when they do not exist yet.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kpi_daily (
			id UUID PRIMARY KEY,
			date DATE NOT NULL,
			moment TEXT NOT NULL CHECK (moment IN ('start', 'end')),
			msg_sent INTEGER NOT NULL DEFAULT 0,
			msg_rr DOUBLE PRECISION NOT NULL,
			photos_sent INTEGER NOT NULL DEFAULT 0,
			photos_rr DOUBLE PRECISION NOT NULL,
			gifts_sent INTEGER NOT NULL DEFAULT 0,
			gifts_rr DOUBLE PRECISION NOT NULL,
			speed_rr DOUBLE PRECISION NOT NULL,
			note TEXT,
			image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (date, moment)
		)`,
		`CREATE TABLE IF NOT EXISTS stats_period (
			id UUID PRIMARY KEY,
			kpi_daily_id UUID NOT NULL REFERENCES kpi_daily(id) ON DELETE CASCADE,
			moment TEXT NOT NULL CHECK (moment IN ('start', 'end')),
			period_type TEXT NOT NULL CHECK (period_type IN ('week', 'month')),
			responses INTEGER NOT NULL DEFAULT 0,
			kpi_effect INTEGER NOT NULL DEFAULT 0,
			extra_benefits INTEGER NOT NULL DEFAULT 0,
			penalties INTEGER NOT NULL DEFAULT 0 CHECK (penalties <= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (kpi_daily_id, moment, period_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_period_type ON stats_period (period_type)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveSnapshot inserts a new snapshot. Uniqueness of (date, moment) is
// enforced by the schema; a duplicate comes back as a descriptive error.
func (p *PostgresStore) SaveSnapshot(ctx context.Context, s *models.KpiSnapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO kpi_daily (
			id, date, moment,
			msg_sent, msg_rr, photos_sent, photos_rr,
			gifts_sent, gifts_rr, speed_rr,
			note, image_url, created_at, updated_at
		) VALUES (
			$1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			NULLIF($11, ''), NULLIF($12, ''), NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := p.db.QueryRowContext(
		ctx, query,
		s.ID, s.Date.Time, string(s.Moment),
		s.MsgSent, s.MsgRR, s.PhotosSent, s.PhotosRR,
		s.GiftsSent, s.GiftsRR, s.SpeedRR,
		s.Note, s.ImageURL,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("snapshot for %s (%s) %w", s.Date, s.Moment, ErrDuplicate)
		}
		return fmt.Errorf("failed to save snapshot (%s %s): %w", s.Date, s.Moment, err)
	}

	return nil
}

// SavePeriodStat inserts a new period stat row.
func (p *PostgresStore) SavePeriodStat(ctx context.Context, s *models.PeriodStat) error {
	if s.Penalties > 0 {
		return fmt.Errorf("penalties must be <= 0, got %d", s.Penalties)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO stats_period (
			id, kpi_daily_id, moment, period_type,
			responses, kpi_effect, extra_benefits, penalties,
			created_at, updated_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := p.db.QueryRowContext(
		ctx, query,
		s.ID, s.SnapshotID, string(s.Moment), string(s.Period),
		s.Responses, s.KpiEffect, s.ExtraBenefits, s.Penalties,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("period stat for snapshot %s (%s, %s) %w", s.SnapshotID, s.Moment, s.Period, ErrDuplicate)
		}
		return fmt.Errorf("failed to save period stat: %w", err)
	}

	return nil
}

// DeleteSnapshot removes one snapshot; stats_period rows cascade.
func (p *PostgresStore) DeleteSnapshot(ctx context.Context, date models.Date, moment models.Moment) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM kpi_daily WHERE date = $1 AND moment = $2`,
		date.Time, string(moment))
	if err != nil {
		return fmt.Errorf("failed to delete snapshot (%s %s): %w", date, moment, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// View runs fn inside one read-only transaction so the grouped lookups
// observe a consistent state. No write concurrency control is needed on
// this path.
func (p *PostgresStore) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(pgReader{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// pgReader implements Reader over either the pool or a transaction.
type pgReader struct {
	q queryer
}

const snapshotColumns = `
	id, date, moment,
	msg_sent, msg_rr, photos_sent, photos_rr,
	gifts_sent, gifts_rr, speed_rr,
	note, image_url, created_at, updated_at
`

func (r pgReader) GetSnapshot(ctx context.Context, date models.Date, moment models.Moment) (*models.KpiSnapshot, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM kpi_daily WHERE date = $1 AND moment = $2`,
		date.Time, string(moment))

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot (%s %s): %w", date, moment, err)
	}
	return snap, nil
}

func (r pgReader) ListSnapshots(ctx context.Context) ([]models.KpiSnapshot, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM kpi_daily ORDER BY date DESC, moment ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.KpiSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

func (r pgReader) GetPeriodStat(ctx context.Context, snapshotID string, moment models.Moment, period models.PeriodKind) (*models.PeriodStat, error) {
	var stat models.PeriodStat
	err := r.q.QueryRowContext(ctx, `
		SELECT id, kpi_daily_id, moment, period_type,
			responses, kpi_effect, extra_benefits, penalties,
			created_at, updated_at
		FROM stats_period
		WHERE kpi_daily_id = $1::uuid AND moment = $2 AND period_type = $3`,
		snapshotID, string(moment), string(period),
	).Scan(
		&stat.ID, &stat.SnapshotID, &stat.Moment, &stat.Period,
		&stat.Responses, &stat.KpiEffect, &stat.ExtraBenefits, &stat.Penalties,
		&stat.CreatedAt, &stat.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period stat (%s, %s, %s): %w", snapshotID, moment, period, err)
	}
	return &stat, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(s scanner) (*models.KpiSnapshot, error) {
	var (
		snap     models.KpiSnapshot
		date     time.Time
		note     sql.NullString
		imageURL sql.NullString
	)

	err := s.Scan(
		&snap.ID, &date, &snap.Moment,
		&snap.MsgSent, &snap.MsgRR, &snap.PhotosSent, &snap.PhotosRR,
		&snap.GiftsSent, &snap.GiftsRR, &snap.SpeedRR,
		&note, &imageURL, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.Date = models.Date{Time: date}
	snap.Note = note.String
	snap.ImageURL = imageURL.String
	return &snap, nil
}
