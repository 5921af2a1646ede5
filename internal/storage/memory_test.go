/**
 * In-memory store tests
 *
 * The memory store mirrors the PostgreSQL contract, so these tests also
 * document the behavior the rest of the code relies on: round-trip
 * fidelity, list ordering, uniqueness, and cascade deletion.
 */

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/chatperf/kpi-ocr/internal/models"
)

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap := &models.KpiSnapshot{
		Date:       date(t, "2026-08-28"),
		Moment:     models.MomentStart,
		MsgSent:    1340,
		MsgRR:      65.5,
		PhotosSent: 34,
		PhotosRR:   71,
		GiftsSent:  12,
		GiftsRR:    55,
		SpeedRR:    95,
		Note:       "morning capture",
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if snap.ID == "" {
		t.Fatal("save did not assign an ID")
	}

	got, err := store.GetSnapshot(ctx, snap.Date, snap.Moment)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MsgSent != 1340 || got.MsgRR != 65.5 || got.PhotosSent != 34 ||
		got.GiftsSent != 12 || got.SpeedRR != 95 || got.Note != "morning capture" {
		t.Errorf("round trip changed values: %+v", got)
	}

	all, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != snap.ID || all[0].MsgSent != 1340 {
		t.Errorf("list does not include the persisted record: %+v", all)
	}
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, row := range []struct {
		d string
		m models.Moment
	}{
		{"2026-08-27", models.MomentStart},
		{"2026-08-28", models.MomentStart},
		{"2026-08-28", models.MomentEnd},
		{"2026-08-26", models.MomentEnd},
	} {
		err := store.SaveSnapshot(ctx, &models.KpiSnapshot{Date: date(t, row.d), Moment: row.m})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Date descending, moment ascending within a date.
	want := []struct {
		d string
		m models.Moment
	}{
		{"2026-08-28", models.MomentEnd},
		{"2026-08-28", models.MomentStart},
		{"2026-08-27", models.MomentStart},
		{"2026-08-26", models.MomentEnd},
	}
	if len(all) != len(want) {
		t.Fatalf("got %d rows, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Date.String() != w.d || all[i].Moment != w.m {
			t.Errorf("position %d = (%s, %s), want (%s, %s)", i, all[i].Date, all[i].Moment, w.d, w.m)
		}
	}
}

func TestDuplicateSnapshotRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := date(t, "2026-08-28")

	if err := store.SaveSnapshot(ctx, &models.KpiSnapshot{Date: d, Moment: models.MomentStart}); err != nil {
		t.Fatal(err)
	}
	err := store.SaveSnapshot(ctx, &models.KpiSnapshot{Date: d, Moment: models.MomentStart})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Same date, other moment is fine.
	if err := store.SaveSnapshot(ctx, &models.KpiSnapshot{Date: d, Moment: models.MomentEnd}); err != nil {
		t.Errorf("other moment should be accepted: %v", err)
	}
}

func TestPeriodStatConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap := &models.KpiSnapshot{Date: date(t, "2026-08-28"), Moment: models.MomentStart}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	stat := &models.PeriodStat{SnapshotID: snap.ID, Moment: snap.Moment, Period: models.PeriodWeek, Responses: 10, Penalties: -2}
	if err := store.SavePeriodStat(ctx, stat); err != nil {
		t.Fatalf("save stat: %v", err)
	}

	dup := &models.PeriodStat{SnapshotID: snap.ID, Moment: snap.Moment, Period: models.PeriodWeek}
	if err := store.SavePeriodStat(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	positive := &models.PeriodStat{SnapshotID: snap.ID, Moment: snap.Moment, Period: models.PeriodMonth, Penalties: 3}
	if err := store.SavePeriodStat(ctx, positive); err == nil {
		t.Error("positive penalties should be rejected")
	}

	got, err := store.GetPeriodStat(ctx, snap.ID, snap.Moment, models.PeriodWeek)
	if err != nil {
		t.Fatalf("get stat: %v", err)
	}
	if got.Responses != 10 || got.Penalties != -2 {
		t.Errorf("round trip changed values: %+v", got)
	}
}

func TestDeleteSnapshotCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := date(t, "2026-08-28")

	snap := &models.KpiSnapshot{Date: d, Moment: models.MomentStart}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	stat := &models.PeriodStat{SnapshotID: snap.ID, Moment: snap.Moment, Period: models.PeriodWeek}
	if err := store.SavePeriodStat(ctx, stat); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteSnapshot(ctx, d, models.MomentStart); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetSnapshot(ctx, d, models.MomentStart); !errors.Is(err, ErrNotFound) {
		t.Errorf("snapshot should be gone, got %v", err)
	}
	if _, err := store.GetPeriodStat(ctx, snap.ID, snap.Moment, models.PeriodWeek); !errors.Is(err, ErrNotFound) {
		t.Errorf("stats should cascade, got %v", err)
	}

	if err := store.DeleteSnapshot(ctx, d, models.MomentStart); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestViewConsistency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := date(t, "2026-08-28")

	snap := &models.KpiSnapshot{Date: d, Moment: models.MomentStart, MsgSent: 100}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	err := store.View(ctx, func(r Reader) error {
		got, err := r.GetSnapshot(ctx, d, models.MomentStart)
		if err != nil {
			return err
		}
		if got.MsgSent != 100 {
			t.Errorf("view read = %+v", got)
		}
		all, err := r.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		if len(all) != 1 {
			t.Errorf("view list = %d rows", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
