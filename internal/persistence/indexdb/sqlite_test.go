package indexdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteIndex_LatestBake(t *testing.T) {
	s := openTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.LatestBake(ctx, "h1"); !errors.Is(err, ErrNoBake) {
		t.Fatalf("empty index: got %v", err)
	}

	s.RecordBake(BakeRecord{ConfigHash: "h1", Size: 64, Digest: "old", Solver: "in_place", Path: "/a"})
	s.RecordBake(BakeRecord{ConfigHash: "h1", Size: 64, Digest: "new", Solver: "in_place", Path: "/b", Millis: 12})
	s.RecordBake(BakeRecord{ConfigHash: "h1", Size: 64, Digest: "hit", Cached: true})
	s.RecordBake(BakeRecord{ConfigHash: "h2", Size: 8, Digest: "other"})
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := s.LatestBake(ctx, "h1")
	if err != nil {
		t.Fatalf("LatestBake: %v", err)
	}
	if got.Digest != "new" || got.Path != "/b" || got.Millis != 12 || got.Cached {
		t.Fatalf("unexpected bake: %+v", got)
	}
	if got.RecordedAt == "" {
		t.Fatalf("recorded_at not stamped")
	}
}

func TestSQLiteIndex_WriteTick(t *testing.T) {
	s := openTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 1; i <= 5; i++ {
		_ = s.WriteTick(world.TickLogEntry{Tick: uint64(i), Captured: i%2 == 0, Eye: [3]float32{1, 2, float32(i)}})
	}
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	var n int
	var z float64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(eye_z) FROM camera_ticks`).Scan(&n, &z); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 5 || z != 5 {
		t.Fatalf("got count=%d max_z=%v", n, z)
	}
}

func TestSQLiteIndex_UpsertTuning(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	tn := tuning.Defaults()
	if err := s.UpsertTuning(ctx, tn); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	if err := s.UpsertTuning(ctx, tn); err != nil {
		t.Fatalf("UpsertTuning again: %v", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tunings WHERE config_hash=?`, tn.Field.Hash()).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 {
		t.Fatalf("tunings rows: got %d want 1", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	s.RecordBake(BakeRecord{ConfigHash: "h"})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropBakeTotal != 1 {
		t.Fatalf("DropBakeTotal=%d want=1", st.DropBakeTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_ClosedIsNoop(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = s.WriteTick(world.TickLogEntry{Tick: 1})
	s.RecordBake(BakeRecord{})
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync after close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
