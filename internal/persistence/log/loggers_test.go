package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"voxelfield.ai/internal/sim/world"
)

func TestJSONLZstdWriter_RotatesByHour(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "camera")
	at := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	for i := 0; i < 3; i++ {
		if err := w.Write(world.TickLogEntry{Tick: uint64(i + 1)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(world.TickLogEntry{Tick: 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := w.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{
		filepath.Join(dir, "camera-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "camera-2026-03-01-11.jsonl.zst"),
	}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files: got %v want %v", files, want)
	}

	var ticks []uint64
	for _, f := range files {
		err := ReadJSONL(f, func(raw json.RawMessage) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return err
			}
			ticks = append(ticks, e.Tick)
			return nil
		})
		if err != nil {
			t.Fatalf("ReadJSONL %s: %v", f, err)
		}
	}
	if len(ticks) != 4 || ticks[0] != 1 || ticks[3] != 4 {
		t.Fatalf("ticks: got %v", ticks)
	}
}

func TestJSONLZstdWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "bakes")
		w.now = func() time.Time { return at }
		if err := w.Write(BakeEntry{Size: i + 1}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	n := 0
	err := ReadJSONL(filepath.Join(dir, "bakes-2026-03-01-10.jsonl.zst"), func(json.RawMessage) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if n != 2 {
		t.Fatalf("lines: got %d want 2", n)
	}
}

func TestTickLogger_Flush(t *testing.T) {
	l := NewTickLogger(t.TempDir())
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush before write: %v", err)
	}
	if err := l.WriteTick(world.TickLogEntry{Tick: 1, Captured: true}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, err := l.Files()
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
}
