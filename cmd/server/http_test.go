package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

type countingTickLogger struct{ n int }

func (c *countingTickLogger) WriteTick(world.TickLogEntry) error {
	c.n++
	return nil
}

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	vol, err := store.NewVolume(4, 0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	cfg, err := world.ConfigFromTuning(tuning.Defaults(), vol)
	if err != nil {
		t.Fatalf("ConfigFromTuning: %v", err)
	}
	w, err := world.New(cfg, vol)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestMux_HealthzAndMetrics(t *testing.T) {
	w := newTestWorld(t)
	w.StepOnce()
	mux := newMux(w, muxOptions{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"voxelfield_tick 1\n", "voxelfield_clients 0\n", "voxelfield_volume_size 4\n", `voxelfield_camera_eye{axis="y"}`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "voxelfield_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}
}

func TestMux_VolumeRoute(t *testing.T) {
	w := newTestWorld(t)
	mux := newMux(w, muxOptions{}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/volume", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 2*4*4*4 {
		t.Fatalf("volume: %d len=%d", rec.Code, rec.Body.Len())
	}
}

func TestMultiTickLogger_FansOut(t *testing.T) {
	a, b := &countingTickLogger{}, &countingTickLogger{}
	m := multiTickLogger{a: a, b: b}
	_ = m.WriteTick(world.TickLogEntry{Tick: 1})
	_ = multiTickLogger{a: a}.WriteTick(world.TickLogEntry{Tick: 2})
	if a.n != 2 || b.n != 1 {
		t.Fatalf("fan out: a=%d b=%d", a.n, b.n)
	}
}
