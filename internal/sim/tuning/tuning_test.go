package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDefaults_Validate(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if d.Field.Size != 256 || d.Field.LightPasses != 16 || d.Field.Cave.Cutoff != 0.65 {
		t.Fatalf("unexpected defaults: %+v", d.Field)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	p := writeTuning(t, `
field:
  size: 64
  solver: double_buffer
  cave:
    frequency: 0.08
camera:
  speed: 4
`)
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Field.Size != 64 || got.Field.Solver != SolverDoubleBuffer {
		t.Fatalf("field not applied: %+v", got.Field)
	}
	if got.Field.Cave.Frequency != 0.08 || got.Field.Cave.Cutoff != 0.65 || !got.Field.Cave.EnableRange {
		t.Fatalf("cave overlay wrong: %+v", got.Field.Cave)
	}
	if got.Camera.Speed != 4 || got.Camera.TickRateHz != 60 {
		t.Fatalf("camera overlay wrong: %+v", got.Camera)
	}
	if len(got.Cameras) != 1 {
		t.Fatalf("default camera lost: %d", len(got.Cameras))
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "field:\n  sizee: 4\n",
		"bad solver":    "field:\n  solver: jacobi\n",
		"zero viewport": "camera:\n  viewport:\n    width: 0\n    height: 10\n",
		"short spawn":   "cameras:\n  - spawn: [1, 2]\n",
		"string size":   "field:\n  size: big\n",
	}
	for name, body := range cases {
		if _, err := Load(writeTuning(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_CameraCount(t *testing.T) {
	for _, body := range []string{
		"cameras: []\n",
		"cameras:\n  - spawn: [0, 0, 0]\n  - spawn: [1, 1, 1]\n",
	} {
		_, err := Load(writeTuning(t, body))
		if !errors.Is(err, ErrCameraCount) {
			t.Fatalf("expected ErrCameraCount, got %v", err)
		}
	}
}

func TestValidate_SizeBound(t *testing.T) {
	tn := Defaults()
	tn.Field.Size = 1024
	if err := tn.Validate(); !errors.Is(err, ErrBadField) {
		t.Fatalf("expected ErrBadField, got %v", err)
	}
	tn.Field.Size = 0
	if err := tn.Validate(); !errors.Is(err, ErrBadField) {
		t.Fatalf("expected ErrBadField, got %v", err)
	}
}

func TestFieldHash(t *testing.T) {
	a := Defaults().Field
	b := a
	b.Workers = 12
	b.MaxSize = 64
	if a.Hash() != b.Hash() {
		t.Fatalf("workers/max_size must not affect the hash")
	}
	b.Cave.Cutoff = 0.7
	if a.Hash() == b.Hash() {
		t.Fatalf("cutoff must affect the hash")
	}
}
