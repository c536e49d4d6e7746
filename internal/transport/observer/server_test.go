package observer

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"

	simenc "voxelfield.ai/internal/sim/encoding"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

func newTestServer(t *testing.T) (*Server, *store.Volume) {
	t.Helper()
	vol, err := store.NewVolume(8, 0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	for i := 0; i < vol.Cells(); i++ {
		if _, y, _ := vol.Coords(i); y < 3 {
			vol.SetCell(i, 255, 2)
		} else {
			vol.SetCell(i, 0, uint8(y))
		}
	}
	cfg, err := world.ConfigFromTuning(tuning.Defaults(), vol)
	if err != nil {
		t.Fatalf("ConfigFromTuning: %v", err)
	}
	w, err := world.New(cfg, vol)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewServer(w, nil), vol
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestVolumeHandler_Raw(t *testing.T) {
	s, vol := newTestServer(t)
	rec := get(t, s.VolumeHandler(), "/v1/volume")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), vol.Data) {
		t.Fatalf("body differs from volume data")
	}
	if got := rec.Header().Get("X-Volume-Size"); got != strconv.Itoa(8) {
		t.Fatalf("size header: %q", got)
	}
	if got := rec.Header().Get("X-Volume-Digest"); got != vol.DigestHex() {
		t.Fatalf("digest header: %q", got)
	}
}

func TestVolumeHandler_RLE(t *testing.T) {
	s, vol := newTestServer(t)
	rec := get(t, s.VolumeHandler(), "/v1/volume?encoding=rle")
	var resp RLEVolume
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cells, err := simenc.DecodeCells(resp.Cells, vol.Cells())
	if err != nil {
		t.Fatalf("DecodeCells: %v", err)
	}
	if !bytes.Equal(cells, vol.Data) || resp.Format != store.Format {
		t.Fatalf("rle payload mismatch")
	}
}

func TestVolumeHandler_Zstd(t *testing.T) {
	s, vol := newTestServer(t)
	rec := get(t, s.VolumeHandler(), "/v1/volume?encoding=zstd")
	dec, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(raw, vol.Data) {
		t.Fatalf("zstd payload mismatch")
	}
}

func TestVolumeHandler_Rejects(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := get(t, s.VolumeHandler(), "/v1/volume?encoding=gzip"); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown encoding: got %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	s.VolumeHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/volume", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST: got %d", rec.Code)
	}
	s.LoopbackOnly = true
	req := httptest.NewRequest(http.MethodGet, "/v1/volume", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	rec = httptest.NewRecorder()
	s.VolumeHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote: got %d", rec.Code)
	}
}

func TestBootstrapHandler(t *testing.T) {
	s, vol := newTestServer(t)
	rec := get(t, s.BootstrapHandler(), "/v1/field")
	var resp BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Volume.Size != 8 || resp.Volume.Digest != vol.DigestHex() || resp.Camera.TickRateHz != 60 {
		t.Fatalf("unexpected bootstrap: %+v", resp)
	}
	if resp.Basis.Forward != [3]float32{0, 0, 1} {
		t.Fatalf("initial forward: %v", resp.Basis.Forward)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}
