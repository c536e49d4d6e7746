package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "abc123")

	data := make([]byte, 2*4*4*4)
	for i := range data {
		data[i] = byte(i * 7)
	}
	in := VolumeV1{
		Header:      Header{Version: Version, ConfigHash: "abc123", Digest: "d", Size: 4},
		Seed:        99,
		Size:        4,
		Format:      "RG8Uint",
		LightPasses: 16,
		Solver:      "in_place",
		Data:        data,
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.ConfigHash != "abc123" || h.Size != 4 {
		t.Fatalf("unexpected header: %+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Seed != 99 || out.Size != 4 || out.LightPasses != 16 || out.Solver != "in_place" {
		t.Fatalf("unexpected snapshot fields: %+v", out.Header)
	}
	if !bytes.Equal(out.Data, data) {
		t.Fatalf("data mismatch")
	}
}

func TestReadSnapshot_RejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.vol.zst")
	if err := WriteSnapshot(path, VolumeV1{Header: Header{Version: 7}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
