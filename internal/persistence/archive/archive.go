// Package archive pins bakes outside the cache directory so a forced rebake
// of the same configuration does not overwrite them.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voxelfield.ai/internal/persistence/snapshot"
)

type Meta struct {
	ConfigHash  string `json:"config_hash"`
	Digest      string `json:"digest"`
	Seed        int64  `json:"seed"`
	Size        int    `json:"size"`
	LightPasses int    `json:"light_passes"`
	Solver      string `json:"solver"`
	BakeMillis  int64  `json:"bake_ms"`
	Snapshot    string `json:"snapshot"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at"`
}

// PinBake copies the bake at snapshotPath into
// dataDir/archives/<config_hash>/<digest12>.vol.zst next to a meta file, and
// returns the archived path. Pinning the same digest twice is a no-op.
func PinBake(dataDir, snapshotPath string) (string, Meta, error) {
	snap, err := snapshot.ReadSnapshot(snapshotPath)
	if err != nil {
		return "", Meta{}, err
	}
	h := snap.Header
	if h.ConfigHash == "" || len(h.Digest) < 12 {
		return "", Meta{}, fmt.Errorf("bake %s has no config hash or digest", snapshotPath)
	}

	dir := filepath.Join(dataDir, "archives", h.ConfigHash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", Meta{}, err
	}
	base := h.Digest[:12]
	dst := filepath.Join(dir, base+".vol.zst")
	meta := Meta{
		ConfigHash:  h.ConfigHash,
		Digest:      h.Digest,
		Seed:        snap.Seed,
		Size:        snap.Size,
		LightPasses: snap.LightPasses,
		Solver:      snap.Solver,
		BakeMillis:  snap.BakeMillis,
		Snapshot:    filepath.Base(dst),
		Source:      snapshotPath,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, meta, nil
	}

	if err := copyFile(snapshotPath, dst); err != nil {
		return "", Meta{}, err
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", Meta{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, base+".meta.json"), b, 0o644); err != nil {
		return "", Meta{}, err
	}
	return dst, meta, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
