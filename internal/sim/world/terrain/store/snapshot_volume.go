package store

import (
	"fmt"

	snapv1 "voxelfield.ai/internal/persistence/snapshot"
)

// ExportVolume copies the volume into a snapshot record. Seed and solver
// metadata are filled in by the caller.
func ExportVolume(v *Volume, configHash string) snapv1.VolumeV1 {
	data := make([]byte, len(v.Data))
	copy(data, v.Data)
	return snapv1.VolumeV1{
		Header: snapv1.Header{
			Version:    snapv1.Version,
			ConfigHash: configHash,
			Digest:     v.DigestHex(),
			Size:       v.Size,
		},
		Size:   v.Size,
		Format: Format,
		Data:   data,
	}
}

// ImportVolume rebuilds a volume from a snapshot, checking shape and digest.
func ImportVolume(snap snapv1.VolumeV1, maxSize int) (*Volume, error) {
	if snap.Format != "" && snap.Format != Format {
		return nil, fmt.Errorf("snapshot format mismatch: got %s want %s", snap.Format, Format)
	}
	v, err := NewVolume(snap.Size, maxSize)
	if err != nil {
		return nil, err
	}
	if len(snap.Data) != len(v.Data) {
		return nil, fmt.Errorf("snapshot data length mismatch: got %d want %d", len(snap.Data), len(v.Data))
	}
	copy(v.Data, snap.Data)
	v.Touch()
	if snap.Header.Digest != "" && snap.Header.Digest != v.DigestHex() {
		return nil, fmt.Errorf("snapshot digest mismatch: got %s want %s", v.DigestHex(), snap.Header.Digest)
	}
	return v, nil
}
