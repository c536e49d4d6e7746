package main

import (
	"testing"

	"voxelfield.ai/internal/sim/world/terrain/store"
)

func TestRenderSlice(t *testing.T) {
	vol, err := store.NewVolume(3, 0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	vol.SetCell(vol.Index(0, 1, 0), 255, 2)
	vol.SetCell(vol.Index(1, 1, 0), 100, 0)
	vol.SetCell(vol.Index(2, 1, 0), 0, 4)
	vol.SetCell(vol.Index(0, 1, 2), 0, 200)

	got := renderSlice(vol, 1)
	want := "#+4\n000\n900\n"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}
