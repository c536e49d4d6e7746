package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelfield.ai/internal/persistence/indexdb"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	Close() error
	RecordBake(r indexdb.BakeRecord)
	UpsertTuning(ctx context.Context, t tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "field.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported VF_INDEX_BACKEND: %s", backend)
	}
}
