// Package bakecache reuses a previously baked volume when the field
// configuration has not changed, and bakes (and stores) a fresh one when it
// has.
package bakecache

import (
	"fmt"
	"os"
	"time"

	"voxelfield.ai/internal/persistence/indexdb"
	persistlog "voxelfield.ai/internal/persistence/log"
	"voxelfield.ai/internal/persistence/snapshot"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world/terrain/gen"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

type Recorder interface {
	RecordBake(r indexdb.BakeRecord)
}

type Journal interface {
	WriteBake(e persistlog.BakeEntry) error
}

// Uploader receives the path of every freshly written bake.
type Uploader interface {
	Enqueue(localPath string)
}

type Options struct {
	DataDir string
	// Force skips the cache lookup and always bakes.
	Force bool
	// NoWrite bakes without storing the snapshot.
	NoWrite bool

	Index   Recorder // optional
	Journal Journal  // optional
	Mirror  Uploader // optional
}

type Result struct {
	Volume     *store.Volume
	ConfigHash string
	Path       string
	Cached     bool
	Millis     int64
	Stats      store.Stats
}

// LoadOrBake returns the volume for f, from the snapshot cache when a
// matching bake exists.
func LoadOrBake(f tuning.Field, opts Options) (Result, error) {
	hash := f.Hash()
	res := Result{ConfigHash: hash}
	if opts.DataDir != "" {
		res.Path = snapshot.PathFor(opts.DataDir, hash)
	}

	if !opts.Force && res.Path != "" {
		vol, err := load(res.Path, hash, f.MaxSize)
		switch {
		case err == nil:
			res.Volume = vol
			res.Cached = true
			res.Stats = vol.Stats()
			record(f, res, opts)
			return res, nil
		case os.IsNotExist(err):
		default:
			// A corrupt or stale cache entry is rebuilt, not fatal.
		}
	}

	start := time.Now()
	vol, err := gen.Generate(f)
	if err != nil {
		return res, err
	}
	res.Volume = vol
	res.Millis = time.Since(start).Milliseconds()
	res.Stats = vol.Stats()

	if res.Path != "" && !opts.NoWrite {
		snap := store.ExportVolume(vol, hash)
		snap.Seed = f.Height.Seed
		snap.LightPasses = f.LightPasses
		snap.Solver = solverName(f.Solver)
		snap.BakeMillis = res.Millis
		if err := snapshot.WriteSnapshot(res.Path, snap); err != nil {
			return res, fmt.Errorf("write bake: %w", err)
		}
		if opts.Mirror != nil {
			opts.Mirror.Enqueue(res.Path)
		}
	} else {
		res.Path = ""
	}
	record(f, res, opts)
	return res, nil
}

func load(path, hash string, maxSize int) (*store.Volume, error) {
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		return nil, err
	}
	if h.ConfigHash != hash {
		return nil, fmt.Errorf("bake %s has config hash %s", path, h.ConfigHash)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return store.ImportVolume(snap, maxSize)
}

func record(f tuning.Field, res Result, opts Options) {
	if opts.Index != nil {
		opts.Index.RecordBake(indexdb.BakeRecord{
			ConfigHash: res.ConfigHash,
			Seed:       f.Height.Seed,
			Size:       f.Size,
			Passes:     f.LightPasses,
			Solver:     solverName(f.Solver),
			Digest:     res.Volume.DigestHex(),
			Solid:      res.Stats.Solid,
			Open:       res.Stats.Open,
			MaxLight:   int(res.Stats.MaxLight),
			Millis:     res.Millis,
			Path:       res.Path,
			Cached:     res.Cached,
		})
	}
	if opts.Journal != nil {
		_ = opts.Journal.WriteBake(persistlog.BakeEntry{
			At:         time.Now().UTC(),
			ConfigHash: res.ConfigHash,
			Digest:     res.Volume.DigestHex(),
			Size:       f.Size,
			Solid:      res.Stats.Solid,
			MaxLight:   int(res.Stats.MaxLight),
			Millis:     res.Millis,
			Cached:     res.Cached,
			Path:       res.Path,
		})
	}
}

func solverName(s string) string {
	if s == "" {
		return tuning.SolverInPlace
	}
	return s
}
