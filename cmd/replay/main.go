package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "voxelfield.ai/internal/persistence/log"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

// replay re-runs recorded camera traces through the tick function and checks
// that every reproduced eye and forward vector matches the recording.
func main() {
	var (
		traceDir   = flag.String("trace", "./data/trace", "trace dir containing camera-*.jsonl.zst")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in defaults)")
		size       = flag.Int("size", 0, "override field.size, which bounds the camera (match the server's -size)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tune := tuning.Defaults()
	if p := strings.TrimSpace(*tuningPath); p != "" {
		t, err := tuning.Load(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = t
	}
	if *size > 0 {
		tune.Field.Size = *size
	}

	files, err := listTraceFiles(*traceDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list trace:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no trace files found in", *traceDir)
		os.Exit(1)
	}

	r := &replayer{tune: tune, toTick: *toTick}
	for _, path := range files {
		if err := r.replayFile(path); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: runs=%d checked=%d ticks\n", r.runs, r.checked)
}

type replayer struct {
	tune   tuning.Tuning
	toTick uint64

	w       *world.World
	runs    int
	checked uint64
}

// reset starts a fresh server run. Camera ticks never read voxel contents,
// so an empty volume of the configured size stands in for the bake.
func (r *replayer) reset() error {
	vol, err := store.NewVolume(r.tune.Field.Size, r.tune.Field.MaxSize)
	if err != nil {
		return err
	}
	cfg, err := world.ConfigFromTuning(r.tune, vol)
	if err != nil {
		return err
	}
	w, err := world.New(cfg, vol)
	if err != nil {
		return err
	}
	r.w = w
	r.runs++
	return nil
}

func (r *replayer) replayFile(path string) error {
	return persistlog.ReadJSONL(path, func(raw json.RawMessage) error {
		var entry world.TickLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		// Tick 1 marks a server restart.
		if r.w == nil || entry.Tick == 1 {
			if err := r.reset(); err != nil {
				return err
			}
		}
		if r.toTick != 0 && entry.Tick > r.toTick {
			return nil
		}
		if want := r.w.CurrentTick() + 1; entry.Tick != want {
			return fmt.Errorf("tick gap: want=%d got=%d (file=%s)", want, entry.Tick, filepath.Base(path))
		}

		f := r.w.StepOnce(entry.ReplayInput())
		r.checked++
		if [3]float32(f.Basis.Eye) != entry.Eye || [3]float32(f.Basis.Forward) != entry.Forward {
			return fmt.Errorf("basis mismatch at tick %d: eye=%v want=%v forward=%v want=%v",
				entry.Tick, f.Basis.Eye, entry.Eye, f.Basis.Forward, entry.Forward)
		}
		return nil
	})
}

func listTraceFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "camera-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}
