package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voxelfield.ai/internal/persistence/archive"
	"voxelfield.ai/internal/persistence/bakecache"
	"voxelfield.ai/internal/persistence/indexdb"
	persistlog "voxelfield.ai/internal/persistence/log"
	"voxelfield.ai/internal/persistence/r2s3"
	"voxelfield.ai/internal/persistence/snapshot"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		case "slice":
			sliceCmd(os.Args[2:])
			return
		case "pin":
			pinCmd(os.Args[2:])
			return
		}
	}
	bakeCmd(os.Args[1:])
}

func bakeCmd(args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	tuningPath := fs.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults are used if missing)")
	seed := fs.Int64("seed", 0, "override field.height.seed and field.cave.seed")
	size := fs.Int("size", 0, "override field.size")
	passes := fs.Int("passes", 0, "override field.light_passes")
	solver := fs.String("solver", "", "override field.solver (in_place|double_buffer)")
	workers := fs.Int("workers", 0, "override field.workers (0 = NumCPU)")
	force := fs.Bool("force", true, "regenerate even when a matching bake exists")
	disableDB := fs.Bool("disable_db", false, "do not record the bake in the sqlite index")
	pin := fs.Bool("archive", false, "also pin the bake under <data>/archives")
	_ = fs.Parse(args)

	logger := log.New(os.Stdout, "[bake] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(strings.TrimSpace(*tuningPath))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			tune.Field.Height.Seed = *seed
			tune.Field.Cave.Seed = *seed
		case "size":
			tune.Field.Size = *size
		case "passes":
			tune.Field.LightPasses = *passes
		case "solver":
			tune.Field.Solver = *solver
		case "workers":
			tune.Field.Workers = *workers
		}
	})
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	journal := persistlog.NewBakeLogger(*dataDir)
	defer journal.Close()

	mirror, err := r2s3.FromEnv(*dataDir, logger)
	if err != nil {
		logger.Fatalf("r2 mirror: %v", err)
	}
	defer mirror.Close()

	opts := bakecache.Options{DataDir: *dataDir, Force: *force, Journal: journal}
	if mirror != nil {
		opts.Mirror = mirror
	}
	if !*disableDB {
		idx, err := indexdb.OpenSQLite(indexPath(*dataDir))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(context.Background(), tune); err != nil {
			logger.Printf("upsert tuning: %v", err)
		}
		opts.Index = idx
	}

	res, err := bakecache.LoadOrBake(tune.Field, opts)
	if err != nil {
		logger.Fatalf("bake: %v", err)
	}
	verb := "baked"
	if res.Cached {
		verb = "reused"
	}
	logger.Printf("%s %s", verb, res.Path)
	printStats(res.Volume, res.ConfigHash, res.Millis)

	if *pin {
		dst, _, err := archive.PinBake(*dataDir, res.Path)
		if err != nil {
			logger.Fatalf("archive: %v", err)
		}
		logger.Printf("pinned %s", dst)
		mirror.Enqueue(dst)
	}
}

func pinCmd(args []string) {
	fs := flag.NewFlagSet("pin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("snapshot", "", "path to a .vol.zst bake")
	_ = fs.Parse(args)
	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	dst, meta, err := archive.PinBake(*dataDir, *path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pin:", err)
		os.Exit(1)
	}
	fmt.Printf("%s config=%s digest=%s\n", dst, meta.ConfigHash, meta.Digest)
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	path := fs.String("snapshot", "", "path to a .vol.zst bake")
	_ = fs.Parse(args)
	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d config=%s seed=%d size=%d format=%s passes=%d solver=%s bake_ms=%d\n",
		snap.Header.Version, snap.Header.ConfigHash, snap.Seed, snap.Size, snap.Format, snap.LightPasses, snap.Solver, snap.BakeMillis)
	vol, err := store.ImportVolume(snap, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "import:", err)
		os.Exit(1)
	}
	printStats(vol, snap.Header.ConfigHash, snap.BakeMillis)
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/field.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*dbPath)
	if p == "" {
		p = indexPath(*dataDir)
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id,config_hash,size,passes,solver,digest,solid,max_light,millis,cached,recorded_at FROM bakes ORDER BY id DESC LIMIT ?`, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, size, passes, solid, maxLight, cached int
			millis                                    int64
			hash, solverName, digest, at              string
		)
		if err := rows.Scan(&id, &hash, &size, &passes, &solverName, &digest, &solid, &maxLight, &millis, &cached, &at); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		kind := "bake"
		if cached != 0 {
			kind = "hit"
		}
		fmt.Printf("%d\t%s\t%s\tD=%d\tpasses=%d\t%s\tsolid=%d\tmax_light=%d\t%dms\tdigest=%.12s\t%s\n",
			id, at, kind, size, passes, solverName, solid, maxLight, millis, digest, hash)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

// sliceCmd prints one horizontal layer of a bake as ASCII: '#' solid, '+'
// partial, digits for open-cell light (capped at 9).
func sliceCmd(args []string) {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	path := fs.String("snapshot", "", "path to a .vol.zst bake")
	y := fs.Int("y", 0, "layer to print")
	_ = fs.Parse(args)
	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	vol, err := store.ImportVolume(snap, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "import:", err)
		os.Exit(1)
	}
	if *y < 0 || *y >= vol.Size {
		fmt.Fprintf(os.Stderr, "y=%d outside 0..%d\n", *y, vol.Size-1)
		os.Exit(2)
	}
	fmt.Print(renderSlice(vol, *y))
}

func renderSlice(vol *store.Volume, y int) string {
	var b strings.Builder
	for z := 0; z < vol.Size; z++ {
		for x := 0; x < vol.Size; x++ {
			occ, light, _ := vol.CellAt(x, y, z)
			switch {
			case occ == 255:
				b.WriteByte('#')
			case occ > 0:
				b.WriteByte('+')
			case light > 9:
				b.WriteByte('9')
			default:
				b.WriteByte('0' + light)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func printStats(vol *store.Volume, configHash string, millis int64) {
	st := vol.Stats()
	fmt.Printf("config=%s digest=%s size=%d cells=%d solid=%d open=%d max_light=%d time=%s\n",
		configHash, vol.DigestHex(), vol.Size, vol.Cells(), st.Solid, st.Open, st.MaxLight,
		time.Duration(millis)*time.Millisecond)
	fmt.Print("light histogram (open cells):")
	for l, n := range st.LightHistogram {
		if n > 0 {
			fmt.Printf(" %d:%d", l, n)
		}
	}
	fmt.Println()
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "field.sqlite")
}
