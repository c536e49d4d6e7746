package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelfield.ai/internal/persistence/bakecache"
	persistlog "voxelfield.ai/internal/persistence/log"
	"voxelfield.ai/internal/persistence/r2s3"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults are used if missing)")
		seed       = flag.Int64("seed", 0, "override field.height.seed")
		size       = flag.Int("size", 0, "override field.size")
		workers    = flag.Int("workers", 0, "override field.workers (0 = NumCPU)")
		rebake     = flag.Bool("rebake", false, "ignore a cached bake and regenerate")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite bake/trace index")
		trace      = flag.Bool("trace", true, "write the per-tick camera trace under <data>/trace")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(strings.TrimSpace(*tuningPath))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			tune.Field.Height.Seed = *seed
			tune.Field.Cave.Seed = *seed
		case "size":
			tune.Field.Size = *size
		case "workers":
			tune.Field.Workers = *workers
		}
	})
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	// Optional: read-model index backend (does not affect the bake).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(context.Background(), tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	journal := persistlog.NewBakeLogger(*dataDir)
	defer journal.Close()

	// Optional: mirror fresh bakes to R2/S3.
	mirror, err := r2s3.FromEnv(*dataDir, logger)
	if err != nil {
		logger.Fatalf("r2 mirror: %v", err)
	}
	defer mirror.Close()

	opts := bakecache.Options{DataDir: *dataDir, Force: *rebake, Journal: journal}
	if idx != nil {
		opts.Index = idx
	}
	if mirror != nil {
		opts.Mirror = mirror
	}
	res, err := bakecache.LoadOrBake(tune.Field, opts)
	if err != nil {
		logger.Fatalf("bake: %v", err)
	}
	if res.Cached {
		logger.Printf("loaded bake %s size=%d digest=%s", filepath.Base(res.Path), res.Volume.Size, res.Volume.DigestHex())
	} else {
		logger.Printf("baked size=%d passes=%d solver=%s in %dms solid=%d max_light=%d",
			res.Volume.Size, tune.Field.LightPasses, tune.Field.Solver, res.Millis, res.Stats.Solid, res.Stats.MaxLight)
	}

	cfg, err := world.ConfigFromTuning(tune, res.Volume)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w, err := world.New(cfg, res.Volume)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogErrorFunc(func(err error) { logger.Printf("world: %v", err) })

	var tickLog *persistlog.TickLogger
	if *trace {
		tickLog = persistlog.NewTickLogger(*dataDir)
		defer tickLog.Close()
	}
	ml := multiTickLogger{}
	if tickLog != nil {
		ml.a = tickLog
	}
	if idx != nil {
		ml.b = idx
	}
	if ml.a != nil || ml.b != nil {
		w.SetTickLogger(ml)
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := newMux(w, muxOptions{
		Index:        idx,
		Mirror:       mirror,
		EnablePprof:  envBool("VF_ENABLE_PPROF_HTTP", false),
		LoopbackOnly: envBool("VF_LOOPBACK_ONLY", false),
	}, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		timeout := time.Duration(envInt("VF_SHUTDOWN_TIMEOUT_SEC", 5)) * time.Second
		ctx2, cancel2 := context.WithTimeout(context.Background(), timeout)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (tick_rate=%dHz volume=%d)", *addr, w.TickRateHz(), res.Volume.Size)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
