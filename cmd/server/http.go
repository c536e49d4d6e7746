package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"

	"voxelfield.ai/internal/persistence/r2s3"
	"voxelfield.ai/internal/sim/world"
	"voxelfield.ai/internal/transport/observer"
	"voxelfield.ai/internal/transport/ws"
)

type muxOptions struct {
	Index        runtimeIndex // optional
	Mirror       *r2s3.Mirror // optional
	EnablePprof  bool
	LoopbackOnly bool
}

func newMux(w *world.World, opts muxOptions, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		f := w.Latest()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP voxelfield_tick Current camera tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelfield_tick gauge\n")
		fmt.Fprintf(rw, "voxelfield_tick %d\n", f.Tick)

		fmt.Fprintf(rw, "# HELP voxelfield_clients Connected renderer clients.\n")
		fmt.Fprintf(rw, "# TYPE voxelfield_clients gauge\n")
		fmt.Fprintf(rw, "voxelfield_clients %d\n", w.Clients())

		fmt.Fprintf(rw, "# HELP voxelfield_volume_size Grid side length.\n")
		fmt.Fprintf(rw, "# TYPE voxelfield_volume_size gauge\n")
		fmt.Fprintf(rw, "voxelfield_volume_size %d\n", w.Volume().Size)

		fmt.Fprintf(rw, "# HELP voxelfield_camera_eye Camera position.\n")
		fmt.Fprintf(rw, "# TYPE voxelfield_camera_eye gauge\n")
		for i, axis := range []string{"x", "y", "z"} {
			fmt.Fprintf(rw, "voxelfield_camera_eye{axis=%q} %.3f\n", axis, f.Basis.Eye[i])
		}

		if opts.Index != nil {
			st := opts.Index.Stats()
			fmt.Fprintf(rw, "# HELP voxelfield_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE voxelfield_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "voxelfield_index_queue_depth %d\n", st.QueueDepth)
			fmt.Fprintf(rw, "# HELP voxelfield_index_dropped_total Index rows dropped under backpressure.\n")
			fmt.Fprintf(rw, "# TYPE voxelfield_index_dropped_total counter\n")
			fmt.Fprintf(rw, "voxelfield_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
			fmt.Fprintf(rw, "voxelfield_index_dropped_total{kind=%q} %d\n", "bake", st.DropBakeTotal)
		}
		if opts.Mirror != nil {
			st := opts.Mirror.Stats()
			fmt.Fprintf(rw, "# HELP voxelfield_r2_pending Mirror uploads queued or in flight.\n")
			fmt.Fprintf(rw, "# TYPE voxelfield_r2_pending gauge\n")
			fmt.Fprintf(rw, "voxelfield_r2_pending %d\n", st.Pending)
			fmt.Fprintf(rw, "# HELP voxelfield_r2_uploads_total Mirror upload outcomes.\n")
			fmt.Fprintf(rw, "# TYPE voxelfield_r2_uploads_total counter\n")
			fmt.Fprintf(rw, "voxelfield_r2_uploads_total{result=%q} %d\n", "ok", st.UploadSuccessTotal)
			fmt.Fprintf(rw, "voxelfield_r2_uploads_total{result=%q} %d\n", "fail", st.UploadFailTotal)
		}
	})

	obsSrv := observer.NewServer(w, logger)
	obsSrv.LoopbackOnly = opts.LoopbackOnly
	mux.HandleFunc("/v1/field", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/volume", obsSrv.VolumeHandler())
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	if opts.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else if logger != nil {
		logger.Printf("pprof endpoints disabled (VF_ENABLE_PPROF_HTTP=false)")
	}
	return mux
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
