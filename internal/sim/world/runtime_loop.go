package world

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voxelfield.ai/internal/sim/world/camera"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.doneOnce.Do(func() { close(w.done) })

	var pending []InputEnvelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.inbox:
			pending = append(pending, env)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) handleJoin(req JoinRequest) {
	id := fmt.Sprintf("C%06d", w.nextClientNum.Add(1))
	if req.Out != nil {
		w.clients[id] = req.Out
		w.clientCount.Store(int64(len(w.clients)))
	}
	if req.Resp != nil {
		req.Resp <- JoinResponse{ClientID: id, Welcome: w.welcome(id)}
	}
}

func (w *World) handleLeave(id string) {
	delete(w.clients, id)
	w.clientCount.Store(int64(len(w.clients)))
}

// StepOnce advances the camera by a single tick using the same merge and
// ordering semantics as the server loop. It is intended for deterministic
// replays and tests.
func (w *World) StepOnce(inputs ...InputEnvelope) Frame {
	w.step(inputs)
	return w.Latest()
}

func (w *World) step(inputs []InputEnvelope) {
	in, vp := mergeInputs(inputs)
	if vp != nil {
		w.state.Aspect = vp.Aspect()
	}
	dt := 1 / float32(w.cfg.TickRateHz)

	next, basis := w.cfg.Rig.Update(w.state, in, dt)
	w.state = next
	tick := w.tick.Add(1)

	f := &Frame{Tick: tick, Basis: basis, Captured: next.Captured}
	w.frame.Store(f)

	if len(w.clients) > 0 {
		b, err := basisMsg(f)
		if err != nil {
			w.reportErr(err)
		} else {
			for _, out := range w.clients {
				sendLatest(out, b)
			}
		}
	}

	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:     tick,
			Inputs:   len(inputs),
			Keys:     keyString(in),
			Capture:  in.Capture,
			Release:  in.Release,
			Captured: next.Captured,
			Yaw:      next.Yaw,
			Pitch:    next.Pitch,
			Eye:      basis.Eye,
			Forward:  basis.Forward,
		}
		for _, d := range in.MouseDeltas {
			entry.MouseDeltas = append(entry.MouseDeltas, [2]float32{d.X(), d.Y()})
		}
		if vp != nil {
			entry.Viewport = &[2]int{vp.Width, vp.Height}
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.reportErr(err)
		}
	}
}

func (w *World) reportErr(err error) {
	if w.logErr != nil {
		w.logErr(err)
	}
}

// mergeInputs folds everything received between two ticks: key state is the
// latest message's, deltas are appended in arrival order, capture and release
// are OR-ed. The latest viewport wins.
func mergeInputs(inputs []InputEnvelope) (camera.Input, *camera.Viewport) {
	var out camera.Input
	var vp *camera.Viewport
	for _, env := range inputs {
		in := env.Input
		out.Forward = in.Forward
		out.Back = in.Back
		out.Left = in.Left
		out.Right = in.Right
		out.Capture = out.Capture || in.Capture
		out.Release = out.Release || in.Release
		out.MouseDeltas = append(out.MouseDeltas, in.MouseDeltas...)
		if env.Viewport != nil {
			v := *env.Viewport
			vp = &v
		}
	}
	return out, vp
}

func keyString(in camera.Input) string {
	var b strings.Builder
	for _, k := range []struct {
		on bool
		c  byte
	}{{in.Forward, 'W'}, {in.Left, 'A'}, {in.Back, 'S'}, {in.Right, 'D'}} {
		if k.on {
			b.WriteByte(k.c)
		}
	}
	return b.String()
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
