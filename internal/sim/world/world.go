package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"voxelfield.ai/internal/protocol"
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world/camera"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

type Config struct {
	TickRateHz int
	ConfigHash string
	Seed       int64
	Passes     int
	Spawn      mgl32.Vec3
	Rig        camera.Rig
	Viewport   camera.Viewport
}

// ConfigFromTuning resolves the runtime config for a baked volume.
func ConfigFromTuning(t tuning.Tuning, vol *store.Volume) (Config, error) {
	if vol == nil {
		return Config{}, errors.New("world: nil volume")
	}
	if len(t.Cameras) != 1 {
		return Config{}, fmt.Errorf("world: %w: got %d", tuning.ErrCameraCount, len(t.Cameras))
	}
	if t.Camera.TickRateHz <= 0 {
		return Config{}, fmt.Errorf("world: tick rate %d", t.Camera.TickRateHz)
	}
	vp, err := camera.NewViewport(t.Camera.Viewport.Width, t.Camera.Viewport.Height)
	if err != nil {
		return Config{}, fmt.Errorf("world: %w", err)
	}
	sp := t.Cameras[0].Spawn
	return Config{
		TickRateHz: t.Camera.TickRateHz,
		ConfigHash: t.Field.Hash(),
		Seed:       t.Field.Height.Seed,
		Passes:     t.Field.LightPasses,
		Spawn:      mgl32.Vec3{float32(sp[0]), float32(sp[1]), float32(sp[2])},
		Rig: camera.Rig{
			Sensitivity: float32(t.Camera.MouseSensitivity),
			Speed:       float32(t.Camera.Speed),
			Bound:       float32(vol.Size),
		},
		Viewport: vp,
	}, nil
}

// InputEnvelope is one client's input since its previous message.
type InputEnvelope struct {
	ClientID string
	Input    camera.Input
	Viewport *camera.Viewport
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	ClientID string
	Welcome  protocol.WelcomeMsg
}

// Frame is the published per-tick camera record. Frames are immutable once
// stored.
type Frame struct {
	Tick     uint64
	Basis    camera.Basis
	Captured bool
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick        uint64       `json:"tick"`
	Inputs      int          `json:"inputs,omitempty"`
	Keys        string       `json:"keys,omitempty"`
	MouseDeltas [][2]float32 `json:"mouse_deltas,omitempty"`
	Capture     bool         `json:"capture,omitempty"`
	Release     bool         `json:"release,omitempty"`
	Viewport    *[2]int      `json:"viewport,omitempty"`
	Captured    bool         `json:"captured"`
	Yaw         float32      `json:"yaw"`
	Pitch       float32      `json:"pitch"`
	Eye         [3]float32   `json:"eye"`
	Forward     [3]float32   `json:"forward"`
}

// ReplayInput rebuilds the merged tick input recorded in e.
func (e TickLogEntry) ReplayInput() InputEnvelope {
	var env InputEnvelope
	for _, c := range e.Keys {
		switch c {
		case 'W':
			env.Input.Forward = true
		case 'A':
			env.Input.Left = true
		case 'S':
			env.Input.Back = true
		case 'D':
			env.Input.Right = true
		}
	}
	env.Input.Capture = e.Capture
	env.Input.Release = e.Release
	for _, d := range e.MouseDeltas {
		env.Input.MouseDeltas = append(env.Input.MouseDeltas, mgl32.Vec2{d[0], d[1]})
	}
	if e.Viewport != nil {
		env.Viewport = &camera.Viewport{Width: e.Viewport[0], Height: e.Viewport[1]}
	}
	return env
}

// World hosts the baked volume and the single fly camera.
// Camera state must be accessed only from the world loop goroutine.
type World struct {
	cfg Config
	vol *store.Volume

	tick  atomic.Uint64
	state camera.State
	frame atomic.Pointer[Frame]

	clients map[string]chan []byte

	inbox chan InputEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}
	done  chan struct{}

	doneOnce      sync.Once
	nextClientNum atomic.Uint64
	clientCount   atomic.Int64

	// Optional (may be nil). Implemented in internal/persistence/log.
	tickLogger TickLogger
	logErr     func(error)
}

func New(cfg Config, vol *store.Volume) (*World, error) {
	if vol == nil {
		return nil, errors.New("world: nil volume")
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world: tick rate %d", cfg.TickRateHz)
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		return nil, fmt.Errorf("world: %w", camera.ErrBadViewport)
	}
	// Prime the cached digest; the volume is read-only from here on.
	vol.Digest()
	w := &World{
		cfg:     cfg,
		vol:     vol,
		state:   camera.NewState(cfg.Spawn, cfg.Viewport),
		clients: map[string]chan []byte{},
		inbox:   make(chan InputEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	// Seed tick 0 so readers never see a nil frame.
	_, basis := cfg.Rig.Update(w.state, camera.Input{}, 0)
	w.frame.Store(&Frame{Basis: basis})
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)    { w.tickLogger = l }
func (w *World) SetLogErrorFunc(f func(error)) { w.logErr = f }

// Done is closed once Run has returned. Senders on Join, Leave and Inbox
// should select on it.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) Inbox() chan<- InputEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) CurrentTick() uint64   { return w.tick.Load() }
func (w *World) TickRateHz() int       { return w.cfg.TickRateHz }
func (w *World) Clients() int          { return int(w.clientCount.Load()) }
func (w *World) Volume() *store.Volume { return w.vol }

// Latest returns the most recently published frame. Safe from any goroutine.
func (w *World) Latest() Frame { return *w.frame.Load() }

func (w *World) welcome(clientID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ClientID:        clientID,
		Volume:          w.VolumeParams(),
		Camera:          w.CameraParams(),
	}
}

func (w *World) VolumeParams() protocol.VolumeParams {
	return protocol.VolumeParams{
		Size:        w.vol.Size,
		Format:      store.Format,
		Digest:      w.vol.DigestHex(),
		ConfigHash:  w.cfg.ConfigHash,
		Seed:        w.cfg.Seed,
		LightPasses: w.cfg.Passes,
	}
}

func (w *World) CameraParams() protocol.CameraParams {
	return protocol.CameraParams{
		TickRateHz: w.cfg.TickRateHz,
		Spawn:      w.cfg.Spawn,
		Bound:      w.cfg.Rig.Bound,
	}
}

func basisMsg(f *Frame) ([]byte, error) {
	return json.Marshal(protocol.BasisMsg{
		Type:            protocol.TypeBasis,
		ProtocolVersion: protocol.Version,
		Tick:            f.Tick,
		Eye:             f.Basis.Eye,
		Forward:         f.Basis.Forward,
		Right:           f.Basis.Right,
		Up:              f.Basis.Up,
		Captured:        f.Captured,
	})
}
