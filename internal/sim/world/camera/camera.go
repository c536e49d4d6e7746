package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PitchLimit keeps pitch just short of ±π/2 so the frame never flips.
const PitchLimit float32 = 1.54

var ErrBadViewport = errors.New("viewport dimensions must be positive")

type Viewport struct {
	Width  int
	Height int
}

func NewViewport(width, height int) (Viewport, error) {
	if width <= 0 || height <= 0 {
		return Viewport{}, fmt.Errorf("%w: %dx%d", ErrBadViewport, width, height)
	}
	return Viewport{Width: width, Height: height}, nil
}

func (v Viewport) Aspect() float32 { return float32(v.Width) / float32(v.Height) }

// Rig holds the fly camera's tuning. Bound is the grid side; positions are
// kept inside [0, Bound] on every axis.
type Rig struct {
	Sensitivity float32 // degrees per mouse unit
	Speed       float32 // units per second
	Bound       float32
}

func DefaultRig(bound float32) Rig {
	return Rig{Sensitivity: 0.05, Speed: 8, Bound: bound}
}

type State struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Rotation mgl32.Quat
	Captured bool
	Aspect   float32
}

func NewState(spawn mgl32.Vec3, vp Viewport) State {
	return State{
		Position: spawn,
		Rotation: mgl32.QuatIdent(),
		Aspect:   vp.Aspect(),
	}
}

// Input is everything the window layer collected since the previous tick.
type Input struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool

	// Capture locks the cursor (mouse click), Release unlocks it (escape).
	Capture bool
	Release bool

	MouseDeltas []mgl32.Vec2
}

// Basis is the record the renderer reads each tick. Right is pre-scaled by
// the viewport aspect ratio.
type Basis struct {
	Eye     mgl32.Vec3
	Forward mgl32.Vec3
	Right   mgl32.Vec3
	Up      mgl32.Vec3
}

// Update advances the camera by one fixed tick of length dt seconds.
func (r Rig) Update(prev State, in Input, dt float32) (State, Basis) {
	s := prev
	if in.Capture {
		s.Captured = true
	}
	if in.Release {
		s.Captured = false
	}

	if s.Captured {
		s.Yaw, s.Pitch = r.look(s.Yaw, s.Pitch, in.MouseDeltas)
		// Yaw about world up first, then pitch about the yawed right axis.
		s.Rotation = mgl32.QuatRotate(s.Yaw, mgl32.Vec3{0, 1, 0}).Mul(mgl32.QuatRotate(s.Pitch, mgl32.Vec3{1, 0, 0}))
	}

	forward := s.Rotation.Rotate(mgl32.Vec3{0, 0, 1})
	right := s.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	up := s.Rotation.Rotate(mgl32.Vec3{0, 1, 0})

	step := dt * r.Speed
	if in.Forward {
		s.Position = s.Position.Add(forward.Mul(step))
	}
	if in.Back {
		s.Position = s.Position.Sub(forward.Mul(step))
	}
	if in.Right {
		s.Position = s.Position.Add(right.Mul(step))
	}
	if in.Left {
		s.Position = s.Position.Sub(right.Mul(step))
	}
	s.Position = clampVec(s.Position, 0, r.Bound)

	return s, Basis{
		Eye:     s.Position,
		Forward: forward,
		Right:   right.Mul(s.Aspect),
		Up:      up,
	}
}

// look accumulates mouse deltas in float64 so no sequence of finite deltas
// can overflow. Yaw is wrapped into [-π, π], pitch clamped to ±PitchLimit,
// and non-finite deltas are dropped.
func (r Rig) look(yaw, pitch float32, deltas []mgl32.Vec2) (float32, float32) {
	y, p := float64(yaw), float64(pitch)
	scale := float64(r.Sensitivity) * math.Pi / 180
	for _, d := range deltas {
		dy, dp := float64(d.X())*scale, float64(d.Y())*scale
		if !finite(dy) || !finite(dp) {
			continue
		}
		y += dy
		p += dp
	}
	if !finite(y) {
		y = 0
	}
	if !finite(p) {
		p = 0
	}
	y = math.Remainder(y, 2*math.Pi)
	p = math.Max(-float64(PitchLimit), math.Min(float64(PitchLimit), p))
	return float32(y), float32(p)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func clampVec(v mgl32.Vec3, lo, hi float32) mgl32.Vec3 {
	return mgl32.Vec3{
		mgl32.Clamp(v.X(), lo, hi),
		mgl32.Clamp(v.Y(), lo, hi),
		mgl32.Clamp(v.Z(), lo, hi),
	}
}
