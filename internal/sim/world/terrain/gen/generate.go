package gen

import (
	"fmt"

	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world/terrain/noise"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

// NewSynthesizer builds the height and cave samplers described by f.
func NewSynthesizer(f tuning.Field) (Synthesizer, error) {
	height, err := noise.NewHybridMulti(noise.HybridConfig{
		Basis:       f.Height.Basis,
		Seed:        f.Height.Seed,
		Octaves:     f.Height.Octaves,
		Frequency:   f.Height.Frequency,
		Lacunarity:  f.Height.Lacunarity,
		Persistence: f.Height.Persistence,
	})
	if err != nil {
		return Synthesizer{}, fmt.Errorf("height noise: %w", err)
	}
	cave, err := noise.NewWorley(noise.WorleyConfig{
		Seed:         f.Cave.Seed,
		Frequency:    f.Cave.Frequency,
		Range:        noise.RangeFunc(f.Cave.RangeFunction),
		EnableRange:  f.Cave.EnableRange,
		Displacement: f.Cave.Displacement,
	})
	if err != nil {
		return Synthesizer{}, fmt.Errorf("cave noise: %w", err)
	}
	return Synthesizer{
		Height: height,
		Cave:   cave,
		Params: CaveParams{
			Frequency: f.Cave.Frequency,
			Octaves:   f.Cave.Octaves,
			Cutoff:    f.Cave.Cutoff,
		},
		Workers: f.Workers,
	}, nil
}

// Generate allocates, synthesizes and relaxes a volume in one shot.
func Generate(f tuning.Field) (*store.Volume, error) {
	if f.Cave.Frequency <= 0 {
		return nil, fmt.Errorf("%w: cave frequency must be positive", tuning.ErrBadField)
	}
	v, err := store.NewVolume(f.Size, f.MaxSize)
	if err != nil {
		return nil, err
	}
	s, err := NewSynthesizer(f)
	if err != nil {
		return nil, err
	}
	s.Synthesize(v)
	Relax(v, f.LightPasses, f.Solver, f.Workers)
	return v, nil
}
