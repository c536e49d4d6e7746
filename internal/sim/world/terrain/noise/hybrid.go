package noise

import "math"

// DefaultLacunarity is the octave frequency multiplier (2π/3).
const DefaultLacunarity = math.Pi * 2 / 3

type HybridConfig struct {
	Basis       string
	Seed        int64
	Octaves     int
	Frequency   float64
	Lacunarity  float64
	Persistence float64
}

func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		Basis:       BasisPerlin,
		Octaves:     3,
		Frequency:   0.005,
		Lacunarity:  DefaultLacunarity,
		Persistence: 0.25,
	}
}

// HybridMulti is a hybrid multifractal: octaves are weighted by the running
// product of previous signals, so valleys stay smooth and peaks get rough.
type HybridMulti struct {
	cfg     HybridConfig
	sources []Source
}

func NewHybridMulti(cfg HybridConfig) (HybridMulti, error) {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	h := HybridMulti{cfg: cfg, sources: make([]Source, cfg.Octaves)}
	for i := range h.sources {
		src, err := NewSource(cfg.Basis, cfg.Seed+int64(i))
		if err != nil {
			return HybridMulti{}, err
		}
		h.sources[i] = src
	}
	return h, nil
}

func (h HybridMulti) Config() HybridConfig { return h.cfg }

// Sample2 evaluates the fractal at (x, z). Output is nominally [-1, 1].
func (h HybridMulti) Sample2(x, z float64) float64 {
	x *= h.cfg.Frequency
	z *= h.cfg.Frequency

	result := h.sources[0].Eval2(x, z) * h.cfg.Persistence
	weight := result

	for i := 1; i < len(h.sources); i++ {
		weight = math.Max(weight, 1)

		x *= h.cfg.Lacunarity
		z *= h.cfg.Lacunarity

		signal := (h.sources[i].Eval2(x, z) + 1) * 0.5
		signal *= math.Pow(h.cfg.Persistence, float64(i))

		result += weight * signal
		weight *= signal
	}

	return result * 3
}
