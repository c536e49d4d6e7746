package noise

import (
	"fmt"
	"math"

	"voxelfield.ai/internal/sim/world/logic/mathx"
)

type RangeFunc string

const (
	RangeEuclidean        RangeFunc = "euclidean"
	RangeEuclideanSquared RangeFunc = "euclidean_squared"
	RangeManhattan        RangeFunc = "manhattan"
	RangeChebyshev        RangeFunc = "chebyshev"
)

type WorleyConfig struct {
	Seed         int64
	Frequency    float64
	Range        RangeFunc
	EnableRange  bool
	Displacement float64
}

func DefaultWorleyConfig() WorleyConfig {
	return WorleyConfig{
		Frequency:    0.04,
		Range:        RangeEuclidean,
		EnableRange:  true,
		Displacement: 1,
	}
}

// Worley is 3D cellular noise with one hashed feature point per unit cell.
type Worley struct {
	cfg  WorleyConfig
	dist func(dx, dy, dz float64) float64
}

func NewWorley(cfg WorleyConfig) (Worley, error) {
	w := Worley{cfg: cfg}
	switch cfg.Range {
	case "", RangeEuclidean:
		w.dist = func(dx, dy, dz float64) float64 { return math.Sqrt(dx*dx + dy*dy + dz*dz) }
	case RangeEuclideanSquared:
		w.dist = func(dx, dy, dz float64) float64 { return dx*dx + dy*dy + dz*dz }
	case RangeManhattan:
		w.dist = func(dx, dy, dz float64) float64 { return math.Abs(dx) + math.Abs(dy) + math.Abs(dz) }
	case RangeChebyshev:
		w.dist = func(dx, dy, dz float64) float64 {
			return math.Max(math.Abs(dx), math.Max(math.Abs(dy), math.Abs(dz)))
		}
	default:
		return Worley{}, fmt.Errorf("unknown range function %q", cfg.Range)
	}
	return w, nil
}

func (w Worley) Config() WorleyConfig { return w.cfg }

// Sample3 returns (range + displacement*cellValue)*2 - 1 for the nearest
// feature point, or displacement*cellValue*2 - 1 with the range disabled.
func (w Worley) Sample3(x, y, z float64) float64 {
	x *= w.cfg.Frequency
	y *= w.cfg.Frequency
	z *= w.cfg.Frequency

	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	iz := int(math.Floor(z))

	best := math.Inf(1)
	var bx, by, bz int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				cx, cy, cz := ix+dx, iy+dy, iz+dz
				px, py, pz := w.featurePoint(cx, cy, cz)
				d := w.dist(px-x, py-y, pz-z)
				if d < best {
					best = d
					bx, by, bz = cx, cy, cz
				}
			}
		}
	}

	value := 0.0
	if w.cfg.EnableRange {
		value = best
	}
	value += w.cfg.Displacement * w.cellValue(bx, by, bz)
	return value*2 - 1
}

func (w Worley) featurePoint(cx, cy, cz int) (float64, float64, float64) {
	h := mathx.Hash3(w.cfg.Seed, cx, cy, cz)
	return float64(cx) + mathx.UnitFloat(h),
		float64(cy) + mathx.UnitFloat(mathx.Hash3(w.cfg.Seed+1, cx, cy, cz)),
		float64(cz) + mathx.UnitFloat(mathx.Hash3(w.cfg.Seed+2, cx, cy, cz))
}

func (w Worley) cellValue(cx, cy, cz int) float64 {
	return mathx.UnitFloat(mathx.Hash3(w.cfg.Seed+3, cx, cy, cz))
}
