package gen

import (
	"math"

	"voxelfield.ai/internal/sim/world/logic/mathx"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

// HeightSampler is 2D terrain noise with native range [-1, 1].
type HeightSampler interface {
	Sample2(x, z float64) float64
}

// CaveSampler is the 3D carving noise.
type CaveSampler interface {
	Sample3(x, y, z float64) float64
}

type CaveParams struct {
	// Frequency is the sampler's base frequency; the carve signal is scaled
	// by its inverse.
	Frequency float64
	Octaves   int
	Cutoff    float64
}

// Depth buckets stored in the light byte of solid cells.
const (
	BucketSurface uint8 = 0
	BucketShallow uint8 = 1
	BucketDeep    uint8 = 2
)

// ColumnHeight maps height noise at (x, z) into world units [128, 256).
func ColumnHeight(h HeightSampler, x, z int) float64 {
	return (h.Sample2(float64(x), float64(z))*0.5+0.5)*128 + 128
}

// CarveSignal sums cave octaves at doubling frequencies, each divided by its
// multiplier, then shifts the sum so that values above the cutoff carve.
func CarveSignal(c CaveSampler, p CaveParams, x, y, z int) float64 {
	inv := 1 / p.Frequency
	fx, fy, fz := float64(x), float64(y), float64(z)

	caves := 0.0
	for j := 0; j < p.Octaves; j++ {
		m := float64(int(1) << j)
		caves += c.Sample3(fx*m, fy*m, fz*m) / m
	}
	return (caves*0.5+0.5)*inv - inv*p.Cutoff
}

// Classify turns column height and carve signal into the cell's two bytes.
func Classify(height float64, y int, carve float64) (occupancy, light uint8) {
	density := height - float64(y)
	mask := mathx.ClampF64((density+4)/16, 0, 1)

	v := mathx.ClampF64(mathx.ClampF64(density, 0, 1)-mathx.ClampF64(carve*mask, 0, 1), 0, 1)
	occupancy = uint8(v * 255)
	if occupancy == 0 {
		return 0, 0
	}

	surface := math.Floor(height)
	fy := float64(y)
	switch {
	case fy+1 >= surface:
		return occupancy, BucketSurface
	case fy+5 >= surface:
		return occupancy, BucketShallow
	default:
		return occupancy, BucketDeep
	}
}

type Synthesizer struct {
	Height  HeightSampler
	Cave    CaveSampler
	Params  CaveParams
	Workers int
}

// Synthesize fills every cell of v. Each x-slab is independent, so slabs are
// spread over the worker pool without changing the output.
func (s Synthesizer) Synthesize(v *store.Volume) {
	size := v.Size
	data := v.Data
	forEachSlab(size, s.Workers, func(x int) {
		for z := 0; z < size; z++ {
			height := ColumnHeight(s.Height, x, z)
			for y := 0; y < size; y++ {
				i := v.Index(x, y, z) * store.BytesPerCell
				// Above the surface clamp(density) is 0 and no carve can make the cell solid.
				if height-float64(y) <= 0 {
					data[i], data[i+1] = 0, 0
					continue
				}
				data[i], data[i+1] = Classify(height, y, CarveSignal(s.Cave, s.Params, x, y, z))
			}
		}
	})
	v.Touch()
}
