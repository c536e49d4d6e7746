package gen

import (
	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world/logic/mathx"
	"voxelfield.ai/internal/sim/world/terrain/store"
)

// Relax runs the light-distance relaxation for a fixed number of passes.
//
// in_place sweeps x, then y, then z and mutates the buffer as it goes, so
// later cells may see neighbours already updated in the same pass.
// double_buffer reads each pass from a copy of the previous pass and may run
// slabs in parallel; its output differs from in_place at pass boundaries.
func Relax(v *store.Volume, passes int, mode string, workers int) {
	switch mode {
	case tuning.SolverDoubleBuffer:
		prev := make([]byte, len(v.Data))
		for p := 0; p < passes; p++ {
			copy(prev, v.Data)
			relaxBuffered(v, prev, workers)
		}
	default:
		for p := 0; p < passes; p++ {
			relaxInPlace(v)
		}
	}
	v.Touch()
}

func relaxInPlace(v *store.Volume) {
	size := v.Size
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				i := v.Index(x, y, z)
				if v.Data[i*store.BytesPerCell] != 0 {
					continue
				}
				v.Data[i*store.BytesPerCell+1] = relaxedLight(v.Data, i, v.Neighbors(x, y, z))
			}
		}
	}
}

func relaxBuffered(v *store.Volume, prev []byte, workers int) {
	size := v.Size
	forEachSlab(size, workers, func(x int) {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				i := v.Index(x, y, z)
				if prev[i*store.BytesPerCell] != 0 {
					continue
				}
				v.Data[i*store.BytesPerCell+1] = relaxedLight(prev, i, v.Neighbors(x, y, z))
			}
		}
	})
}

// relaxedLight is min(own+1, open neighbour+1), except that any solid
// neighbour pins the cell to 0 regardless of the other neighbours.
func relaxedLight(data []byte, i int, neighbors [6]int) uint8 {
	m := mathx.SaturatingInc(data[i*store.BytesPerCell+1])
	for _, j := range neighbors {
		if data[j*store.BytesPerCell] != 0 {
			return 0
		}
		if c := mathx.SaturatingInc(data[j*store.BytesPerCell+1]); c < m {
			m = c
		}
	}
	return m
}
