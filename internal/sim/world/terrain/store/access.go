package store

import "voxelfield.ai/internal/sim/world/logic/mathx"

func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.Size && y >= 0 && y < v.Size && z >= 0 && z < v.Size
}

// CellAt returns occupancy and light, or ok=false outside the grid.
func (v *Volume) CellAt(x, y, z int) (occupancy, light uint8, ok bool) {
	if !v.InBounds(x, y, z) {
		return 0, 0, false
	}
	i := v.Index(x, y, z)
	return v.Occupancy(i), v.Light(i), true
}

// Neighbors returns the cell indices of the six axis neighbours of (x,y,z)
// in +x,-x,+y,-y,+z,-z order. Each coordinate is clamped independently, so a
// boundary cell lists itself for the direction that would leave the grid.
func (v *Volume) Neighbors(x, y, z int) [6]int {
	d := v.Size
	return [6]int{
		v.Index(mathx.ClampIndex(x, 1, d), y, z),
		v.Index(mathx.ClampIndex(x, -1, d), y, z),
		v.Index(x, mathx.ClampIndex(y, 1, d), z),
		v.Index(x, mathx.ClampIndex(y, -1, d), z),
		v.Index(x, y, mathx.ClampIndex(z, 1, d)),
		v.Index(x, y, mathx.ClampIndex(z, -1, d)),
	}
}
