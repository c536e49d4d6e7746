package mathx

import "math"

func ClampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampIndex returns the neighbour coordinate v+d kept inside [0, size).
// Out-of-range steps collapse onto v itself, never wrap.
func ClampIndex(v, d, size int) int {
	n := v + d
	if n < 0 {
		return 0
	}
	if n >= size {
		return size - 1
	}
	return n
}

// SaturatingInc adds one to b without wrapping past 255.
func SaturatingInc(b uint8) uint8 {
	if b == math.MaxUint8 {
		return b
	}
	return b + 1
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// UnitFloat maps the top 53 bits of h onto [0, 1).
func UnitFloat(h uint64) float64 {
	return float64(h>>11) / (1 << 53)
}
