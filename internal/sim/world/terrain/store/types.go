package store

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

const (
	// BytesPerCell is occupancy followed by light, interleaved per cell.
	BytesPerCell = 2
	// Format names the texture layout handed to the renderer.
	Format = "RG8Uint"

	DefaultMaxSize = 512
)

var ErrBadSize = errors.New("volume size out of range")

// Volume is the flattened D³ voxel grid. Index order is x + D*(y + D*z).
type Volume struct {
	Size int
	Data []byte // len = 2*Size³

	dirty bool
	hash  [32]byte
}

func NewVolume(size, maxSize int) (*Volume, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if size <= 0 || size > maxSize {
		return nil, fmt.Errorf("%w: got %d want 1..%d", ErrBadSize, size, maxSize)
	}
	return &Volume{
		Size:  size,
		Data:  make([]byte, BytesPerCell*size*size*size),
		dirty: true,
	}, nil
}

func (v *Volume) Cells() int { return v.Size * v.Size * v.Size }

func (v *Volume) Extent() [3]int { return [3]int{v.Size, v.Size, v.Size} }

func (v *Volume) Index(x, y, z int) int {
	return x + v.Size*(y+v.Size*z)
}

func (v *Volume) Coords(i int) (x, y, z int) {
	x = i % v.Size
	y = (i / v.Size) % v.Size
	z = i / (v.Size * v.Size)
	return x, y, z
}

func (v *Volume) Occupancy(i int) uint8 { return v.Data[i*BytesPerCell] }
func (v *Volume) Light(i int) uint8     { return v.Data[i*BytesPerCell+1] }
func (v *Volume) Open(i int) bool       { return v.Data[i*BytesPerCell] == 0 }

func (v *Volume) SetCell(i int, occupancy, light uint8) {
	v.Data[i*BytesPerCell] = occupancy
	v.Data[i*BytesPerCell+1] = light
	v.dirty = true
}

// Touch marks the digest stale after writes that went straight to Data.
func (v *Volume) Touch() { v.dirty = true }

func (v *Volume) Digest() [32]byte {
	if v.dirty || v.hash == ([32]byte{}) {
		v.hash = sha256.Sum256(v.Data)
		v.dirty = false
	}
	return v.hash
}

func (v *Volume) DigestHex() string {
	d := v.Digest()
	return fmt.Sprintf("%x", d[:])
}

type Stats struct {
	Solid    int
	Open     int
	MaxLight uint8
	// LightHistogram counts open cells per light value.
	LightHistogram [256]int
}

func (v *Volume) Stats() Stats {
	var s Stats
	n := v.Cells()
	for i := 0; i < n; i++ {
		if !v.Open(i) {
			s.Solid++
			continue
		}
		s.Open++
		l := v.Light(i)
		s.LightHistogram[l]++
		if l > s.MaxLight {
			s.MaxLight = l
		}
	}
	return s
}
