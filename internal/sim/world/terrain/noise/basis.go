package noise

import (
	"fmt"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Source is a single-octave 2D gradient noise returning values roughly in [-1, 1].
type Source interface {
	Eval2(x, y float64) float64
}

const (
	BasisSimplex = "simplex"
	BasisPerlin  = "perlin"
)

type perlinSource struct{ p *perlin.Perlin }

func (s perlinSource) Eval2(x, y float64) float64 { return s.p.Noise2D(x, y) }

// NewSource builds the named basis for one octave.
func NewSource(basis string, seed int64) (Source, error) {
	switch basis {
	case "", BasisPerlin:
		// One octave; the fractal sum is HybridMulti's job.
		return perlinSource{p: perlin.NewPerlin(2, 2, 1, seed)}, nil
	case BasisSimplex:
		return opensimplex.New(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise basis %q", basis)
	}
}
