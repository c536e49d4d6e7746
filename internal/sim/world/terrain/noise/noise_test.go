package noise

import (
	"math"
	"testing"
)

func TestHybridMulti_DeterministicAcrossInstances(t *testing.T) {
	for _, basis := range []string{BasisSimplex, BasisPerlin} {
		cfg := DefaultHybridConfig()
		cfg.Basis = basis
		cfg.Seed = 42
		a, err := NewHybridMulti(cfg)
		if err != nil {
			t.Fatalf("%s: %v", basis, err)
		}
		b, err := NewHybridMulti(cfg)
		if err != nil {
			t.Fatalf("%s: %v", basis, err)
		}
		for x := 0; x < 256; x += 17 {
			for z := 0; z < 256; z += 13 {
				va := a.Sample2(float64(x), float64(z))
				vb := b.Sample2(float64(x), float64(z))
				if va != vb {
					t.Fatalf("%s: mismatch at (%d,%d): %v vs %v", basis, x, z, va, vb)
				}
				if math.IsNaN(va) || math.IsInf(va, 0) {
					t.Fatalf("%s: non-finite sample at (%d,%d)", basis, x, z)
				}
			}
		}
	}
}

type constSource float64

func (c constSource) Eval2(x, y float64) float64 { return float64(c) }

func TestHybridMulti_SingleOctaveIsScaledBasis(t *testing.T) {
	h := HybridMulti{
		cfg:     HybridConfig{Octaves: 1, Frequency: 1, Lacunarity: 2, Persistence: 0.25},
		sources: []Source{constSource(0.5)},
	}
	if got, want := h.Sample2(3, 4), 0.5*0.25*3; math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestHybridMulti_OctaveWeighting(t *testing.T) {
	// result = 1*p; weight = max(p,1) = 1; signal = (1+1)/2 * p = p; result = 2p.
	p := 0.25
	h := HybridMulti{
		cfg:     HybridConfig{Octaves: 2, Frequency: 1, Lacunarity: 2, Persistence: p},
		sources: []Source{constSource(1), constSource(1)},
	}
	if got, want := h.Sample2(0, 0), 2*p*3; math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNewSource_UnknownBasis(t *testing.T) {
	if _, err := NewSource("value", 1); err == nil {
		t.Fatalf("expected error for unknown basis")
	}
}

func TestWorley_RangeBounds(t *testing.T) {
	w, err := NewWorley(DefaultWorleyConfig())
	if err != nil {
		t.Fatalf("NewWorley: %v", err)
	}
	hi := 2*(math.Sqrt(3)+1) - 1
	for x := 0; x < 64; x += 3 {
		for y := 0; y < 64; y += 5 {
			for z := 0; z < 64; z += 7 {
				v := w.Sample3(float64(x), float64(y), float64(z))
				if v < -1 || v > hi {
					t.Fatalf("sample out of range at (%d,%d,%d): %v", x, y, z, v)
				}
			}
		}
	}
}

func TestWorley_ZeroAtFeaturePoint(t *testing.T) {
	w, err := NewWorley(WorleyConfig{Seed: 9, Frequency: 1, Range: RangeEuclidean, EnableRange: true})
	if err != nil {
		t.Fatalf("NewWorley: %v", err)
	}
	px, py, pz := w.featurePoint(2, 5, -3)
	if got := w.Sample3(px, py, pz); math.Abs(got-(-1)) > 1e-9 {
		t.Fatalf("got %v want -1 at feature point", got)
	}
}

func TestWorley_RangeDisabledIsCellValue(t *testing.T) {
	w, err := NewWorley(WorleyConfig{Frequency: 1, Range: RangeManhattan, EnableRange: false, Displacement: 0})
	if err != nil {
		t.Fatalf("NewWorley: %v", err)
	}
	if got := w.Sample3(10.3, 4.2, 7.7); got != -1 {
		t.Fatalf("got %v want -1", got)
	}
}

func TestWorley_RangeFunctions(t *testing.T) {
	for _, rf := range []RangeFunc{RangeEuclidean, RangeEuclideanSquared, RangeManhattan, RangeChebyshev} {
		if _, err := NewWorley(WorleyConfig{Frequency: 0.1, Range: rf}); err != nil {
			t.Fatalf("%s: %v", rf, err)
		}
	}
	if _, err := NewWorley(WorleyConfig{Range: "cosine"}); err == nil {
		t.Fatalf("expected error for unknown range function")
	}
}

func TestNewSource_DefaultsToPerlin(t *testing.T) {
	if b := DefaultHybridConfig().Basis; b != BasisPerlin {
		t.Fatalf("default basis: got %q want %q", b, BasisPerlin)
	}
	src, err := NewSource("", 5)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if _, ok := src.(perlinSource); !ok {
		t.Fatalf("empty basis built %T, want perlinSource", src)
	}
}
