package mathx

import "testing"

func TestClampIndex_StaysInsideGrid(t *testing.T) {
	cases := []struct {
		v, d, size, want int
	}{
		{0, -1, 4, 0},
		{0, 1, 4, 1},
		{3, 1, 4, 3},
		{3, -1, 4, 2},
		{0, 1, 1, 0},
		{0, -1, 1, 0},
	}
	for _, c := range cases {
		if got := ClampIndex(c.v, c.d, c.size); got != c.want {
			t.Fatalf("ClampIndex(%d,%d,%d): got %d want %d", c.v, c.d, c.size, got, c.want)
		}
	}
}

func TestSaturatingInc(t *testing.T) {
	if got := SaturatingInc(0); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if got := SaturatingInc(255); got != 255 {
		t.Fatalf("got %d want 255", got)
	}
}

func TestUnitFloat_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		f := UnitFloat(Hash3(7, i, -i, i*3))
		if f < 0 || f >= 1 {
			t.Fatalf("UnitFloat out of range: %v", f)
		}
	}
	if UnitFloat(^uint64(0)) >= 1 {
		t.Fatalf("max hash must stay below 1")
	}
}

func TestHash3_Deterministic(t *testing.T) {
	if Hash3(1, 2, 3, 4) != Hash3(1, 2, 3, 4) {
		t.Fatalf("hash not deterministic")
	}
	if Hash3(1, 2, 3, 4) == Hash3(2, 2, 3, 4) {
		t.Fatalf("seed does not affect hash")
	}
}
