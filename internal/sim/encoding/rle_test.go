package encoding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestCells_RoundTrip(t *testing.T) {
	var in []byte
	in = append(in, 255, 2, 255, 2, 255, 1, 0, 0)
	for i := 0; i < 50; i++ {
		in = append(in, 0, 7)
	}
	in = append(in, 127, 0, 0, 16, 0, 16)

	enc, err := EncodeCells(in)
	if err != nil {
		t.Fatalf("EncodeCells: %v", err)
	}
	out, err := DecodeCells(enc, len(in)/2)
	if err != nil {
		t.Fatalf("DecodeCells: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", out, in)
	}
}

func TestAppendCells_Runs(t *testing.T) {
	// Four identical cells collapse into one (cell, run) pair.
	raw, err := AppendCells(nil, []byte{3, 1, 3, 1, 3, 1, 3, 1})
	if err != nil {
		t.Fatalf("AppendCells: %v", err)
	}
	// 3 | 1<<8 = 259 -> varint 0x83 0x02, run 4 -> 0x04.
	if want := []byte{0x83, 0x02, 0x04}; !bytes.Equal(raw, want) {
		t.Fatalf("got %x want %x", raw, want)
	}
}

func TestAppendCells_OddLength(t *testing.T) {
	if _, err := AppendCells(nil, []byte{1, 2, 3}); !errors.Is(err, ErrOddLength) {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeCells_Bounds(t *testing.T) {
	enc, _ := EncodeCells(make([]byte, 2*10))
	if _, err := DecodeCells(enc, 9); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeCells(base64.StdEncoding.EncodeToString([]byte{0x01, 0x00}), 4); err == nil {
		t.Fatalf("expected zero-run error")
	}
	if _, err := DecodeCells(base64.StdEncoding.EncodeToString([]byte{0x80}), 4); err == nil {
		t.Fatalf("expected truncated varint error")
	}
}
