package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrOddLength = errors.New("cell buffer length is not a multiple of 2")

// cellAt packs an (occupancy, light) pair the way it sits in the buffer.
func cellAt(data []byte, i int) uint64 {
	return uint64(data[2*i]) | uint64(data[2*i+1])<<8
}

// AppendCells run-length encodes a 2-byte-per-cell buffer as varint pairs
// (cell, run_len) repeated.
func AppendCells(dst, data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return dst, ErrOddLength
	}
	cells := len(data) / 2
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < cells {
		c := cellAt(data, i)
		run := 1
		for j := i + 1; j < cells && cellAt(data, j) == c; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], c)
		dst = append(dst, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(run))
		dst = append(dst, tmp[:n]...)
		i += run
	}
	return dst, nil
}

// EncodeCells is AppendCells wrapped in standard base64.
func EncodeCells(data []byte) (string, error) {
	raw, err := AppendCells(nil, data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeRawCells expands varint pairs back into a cell buffer. maxCells
// bounds the output so a hostile stream cannot allocate without limit.
func DecodeRawCells(raw []byte, maxCells int) ([]byte, error) {
	var out []byte
	cells := 0
	for i := 0; i < len(raw); {
		c, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if c > 0xFFFF {
			return nil, fmt.Errorf("cell value too large: %d", c)
		}
		if run == 0 {
			return nil, fmt.Errorf("zero run at %d", i)
		}
		if run > uint64(maxCells-cells) {
			return nil, fmt.Errorf("decoded cells exceed %d", maxCells)
		}
		cells += int(run)
		for k := uint64(0); k < run; k++ {
			out = append(out, byte(c), byte(c>>8))
		}
	}
	return out, nil
}

func DecodeCells(b64 string, maxCells int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return DecodeRawCells(raw, maxCells)
}
