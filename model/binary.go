package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sbl8/branchprog/core"
)

const (
	binaryMagic   = 0x4D425042 // "MBPB"
	binaryVersion = 1
)

// Serialize writes the Program to a byte slice using the binary format:
//
//	magic u32 | version u16 | reserved u16 | step count u32
//	per step: input u32 | rows u16 | cols u16 | zero i64[rows*cols] | one i64[rows*cols]
//
// All fields are little-endian. Output labels are not stored; serialize a
// normalized program.
func (p Program) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	header := []any{uint32(binaryMagic), uint16(binaryVersion), uint16(0), uint32(len(p))}
	for _, h := range header {
		if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
			return nil, err
		}
	}

	for i, s := range p {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		rows, cols := s.Dims()
		if rows > 0xFFFF || cols > 0xFFFF {
			return nil, fmt.Errorf("step %d: %dx%d matrix too large", i, rows, cols)
		}
		fields := []any{uint32(s.Input), uint16(rows), uint16(cols)}
		for _, f := range fields {
			if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
				return nil, err
			}
		}
		for _, m := range []core.Matrix{s.Zero, s.One} {
			for _, row := range m.Rows() {
				if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
					return nil, err
				}
			}
		}
	}

	return buf.Bytes(), nil
}

// Deserialize reads a Program from a byte slice using the binary format
func Deserialize(data []byte) (Program, error) {
	buf := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(buf, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != binaryMagic {
		return nil, fmt.Errorf("invalid magic number: %x", magic)
	}

	var version, reserved uint16
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != binaryVersion {
		return nil, fmt.Errorf("unsupported version: %d", version)
	}
	if err := binary.Read(buf, binary.LittleEndian, &reserved); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	p := make(Program, 0, min(int(count), 1<<16))
	for i := uint32(0); i < count; i++ {
		var input uint32
		var rows, cols uint16
		for _, f := range []any{&input, &rows, &cols} {
			if err := binary.Read(buf, binary.LittleEndian, f); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
		zero, err := readMatrix(buf, int(rows), int(cols))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		one, err := readMatrix(buf, int(rows), int(cols))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		p = append(p, core.Step{Input: int(input), Zero: zero, One: one})
	}

	return p, nil
}

func readMatrix(r io.Reader, rows, cols int) (core.Matrix, error) {
	data := make([][]int64, rows)
	for i := range data {
		data[i] = make([]int64, cols)
		if err := binary.Read(r, binary.LittleEndian, data[i]); err != nil {
			return core.Matrix{}, err
		}
	}
	return core.NewMatrix(data)
}

// IsBinary reports whether data starts with the binary program magic.
func IsBinary(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == binaryMagic
}
