package core

import (
	"fmt"
	"strings"
)

// Matrix is a dense integer matrix stored in row-major order.
//
// A Matrix is a value: no operation modifies its receiver, so two steps or two
// programs may hold the same Matrix without observing each other's changes.
type Matrix struct {
	rows, cols int
	data       []int64
}

// NewMatrix builds a matrix from its rows. Every row must have the same length.
func NewMatrix(rows [][]int64) (Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Matrix{}, fmt.Errorf("%w: empty matrix", ErrDimensionMismatch)
	}
	m := Zeros(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d entries, want %d", ErrDimensionMismatch, i, len(row), m.cols)
		}
		copy(m.data[i*m.cols:], row)
	}
	return m, nil
}

// MustMatrix is like NewMatrix but panics on ragged input. Used for the fixed
// matrices of the gate catalog.
func MustMatrix(rows ...[]int64) Matrix {
	m, err := NewMatrix(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Zeros returns an r×c zero matrix.
func Zeros(r, c int) Matrix {
	return Matrix{rows: r, cols: c, data: make([]int64, r*c)}
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Dims returns the number of rows and columns.
func (m Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// IsZero reports whether m is the zero value (no storage).
func (m Matrix) IsZero() bool { return m.data == nil }

// At returns the entry at row i, column j.
func (m Matrix) At(i, j int) int64 { return m.data[i*m.cols+j] }

// Rows returns a copy of the entries as a slice of rows.
func (m Matrix) Rows() [][]int64 {
	out := make([][]int64, m.rows)
	for i := range out {
		out[i] = make([]int64, m.cols)
		copy(out[i], m.data[i*m.cols:(i+1)*m.cols])
	}
	return out
}

// Mul returns m × n.
func (m Matrix) Mul(n Matrix) (Matrix, error) {
	if m.cols != n.rows {
		return Matrix{}, fmt.Errorf("%w: %dx%d × %dx%d", ErrDimensionMismatch, m.rows, m.cols, n.rows, n.cols)
	}
	out := Zeros(m.rows, n.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			a := m.data[i*m.cols+k]
			if a == 0 {
				continue
			}
			row := n.data[k*n.cols : (k+1)*n.cols]
			dst := out.data[i*n.cols : (i+1)*n.cols]
			for j, b := range row {
				dst[j] += a * b
			}
		}
	}
	return out, nil
}

// VecMul computes the row vector v × m into dst and returns it. dst is grown
// when shorter than the column count and must not alias v.
func (m Matrix) VecMul(dst, v []int64) ([]int64, error) {
	if len(v) != m.rows {
		return nil, fmt.Errorf("%w: 1x%d × %dx%d", ErrDimensionMismatch, len(v), m.rows, m.cols)
	}
	if cap(dst) < m.cols {
		dst = make([]int64, m.cols)
	}
	dst = dst[:m.cols]
	clear(dst)
	for k, a := range v {
		if a == 0 {
			continue
		}
		row := m.data[k*m.cols : (k+1)*m.cols]
		for j, b := range row {
			dst[j] += a * b
		}
	}
	return dst, nil
}

// Row returns a copy of row i.
func (m Matrix) Row(i int) []int64 {
	out := make([]int64, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// T returns the transpose of m.
func (m Matrix) T() Matrix {
	out := Zeros(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return out
}

// Augment returns the (n+r)×(c+r) block matrix
//
//	| m  0 |
//	| 0  I |
//
// where I is the r×r identity.
func (m Matrix) Augment(r int) Matrix {
	if r <= 0 {
		return m
	}
	out := Zeros(m.rows+r, m.cols+r)
	for i := 0; i < m.rows; i++ {
		copy(out.data[i*out.cols:], m.data[i*m.cols:(i+1)*m.cols])
	}
	for k := 0; k < r; k++ {
		out.data[(m.rows+k)*out.cols+m.cols+k] = 1
	}
	return out
}

// SwapColumns returns a copy of m with columns i and j exchanged.
func (m Matrix) SwapColumns(i, j int) (Matrix, error) {
	if i < 0 || j < 0 || i >= m.cols || j >= m.cols {
		return Matrix{}, fmt.Errorf("%w: swap columns %d,%d of %dx%d", ErrDimensionMismatch, i, j, m.rows, m.cols)
	}
	out := m.clone()
	for r := 0; r < m.rows; r++ {
		base := r * m.cols
		out.data[base+i], out.data[base+j] = out.data[base+j], out.data[base+i]
	}
	return out, nil
}

// Sub returns the rows×cols block whose top-left corner is (r0, c0).
func (m Matrix) Sub(r0, c0, rows, cols int) (Matrix, error) {
	if r0 < 0 || c0 < 0 || r0+rows > m.rows || c0+cols > m.cols {
		return Matrix{}, fmt.Errorf("%w: block %dx%d at (%d,%d) of %dx%d", ErrDimensionMismatch, rows, cols, r0, c0, m.rows, m.cols)
	}
	out := Zeros(rows, cols)
	for i := 0; i < rows; i++ {
		copy(out.data[i*cols:(i+1)*cols], m.data[(r0+i)*m.cols+c0:])
	}
	return out, nil
}

// Equal reports whether m and n have the same shape and entries.
func (m Matrix) Equal(n Matrix) bool {
	if m.rows != n.rows || m.cols != n.cols {
		return false
	}
	for i, v := range m.data {
		if n.data[i] != v {
			return false
		}
	}
	return true
}

// String formats m as nested brackets, e.g. [[1 0] [0 1]].
func (m Matrix) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", m.data[i*m.cols+j])
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

func (m Matrix) clone() Matrix {
	out := Matrix{rows: m.rows, cols: m.cols, data: make([]int64, len(m.data))}
	copy(out.data, m.data)
	return out
}
