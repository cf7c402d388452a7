package math

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned by every operation whose operand shapes
// violate its shape contract.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Matrix represents a dense 2D matrix
type Matrix struct {
	Rows int         `json:"rows"`
	Cols int         `json:"cols"`
	Data [][]float64 `json:"data"`
}

// NewMatrix creates a zero-filled matrix with given dimensions
func NewMatrix(rows, cols int) *Matrix {
	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: data,
	}
}

// Zeros is an alias of NewMatrix kept for call sites that read better with it
func Zeros(rows, cols int) *Matrix {
	return NewMatrix(rows, cols)
}

// Filled creates a matrix with every element set to value
func Filled(value float64, rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	m.Fill(value)
	return m
}

// Identity creates an n x n identity matrix
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i][i] = 1
	}
	return m
}

// FromArray builds a matrix from a row-major flat sequence.
// Missing or NaN entries become zero.
func FromArray(values []float64, rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			idx := i*cols + j
			if idx < len(values) && !math.IsNaN(values[idx]) {
				m.Data[i][j] = values[idx]
			}
		}
	}
	return m
}

// ArrayToMatrix parses a row-major sequence of numeric strings.
// Positions past the end of values are set to fill.
func ArrayToMatrix(values []string, rows, cols int, fill float64) (*Matrix, error) {
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			idx := i*cols + j
			if idx >= len(values) {
				m.Data[i][j] = fill
				continue
			}
			v, err := strconv.ParseFloat(values[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			m.Data[i][j] = v
		}
	}
	return m, nil
}

// ToArray flattens the matrix into a row-major sequence
func (m *Matrix) ToArray() []float64 {
	out := make([]float64, 0, m.Rows*m.Cols)
	for i := 0; i < m.Rows; i++ {
		out = append(out, m.Data[i]...)
	}
	return out
}

// Shape returns the dimensions of the matrix
func (m *Matrix) Shape() (int, int) {
	return m.Rows, m.Cols
}

func (m *Matrix) At(row, col int) float64 {
	return m.Data[row][col]
}

func (m *Matrix) Set(row, col int, value float64) {
	m.Data[row][col] = value
}

// Row returns a copy of a single row as a 1 x cols matrix
func (m *Matrix) Row(row int) *Matrix {
	result := NewMatrix(1, m.Cols)
	copy(result.Data[0], m.Data[row])
	return result
}

// Clone creates a deep copy of the matrix
func (m *Matrix) Clone() *Matrix {
	result := NewMatrix(m.Rows, m.Cols)
	for i := range m.Data {
		copy(result.Data[i], m.Data[i])
	}
	return result
}

func (m *Matrix) sameShape(b *Matrix) bool {
	return m.Rows == b.Rows && m.Cols == b.Cols
}

func mismatch(op string, a, b *Matrix) error {
	return fmt.Errorf("%w in %s: (%d,%d) vs (%d,%d)", ErrDimensionMismatch, op, a.Rows, a.Cols, b.Rows, b.Cols)
}

// Dot performs matrix multiplication (A @ B)
func Dot(a, b *Matrix) (*Matrix, error) {
	if a.Cols != b.Rows {
		return nil, fmt.Errorf("%w in Dot: (%d,%d) x (%d,%d)", ErrDimensionMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}

	result := NewMatrix(a.Rows, b.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			sum := 0.0
			for k := 0; k < a.Cols; k++ {
				sum += a.Data[i][k] * b.Data[k][j]
			}
			result.Data[i][j] = sum
		}
	}
	return result, nil
}

// Dot returns m @ b
func (m *Matrix) Dot(b *Matrix) (*Matrix, error) {
	return Dot(m, b)
}

// MultiplyElementWise returns the Hadamard product of a and b
func MultiplyElementWise(a, b *Matrix) (*Matrix, error) {
	if !a.sameShape(b) {
		return nil, mismatch("MultiplyElementWise", a, b)
	}

	result := NewMatrix(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			result.Data[i][j] = a.Data[i][j] * b.Data[i][j]
		}
	}
	return result, nil
}

// MultiplyElementWise multiplies m by b element-wise in place and returns m
func (m *Matrix) MultiplyElementWise(b *Matrix) (*Matrix, error) {
	if !m.sameShape(b) {
		return nil, mismatch("MultiplyElementWise", m, b)
	}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] *= b.Data[i][j]
		}
	}
	return m, nil
}

// Add performs element-wise addition
func Add(a, b *Matrix) (*Matrix, error) {
	if !a.sameShape(b) {
		return nil, mismatch("Add", a, b)
	}

	result := NewMatrix(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			result.Data[i][j] = a.Data[i][j] + b.Data[i][j]
		}
	}
	return result, nil
}

// Add accumulates b into m in place
func (m *Matrix) Add(b *Matrix) error {
	if !m.sameShape(b) {
		return mismatch("Add", m, b)
	}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] += b.Data[i][j]
		}
	}
	return nil
}

// Subtract performs element-wise subtraction (A - B)
func Subtract(a, b *Matrix) (*Matrix, error) {
	if !a.sameShape(b) {
		return nil, mismatch("Subtract", a, b)
	}

	result := NewMatrix(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			result.Data[i][j] = a.Data[i][j] - b.Data[i][j]
		}
	}
	return result, nil
}

// Subtract returns m - b; unlike Add it does not mutate m
func (m *Matrix) Subtract(b *Matrix) (*Matrix, error) {
	return Subtract(m, b)
}

// Transpose swaps matrix dimensions
func (m *Matrix) Transpose() *Matrix {
	result := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[j][i] = m.Data[i][j]
		}
	}
	return result
}

// Softmax applies a row-wise softmax without max subtraction.
// Large inputs overflow to Inf/NaN; use SoftmaxStable when that matters.
func (m *Matrix) Softmax() *Matrix {
	result := NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] = math.Exp(m.Data[i][j])
		}
		sum := floats.Sum(result.Data[i])
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] /= sum
		}
	}
	return result
}

// SoftmaxStable applies a row-wise softmax after subtracting each row's max
func (m *Matrix) SoftmaxStable() *Matrix {
	result := NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		if m.Cols == 0 {
			continue
		}
		maxVal := floats.Max(m.Data[i])
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] = math.Exp(m.Data[i][j] - maxVal)
		}
		sum := floats.Sum(result.Data[i])
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] /= sum
		}
	}
	return result
}

// SliceRow copies rows [start, end) into a new end-start row matrix.
// Rows past the end of m are left zero.
func (m *Matrix) SliceRow(start, end int) (*Matrix, error) {
	if start < 0 || start > end {
		return nil, fmt.Errorf("%w in SliceRow: [%d,%d) of %d rows", ErrDimensionMismatch, start, end, m.Rows)
	}

	result := NewMatrix(end-start, m.Cols)
	for i := start; i < end && i < m.Rows; i++ {
		copy(result.Data[i-start], m.Data[i])
	}
	return result, nil
}

// Split copies rows (axis 0) or columns (axis 1) in [start, end] inclusive
func (m *Matrix) Split(axis, start, end int) (*Matrix, error) {
	switch axis {
	case 0:
		if start < 0 || end >= m.Rows || start > end+1 {
			return nil, fmt.Errorf("%w in Split: rows [%d,%d] of %d", ErrDimensionMismatch, start, end, m.Rows)
		}
		result := NewMatrix(end-start+1, m.Cols)
		for i := range result.Data {
			copy(result.Data[i], m.Data[start+i])
		}
		return result, nil
	case 1:
		if start < 0 || end >= m.Cols || start > end+1 {
			return nil, fmt.Errorf("%w in Split: cols [%d,%d] of %d", ErrDimensionMismatch, start, end, m.Cols)
		}
		result := NewMatrix(m.Rows, end-start+1)
		for i := 0; i < m.Rows; i++ {
			copy(result.Data[i], m.Data[i][start:end+1])
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%w in Split: invalid axis %d", ErrDimensionMismatch, axis)
	}
}

// SubMatrix copies the block [r0,r1) x [c0,c1)
func (m *Matrix) SubMatrix(r0, c0, r1, c1 int) (*Matrix, error) {
	if r0 < 0 || c0 < 0 || r1 > m.Rows || c1 > m.Cols || r0 > r1 || c0 > c1 {
		return nil, fmt.Errorf("%w in SubMatrix: [%d:%d, %d:%d] of (%d,%d)", ErrDimensionMismatch, r0, r1, c0, c1, m.Rows, m.Cols)
	}
	result := NewMatrix(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		copy(result.Data[i-r0], m.Data[i][c0:c1])
	}
	return result, nil
}

// Append stacks b below m
func (m *Matrix) Append(b *Matrix) (*Matrix, error) {
	if m.Cols != b.Cols {
		return nil, mismatch("Append", m, b)
	}

	result := NewMatrix(m.Rows+b.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		copy(result.Data[i], m.Data[i])
	}
	for i := 0; i < b.Rows; i++ {
		copy(result.Data[m.Rows+i], b.Data[i])
	}
	return result, nil
}

// AppendRow returns a copy of m with values added as a new last row.
// Missing trailing values stay zero.
func (m *Matrix) AppendRow(values []float64) (*Matrix, error) {
	if len(values) > m.Cols {
		return nil, fmt.Errorf("%w in AppendRow: %d values for %d cols", ErrDimensionMismatch, len(values), m.Cols)
	}
	result := NewMatrix(m.Rows+1, m.Cols)
	for i := 0; i < m.Rows; i++ {
		copy(result.Data[i], m.Data[i])
	}
	copy(result.Data[m.Rows], values)
	return result, nil
}

// Concatenate joins matrices side by side
func Concatenate(matrices ...*Matrix) (*Matrix, error) {
	if len(matrices) == 0 {
		return NewMatrix(0, 0), nil
	}
	rows := matrices[0].Rows
	cols := 0
	for _, mat := range matrices {
		if mat.Rows != rows {
			return nil, mismatch("Concatenate", matrices[0], mat)
		}
		cols += mat.Cols
	}

	result := NewMatrix(rows, cols)
	offset := 0
	for _, mat := range matrices {
		for i := 0; i < rows; i++ {
			copy(result.Data[i][offset:], mat.Data[i])
		}
		offset += mat.Cols
	}
	return result, nil
}

// Reshape reinterprets the row-major elements with a new shape
func (m *Matrix) Reshape(rows, cols int) (*Matrix, error) {
	if m.Rows*m.Cols != rows*cols {
		return nil, fmt.Errorf("%w in Reshape: (%d,%d) to (%d,%d)", ErrDimensionMismatch, m.Rows, m.Cols, rows, cols)
	}
	return FromArray(m.ToArray(), rows, cols), nil
}

// Flatten returns the elements as a single row
func (m *Matrix) Flatten() *Matrix {
	return FromArray(m.ToArray(), 1, m.Rows*m.Cols)
}

// PositionEncode returns a sinusoidal encoding of the same shape.
// Even rows use sin, odd rows cos, of angle 2*pi*col/cols.
func (m *Matrix) PositionEncode() *Matrix {
	result := NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			angle := float64(j) / float64(m.Cols) * 2 * math.Pi
			if i%2 == 0 {
				result.Data[i][j] = math.Sin(angle)
			} else {
				result.Data[i][j] = math.Cos(angle)
			}
		}
	}
	return result
}

// Randomize fills m in place with uniform values in [min, max)
func (m *Matrix) Randomize(min, max float64) {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] = rand.Float64()*(max-min) + min
		}
	}
}

// RandomMatrix creates a matrix of uniform values in [0, 1)
func RandomMatrix(rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	m.Randomize(0, 1)
	return m
}

// Fill sets every element to value
func (m *Matrix) Fill(value float64) {
	for i := range m.Data {
		for j := range m.Data[i] {
			m.Data[i][j] = value
		}
	}
}
