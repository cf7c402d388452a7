package math

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Map returns a new matrix with fn applied to every element
func (m *Matrix) Map(fn Activation) *Matrix {
	result := NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] = fn(m.Data[i][j])
		}
	}
	return result
}

// MapInPlace applies fn to every element of m
func (m *Matrix) MapInPlace(fn Activation) {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] = fn(m.Data[i][j])
		}
	}
}

func (m *Matrix) AddScalar(value float64) *Matrix {
	return m.Map(func(x float64) float64 { return x + value })
}

func (m *Matrix) SubtractScalar(value float64) *Matrix {
	return m.Map(func(x float64) float64 { return x - value })
}

func (m *Matrix) MultiplyScalar(value float64) *Matrix {
	return m.Map(func(x float64) float64 { return x * value })
}

// DivideScalar divides every element by value; a zero value yields Inf/NaN
func (m *Matrix) DivideScalar(value float64) *Matrix {
	return m.Map(func(x float64) float64 { return x / value })
}

func (m *Matrix) Reciprocal() *Matrix {
	return m.Map(func(x float64) float64 { return 1 / x })
}

// Sum returns the sum of all elements
func (m *Matrix) Sum() float64 {
	sum := 0.0
	for _, row := range m.Data {
		sum += floats.Sum(row)
	}
	return sum
}

// Mean returns the average of all elements
func (m *Matrix) Mean() float64 {
	return m.Sum() / float64(m.Rows*m.Cols)
}

// Variance returns the population variance of all elements
func (m *Matrix) Variance() float64 {
	mean := m.Mean()
	sum := 0.0
	for _, row := range m.Data {
		for _, v := range row {
			sum += (v - mean) * (v - mean)
		}
	}
	return sum / float64(m.Rows*m.Cols)
}

// MeanSquaredError returns mean((m - target)^2)
func (m *Matrix) MeanSquaredError(target *Matrix) (float64, error) {
	if !m.sameShape(target) {
		return 0, mismatch("MeanSquaredError", m, target)
	}
	sum := 0.0
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			d := m.Data[i][j] - target.Data[i][j]
			sum += d * d
		}
	}
	return sum / float64(m.Rows*m.Cols), nil
}

// Normalize divides every element by the total sum in place.
// A zero sum leaves m unchanged.
func (m *Matrix) Normalize() {
	sum := m.Sum()
	if sum == 0 {
		return
	}
	for i := range m.Data {
		floats.Scale(1/sum, m.Data[i])
	}
}

// ScaleToThreshold rescales m in place so its total sum is threshold,
// but only when the sum exceeds threshold.
func (m *Matrix) ScaleToThreshold(threshold float64) {
	sum := m.Sum()
	if sum <= threshold {
		return
	}
	for i := range m.Data {
		floats.Scale(threshold/sum, m.Data[i])
	}
}

// NormalizeMinMax rescales m in place to (x-min)/(max-min) over the whole matrix.
// A constant matrix has a zero range and becomes NaN.
func (m *Matrix) NormalizeMinMax() error {
	if m.Rows == 0 || m.Cols == 0 {
		return fmt.Errorf("%w in NormalizeMinMax: empty (%d,%d)", ErrDimensionMismatch, m.Rows, m.Cols)
	}
	lo, hi := m.Data[0][0], m.Data[0][0]
	for _, row := range m.Data {
		lo = min(lo, floats.Min(row))
		hi = max(hi, floats.Max(row))
	}
	rng := hi - lo
	for i := range m.Data {
		for j := range m.Data[i] {
			m.Data[i][j] = (m.Data[i][j] - lo) / rng
		}
	}
	return nil
}
