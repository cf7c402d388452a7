package math

import "gonum.org/v1/gonum/mat"

// ToDense copies m into a gonum dense matrix.
// An empty matrix has no gonum representation and returns nil.
func (m *Matrix) ToDense() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return nil
	}
	return mat.NewDense(m.Rows, m.Cols, m.ToArray())
}

// FromDense copies any gonum matrix into a new Matrix
func FromDense(d mat.Matrix) *Matrix {
	rows, cols := d.Dims()
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Data[i][j] = d.At(i, j)
		}
	}
	return m
}

// Norm returns the Frobenius norm of m, zero for an empty matrix
func (m *Matrix) Norm() float64 {
	d := m.ToDense()
	if d == nil {
		return 0
	}
	return mat.Norm(d, 2)
}
