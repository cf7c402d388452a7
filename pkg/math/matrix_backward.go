package math

import "fmt"

// DotBackward computes gradients for matrix multiplication C = A @ B
// Returns dL/dA and dL/dB given dL/dC (gradOutput)
func DotBackward(gradOutput, a, b *Matrix) (*Matrix, *Matrix, error) {
	// dL/dA = dL/dC @ B^T
	gradA, err := Dot(gradOutput, b.Transpose())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute gradA: %w", err)
	}

	// dL/dB = A^T @ dL/dC
	gradB, err := Dot(a.Transpose(), gradOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute gradB: %w", err)
	}

	return gradA, gradB, nil
}

// ActivationBackward scales gradOutput by derivative(x) element-wise
func ActivationBackward(x, gradOutput *Matrix, derivative Activation) (*Matrix, error) {
	return MultiplyElementWise(x.Map(derivative), gradOutput)
}

// SoftmaxBackward returns the simplified softmax derivative used by the
// attention backward pass:
//
//	result[i][j] = s[i][j]*(1-s[i][j])  if i == j
//	result[i][j] = -s[i][j]*s[j][i]     otherwise
//
// It pairs entries across the diagonal, so softmax must be square.
func SoftmaxBackward(softmax *Matrix) (*Matrix, error) {
	if softmax.Rows != softmax.Cols {
		return nil, fmt.Errorf("%w in SoftmaxBackward: (%d,%d) is not square", ErrDimensionMismatch, softmax.Rows, softmax.Cols)
	}

	s := softmax.Data
	result := NewMatrix(softmax.Rows, softmax.Cols)
	for i := 0; i < softmax.Rows; i++ {
		for j := 0; j < softmax.Cols; j++ {
			if i == j {
				result.Data[i][j] = s[i][j] * (1 - s[i][j])
			} else {
				result.Data[i][j] = -s[i][j] * s[j][i]
			}
		}
	}
	return result, nil
}
