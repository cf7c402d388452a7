package math

import (
	"errors"
	"math"
	"testing"
)

func TestDotBackward(t *testing.T) {
	// Simple scalar case disguised as 1x1 matrix
	// C = A * B
	// Let A = 2, B = 3 -> C = 6
	// dL/dC = 1
	// dL/dA = B * dL/dC = 3 * 1 = 3
	// dL/dB = A * dL/dC = 2 * 1 = 2

	a := fromRows([][]float64{{2.0}})
	b := fromRows([][]float64{{3.0}})
	gradOutput := fromRows([][]float64{{1.0}})

	dA, dB, err := DotBackward(gradOutput, a, b)
	if err != nil {
		t.Fatalf("DotBackward failed: %v", err)
	}

	if math.Abs(dA.Data[0][0]-3.0) > 1e-6 {
		t.Errorf("Expected gradA 3.0, got %f", dA.Data[0][0])
	}
	if math.Abs(dB.Data[0][0]-2.0) > 1e-6 {
		t.Errorf("Expected gradB 2.0, got %f", dB.Data[0][0])
	}
}

func TestActivationBackward(t *testing.T) {
	// d(GELU)/dx at 0 = 0.5
	x := fromRows([][]float64{{0.0, 2.0}})
	gradOutput := fromRows([][]float64{{1.0, 3.0}})

	dx, err := ActivationBackward(x, gradOutput, GeluDerivative)
	if err != nil {
		t.Fatalf("ActivationBackward failed: %v", err)
	}
	if math.Abs(dx.Data[0][0]-0.5) > 1e-6 {
		t.Errorf("Expected gradX at 0 to be 0.5, got %f", dx.Data[0][0])
	}

	relu, err := ActivationBackward(fromRows([][]float64{{-1, 2}}), gradOutput, ReLUDerivative)
	if err != nil {
		t.Fatalf("ActivationBackward failed: %v", err)
	}
	if relu.Data[0][0] != 0 || relu.Data[0][1] != 3 {
		t.Errorf("ReLU backward = %v, want [0 3]", relu.Data)
	}
}

func TestSoftmaxBackward(t *testing.T) {
	tests := []struct {
		name    string
		softmax *Matrix
		want    *Matrix
	}{
		{
			name:    "one-hot extremes",
			softmax: fromRows([][]float64{{1, 0}, {0, 1}}),
			want:    fromRows([][]float64{{0, 0}, {0, 0}}),
		},
		{
			name:    "uniform",
			softmax: fromRows([][]float64{{0.5, 0.5}, {0.5, 0.5}}),
			want:    fromRows([][]float64{{0.25, -0.25}, {-0.25, 0.25}}),
		},
		{
			name:    "pairs across the diagonal",
			softmax: fromRows([][]float64{{0.2, 0.8}, {0.6, 0.4}}),
			want:    fromRows([][]float64{{0.16, -0.48}, {-0.48, 0.24}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SoftmaxBackward(tt.softmax)
			if err != nil {
				t.Fatalf("SoftmaxBackward failed: %v", err)
			}
			if !matrixEqual(got, tt.want) {
				t.Errorf("SoftmaxBackward() = %v, want %v", got.Data, tt.want.Data)
			}
		})
	}

	if _, err := SoftmaxBackward(NewMatrix(1, 2)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("SoftmaxBackward on non-square error = %v, want ErrDimensionMismatch", err)
	}
}
