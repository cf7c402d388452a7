package model

import (
	"fmt"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

// Regularizer transforms a projected representation during Forward
type Regularizer interface {
	Apply(input *tmath.Matrix) (*tmath.Matrix, error)
}

// Dropout zeroes elements with probability Rate and scales the survivors
// by 1/(1-Rate). Each call draws a fresh mask.
type Dropout struct {
	Rate float64
	Mask *tmath.Matrix // Mask of the last Apply call
}

// NewDropout creates a dropout regularizer with the given rate
func NewDropout(rate float64) *Dropout {
	return &Dropout{Rate: rate}
}

// Apply returns input with a fresh dropout mask applied.
// A non-positive rate returns input unchanged.
func (d *Dropout) Apply(input *tmath.Matrix) (*tmath.Matrix, error) {
	if d.Rate <= 0 {
		return input, nil
	}

	rate := d.Rate
	mask := tmath.RandomMatrix(input.Rows, input.Cols)
	mask.MapInPlace(func(v float64) float64 {
		if v < rate {
			return 0
		}
		return 1
	})
	d.Mask = mask

	masked, err := tmath.MultiplyElementWise(input, mask)
	if err != nil {
		return nil, fmt.Errorf("dropout mask failed: %w", err)
	}
	return masked.MultiplyScalar(1 / (1 - rate)), nil
}
