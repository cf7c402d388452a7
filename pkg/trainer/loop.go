package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
	"github.com/crislerwin/tiny-attention/pkg/metrics"
)

// ErrNaNLoss is returned when a sample produces a NaN loss.
var ErrNaNLoss = errors.New("trainer: loss is NaN")

// Model is the forward/backward pair the loop drives.
type Model interface {
	Forward(query, key, value *tmath.Matrix) (*tmath.Matrix, error)
	Backward(gradient *tmath.Matrix, learningRate float64) error
}

// Sample is one training pair. Target must match the model output shape.
type Sample struct {
	Query  *tmath.Matrix
	Key    *tmath.Matrix
	Value  *tmath.Matrix
	Target *tmath.Matrix
}

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Epochs       int
	LearningRate float64
	LogEvery     int
}

// Run trains mdl for cfg.Epochs epochs. Each epoch runs Forward on every
// sample, sums the per-sample MSE into the epoch loss and calls Backward
// once with the mean of (target - output) over the samples.
//
// The history recorded so far is returned alongside any error, including
// ErrNaNLoss and context cancellation.
func Run(ctx context.Context, cfg RunConfig, mdl Model, samples []Sample) (*metrics.LossHistory, error) {
	if cfg.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if len(samples) == 0 {
		return nil, errors.New("trainer: no samples")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}

	history := &metrics.LossHistory{}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		loss, gradient, err := runEpoch(mdl, samples)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		if err := mdl.Backward(gradient, cfg.LearningRate); err != nil {
			return history, fmt.Errorf("epoch %d: backward failed: %w", epoch, err)
		}

		history.Record(loss)
		if epoch%cfg.LogEvery == 0 || epoch == cfg.Epochs-1 {
			log.Printf("epoch=%d loss=%.6f", epoch, loss)
		}
	}

	return history, nil
}

func runEpoch(mdl Model, samples []Sample) (float64, *tmath.Matrix, error) {
	var total *tmath.Matrix
	loss := 0.0

	for i, s := range samples {
		output, err := mdl.Forward(s.Query, s.Key, s.Value)
		if err != nil {
			return 0, nil, fmt.Errorf("sample %d: forward failed: %w", i, err)
		}

		current, err := output.MeanSquaredError(s.Target)
		if err != nil {
			return 0, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if math.IsNaN(current) {
			return 0, nil, fmt.Errorf("sample %d: %w", i, ErrNaNLoss)
		}
		loss += current

		diff, err := tmath.Subtract(s.Target, output)
		if err != nil {
			return 0, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if total == nil {
			total = diff
		} else if err := total.Add(diff); err != nil {
			return 0, nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	return loss, total.DivideScalar(float64(len(samples))), nil
}
