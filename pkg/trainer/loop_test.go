package trainer

import (
	"context"
	"errors"
	"math"
	"testing"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
	"github.com/crislerwin/tiny-attention/pkg/model"
)

type fakeModel struct {
	output    *tmath.Matrix
	forwards  int
	gradients []*tmath.Matrix
	rates     []float64
}

func (f *fakeModel) Forward(query, key, value *tmath.Matrix) (*tmath.Matrix, error) {
	f.forwards++
	return f.output.Clone(), nil
}

func (f *fakeModel) Backward(gradient *tmath.Matrix, learningRate float64) error {
	f.gradients = append(f.gradients, gradient)
	f.rates = append(f.rates, learningRate)
	return nil
}

func TestRunAveragesGradient(t *testing.T) {
	fake := &fakeModel{output: tmath.Zeros(2, 2)}
	in := tmath.Zeros(2, 2)
	samples := []Sample{
		{Query: in, Key: in, Value: in, Target: tmath.Filled(2, 2, 2)},
		{Query: in, Key: in, Value: in, Target: tmath.Filled(4, 2, 2)},
	}

	history, err := Run(context.Background(), RunConfig{Epochs: 3, LearningRate: 0.5}, fake, samples)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if fake.forwards != 6 || len(fake.gradients) != 3 {
		t.Fatalf("forwards = %d, backwards = %d, want 6 and 3", fake.forwards, len(fake.gradients))
	}
	for _, row := range fake.gradients[0].Data {
		for _, v := range row {
			if v != 3 {
				t.Fatalf("gradient = %v, want all 3", fake.gradients[0].Data)
			}
		}
	}
	if fake.rates[0] != 0.5 {
		t.Errorf("learning rate = %v, want 0.5", fake.rates[0])
	}
	if history.Len() != 3 || history.Last() != 20 {
		t.Errorf("history = %v, want three epochs of loss 20", history.Losses())
	}
}

func TestRunErrors(t *testing.T) {
	in := tmath.Zeros(2, 2)
	nanTarget := tmath.Zeros(2, 2)
	nanTarget.Set(0, 0, math.NaN())
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		cfg     RunConfig
		samples []Sample
		target  error
		wantLen int
	}{
		{
			name:    "no epochs",
			ctx:     context.Background(),
			cfg:     RunConfig{},
			samples: []Sample{{Query: in, Key: in, Value: in, Target: in}},
		},
		{
			name: "no samples",
			ctx:  context.Background(),
			cfg:  RunConfig{Epochs: 1},
		},
		{
			name:    "nan loss",
			ctx:     context.Background(),
			cfg:     RunConfig{Epochs: 2},
			samples: []Sample{{Query: in, Key: in, Value: in, Target: nanTarget}},
			target:  ErrNaNLoss,
		},
		{
			name:    "target shape mismatch",
			ctx:     context.Background(),
			cfg:     RunConfig{Epochs: 2},
			samples: []Sample{{Query: in, Key: in, Value: in, Target: tmath.Zeros(3, 2)}},
			target:  tmath.ErrDimensionMismatch,
		},
		{
			name:    "canceled",
			ctx:     canceled,
			cfg:     RunConfig{Epochs: 2},
			samples: []Sample{{Query: in, Key: in, Value: in, Target: in}},
			target:  context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModel{output: tmath.Zeros(2, 2)}
			history, err := Run(tt.ctx, tt.cfg, fake, tt.samples)
			if err == nil {
				t.Fatalf("Run() should fail")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Run() error = %v, want %v", err, tt.target)
			}
			if history != nil && history.Len() != tt.wantLen {
				t.Errorf("history length = %d, want %d", history.Len(), tt.wantLen)
			}
			if len(fake.gradients) != 0 {
				t.Errorf("Backward called %d times", len(fake.gradients))
			}
		})
	}
}

func TestRunTrainsAttention(t *testing.T) {
	attn, err := model.NewMultiheadAttention(4, 2, 0)
	if err != nil {
		t.Fatalf("NewMultiheadAttention() error = %v", err)
	}
	before := attn.Save()

	query := tmath.FromArray([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}, 4, 4)
	samples := []Sample{{
		Query:  query,
		Key:    query.PositionEncode(),
		Value:  query,
		Target: tmath.FromArray([]float64{0.5, 0.6, 0.7}, 4, 4),
	}}

	history, err := Run(context.Background(), RunConfig{Epochs: 5, LearningRate: 0.01, LogEvery: 2}, attn, samples)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if history.Len() != 5 {
		t.Errorf("history length = %d, want 5", history.Len())
	}
	if attn.State() != model.Ready {
		t.Errorf("State() after training = %v, want %v", attn.State(), model.Ready)
	}

	after := attn.Save()
	if after.OutputWeights.Data[0][0] == before.OutputWeights.Data[0][0] &&
		after.OutputWeights.Data[1][1] == before.OutputWeights.Data[1][1] {
		t.Errorf("training left the output weights unchanged")
	}
}
