package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/crislerwin/tiny-attention/pkg/config"
	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

var (
	// ErrInvalidHeads is returned when dModel cannot be split into numHeads equal heads.
	ErrInvalidHeads = errors.New("invalid attention head configuration")
	// ErrNoForwardCache is returned by Backward when no Forward activations are cached.
	ErrNoForwardCache = errors.New("backward called without a preceding forward")
)

// MultiheadAttention is a learned attention block with manual backpropagation.
//
// Projections are split into NumHeads contiguous row blocks of HeadSize rows.
// Forward caches its inputs and output for the next Backward call, so a
// single instance must not run overlapping Forward/Backward pairs.
type MultiheadAttention struct {
	DModel        int
	NumHeads      int
	HeadSize      int
	StableSoftmax bool

	QueryWeights  *tmath.Matrix
	KeyWeights    *tmath.Matrix
	ValueWeights  *tmath.Matrix
	OutputWeights *tmath.Matrix

	// Regularizer is applied to the query/key/value projections in Forward.
	Regularizer Regularizer

	state State
	cache *AttentionCache
}

// NewMultiheadAttention creates an attention block with uniformly initialized weights
func NewMultiheadAttention(dModel, numHeads int, dropout float64) (*MultiheadAttention, error) {
	if dModel <= 0 || numHeads <= 0 {
		return nil, fmt.Errorf("%w: d_model=%d num_heads=%d must be positive", ErrInvalidHeads, dModel, numHeads)
	}
	if dModel%numHeads != 0 {
		return nil, fmt.Errorf("%w: d_model (%d) must be divisible by num_heads (%d)", ErrInvalidHeads, dModel, numHeads)
	}

	a := &MultiheadAttention{
		DModel:        dModel,
		NumHeads:      numHeads,
		HeadSize:      dModel / numHeads,
		QueryWeights:  initializeWeights(dModel, dModel),
		KeyWeights:    initializeWeights(dModel, dModel),
		ValueWeights:  initializeWeights(dModel, dModel),
		OutputWeights: initializeWeights(dModel, dModel),
		state:         Ready,
	}
	if dropout > 0 {
		a.Regularizer = NewDropout(dropout)
	}
	return a, nil
}

// NewFromConfig creates an attention block from a validated configuration
func NewFromConfig(cfg *config.AttentionConfig) (*MultiheadAttention, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid attention config: %w", err)
	}
	a, err := NewMultiheadAttention(cfg.DModel, cfg.NumHeads, cfg.Dropout)
	if err != nil {
		return nil, err
	}
	a.StableSoftmax = cfg.StableSoftmax
	return a, nil
}

// initializeWeights draws from U(-1/sqrt(cols), 1/sqrt(cols))
func initializeWeights(rows, cols int) *tmath.Matrix {
	limit := 1 / math.Sqrt(float64(cols))
	w := tmath.NewMatrix(rows, cols)
	w.Randomize(-limit, limit)
	return w
}

// State reports whether a forward pass is cached for Backward
func (a *MultiheadAttention) State() State {
	return a.state
}

// Forward projects query, key and value, runs scaled dot-product attention
// per head, stacks the head outputs in head order and applies the output
// projection. The result always has NumHeads*HeadSize rows: inputs with
// fewer than DModel rows are zero-padded per head, extra rows are ignored.
func (a *MultiheadAttention) Forward(query, key, value *tmath.Matrix) (*tmath.Matrix, error) {
	queryProjected, err := a.project(query, a.QueryWeights)
	if err != nil {
		return nil, fmt.Errorf("query projection failed: %w", err)
	}
	keyProjected, err := a.project(key, a.KeyWeights)
	if err != nil {
		return nil, fmt.Errorf("key projection failed: %w", err)
	}
	valueProjected, err := a.project(value, a.ValueWeights)
	if err != nil {
		return nil, fmt.Errorf("value projection failed: %w", err)
	}

	heads := tmath.NewMatrix(0, a.DModel)
	for h := 0; h < a.NumHeads; h++ {
		qHead, kHead, vHead, err := a.sliceHead(h, queryProjected, keyProjected, valueProjected)
		if err != nil {
			return nil, err
		}

		headOut, _, err := a.ScaledDotProductAttention(qHead, kHead, vHead)
		if err != nil {
			return nil, fmt.Errorf("attention failed in head %d: %w", h, err)
		}

		heads, err = heads.Append(headOut)
		if err != nil {
			return nil, fmt.Errorf("concatenating head %d failed: %w", h, err)
		}
	}

	output, err := tmath.Dot(heads, a.OutputWeights)
	if err != nil {
		return nil, fmt.Errorf("output projection failed: %w", err)
	}

	a.cache = &AttentionCache{
		Query:  query,
		Key:    key,
		Value:  value,
		Output: output,
	}
	a.state = ForwardCached

	return output, nil
}

// Backward propagates gradient through the block and updates all four
// weight matrices in place with weights += rate * grad. The query, key and
// value updates use learningRate/NumHeads. The gradient is expected to be
// pre-negated (target - output), which makes the additive update descend.
//
// A gradient whose shape differs from the cached output is rejected
// before any weight changes.
func (a *MultiheadAttention) Backward(gradient *tmath.Matrix, learningRate float64) error {
	if a.state != ForwardCached || a.cache == nil {
		return ErrNoForwardCache
	}
	cache := a.cache
	if gradient.Rows != cache.Output.Rows || gradient.Cols != cache.Output.Cols {
		return fmt.Errorf("%w in Backward: gradient (%d,%d) vs output (%d,%d)",
			tmath.ErrDimensionMismatch, gradient.Rows, gradient.Cols, cache.Output.Rows, cache.Output.Cols)
	}

	// dWo = output^T @ gradient
	gradOutputWeights, err := tmath.Dot(cache.Output.Transpose(), gradient)
	if err != nil {
		return fmt.Errorf("output weight gradient failed: %w", err)
	}
	if err := a.OutputWeights.Add(gradOutputWeights.MultiplyScalar(learningRate)); err != nil {
		return fmt.Errorf("output weight update failed: %w", err)
	}

	// Uses the output weights as just updated
	gradInput, err := tmath.Dot(gradient, a.OutputWeights.Transpose())
	if err != nil {
		return fmt.Errorf("input gradient failed: %w", err)
	}

	gradQuery := tmath.NewMatrix(0, a.DModel)
	gradKey := tmath.NewMatrix(0, a.DModel)
	gradValue := tmath.NewMatrix(0, a.DModel)

	for h := 0; h < a.NumHeads; h++ {
		start, end := a.headRange(h)
		gradHead, err := gradInput.SliceRow(start, end)
		if err != nil {
			return fmt.Errorf("slicing gradient for head %d failed: %w", h, err)
		}
		qHead, kHead, vHead, err := a.sliceHead(h, cache.Query, cache.Key, cache.Value)
		if err != nil {
			return err
		}

		dQuery, dKey, dValue, err := a.ScaledDotProductAttentionBackward(gradHead, qHead, kHead, vHead)
		if err != nil {
			return fmt.Errorf("attention backward failed in head %d: %w", h, err)
		}

		if gradQuery, err = gradQuery.Append(dQuery); err != nil {
			return fmt.Errorf("accumulating query gradient for head %d failed: %w", h, err)
		}
		if gradKey, err = gradKey.Append(dKey); err != nil {
			return fmt.Errorf("accumulating key gradient for head %d failed: %w", h, err)
		}
		if gradValue, err = gradValue.Append(dValue); err != nil {
			return fmt.Errorf("accumulating value gradient for head %d failed: %w", h, err)
		}
	}

	scaled := learningRate / float64(a.NumHeads)
	if err := a.QueryWeights.Add(gradQuery.MultiplyScalar(scaled)); err != nil {
		return fmt.Errorf("query weight update failed: %w", err)
	}
	if err := a.KeyWeights.Add(gradKey.MultiplyScalar(scaled)); err != nil {
		return fmt.Errorf("key weight update failed: %w", err)
	}
	if err := a.ValueWeights.Add(gradValue.MultiplyScalar(scaled)); err != nil {
		return fmt.Errorf("value weight update failed: %w", err)
	}

	a.cache = nil
	a.state = Ready
	return nil
}

// CalculateAttentionScores returns (query @ key^T) / sqrt(HeadSize)
func (a *MultiheadAttention) CalculateAttentionScores(query, key *tmath.Matrix) (*tmath.Matrix, error) {
	scores, err := tmath.Dot(query, key.Transpose())
	if err != nil {
		return nil, fmt.Errorf("attention scores failed: %w", err)
	}
	return scores.MultiplyScalar(1 / math.Sqrt(float64(a.HeadSize))), nil
}

// ScaledDotProductAttention returns softmax(scores) @ value and the attention weights
func (a *MultiheadAttention) ScaledDotProductAttention(query, key, value *tmath.Matrix) (*tmath.Matrix, *tmath.Matrix, error) {
	scores, err := a.CalculateAttentionScores(query, key)
	if err != nil {
		return nil, nil, err
	}
	weights := a.softmax(scores)

	output, err := tmath.Dot(weights, value)
	if err != nil {
		return nil, nil, fmt.Errorf("attention output failed: %w", err)
	}
	return output, weights, nil
}

// ScaledDotProductAttentionBackward returns the query, key and value
// gradients of one head given the gradient of its output
func (a *MultiheadAttention) ScaledDotProductAttentionBackward(gradOutput, query, key, value *tmath.Matrix) (*tmath.Matrix, *tmath.Matrix, *tmath.Matrix, error) {
	scores, err := a.CalculateAttentionScores(query, key)
	if err != nil {
		return nil, nil, nil, err
	}
	weights := a.softmax(scores)

	// dWeights = gradOutput @ value^T, dValue = weights^T @ gradOutput
	gradWeights, gradValue, err := tmath.DotBackward(gradOutput, weights, value)
	if err != nil {
		return nil, nil, nil, err
	}

	softmaxGrad, err := tmath.SoftmaxBackward(weights)
	if err != nil {
		return nil, nil, nil, err
	}
	gradScores, err := tmath.MultiplyElementWise(softmaxGrad, gradWeights)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("score gradient failed: %w", err)
	}
	gradScores = gradScores.MultiplyScalar(1 / float64(a.HeadSize))

	gradQuery, err := tmath.Dot(gradScores, key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query gradient failed: %w", err)
	}
	gradKey, err := tmath.Dot(gradScores, query)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("key gradient failed: %w", err)
	}

	return gradQuery, gradKey, gradValue, nil
}

// HeadWeights returns the attention weights of every head for the given
// query and key without dropout and without touching the forward cache.
func (a *MultiheadAttention) HeadWeights(query, key *tmath.Matrix) ([]*tmath.Matrix, error) {
	queryProjected, err := tmath.Dot(query, a.QueryWeights)
	if err != nil {
		return nil, fmt.Errorf("query projection failed: %w", err)
	}
	keyProjected, err := tmath.Dot(key, a.KeyWeights)
	if err != nil {
		return nil, fmt.Errorf("key projection failed: %w", err)
	}

	maps := make([]*tmath.Matrix, a.NumHeads)
	for h := 0; h < a.NumHeads; h++ {
		start, end := a.headRange(h)
		qHead, err := queryProjected.SliceRow(start, end)
		if err != nil {
			return nil, err
		}
		kHead, err := keyProjected.SliceRow(start, end)
		if err != nil {
			return nil, err
		}
		scores, err := a.CalculateAttentionScores(qHead, kHead)
		if err != nil {
			return nil, fmt.Errorf("head %d: %w", h, err)
		}
		maps[h] = a.softmax(scores)
	}
	return maps, nil
}

func (a *MultiheadAttention) project(input, weights *tmath.Matrix) (*tmath.Matrix, error) {
	projected, err := tmath.Dot(input, weights)
	if err != nil {
		return nil, err
	}
	if a.Regularizer == nil {
		return projected, nil
	}
	return a.Regularizer.Apply(projected)
}

func (a *MultiheadAttention) headRange(h int) (int, int) {
	return h * a.HeadSize, (h + 1) * a.HeadSize
}

func (a *MultiheadAttention) sliceHead(h int, query, key, value *tmath.Matrix) (*tmath.Matrix, *tmath.Matrix, *tmath.Matrix, error) {
	start, end := a.headRange(h)
	qHead, err := query.SliceRow(start, end)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("slicing query for head %d failed: %w", h, err)
	}
	kHead, err := key.SliceRow(start, end)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("slicing key for head %d failed: %w", h, err)
	}
	vHead, err := value.SliceRow(start, end)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("slicing value for head %d failed: %w", h, err)
	}
	return qHead, kHead, vHead, nil
}

func (a *MultiheadAttention) softmax(scores *tmath.Matrix) *tmath.Matrix {
	if a.StableSoftmax {
		return scores.SoftmaxStable()
	}
	return scores.Softmax()
}
