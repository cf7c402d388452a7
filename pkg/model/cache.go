package model

import (
	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

// State is the position of an attention block in the forward/backward protocol
type State int

const (
	// Ready means no forward activations are cached; Backward will fail.
	Ready State = iota
	// ForwardCached means the last Forward call's activations are available.
	ForwardCached
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case ForwardCached:
		return "forward-cached"
	default:
		return "unknown"
	}
}

// AttentionCache holds the values of the most recent forward pass
// that the backward pass consumes
type AttentionCache struct {
	Query  *tmath.Matrix
	Key    *tmath.Matrix
	Value  *tmath.Matrix
	Output *tmath.Matrix // After the output projection
}
