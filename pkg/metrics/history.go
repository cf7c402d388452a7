package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LossHistory accumulates the per-epoch training loss.
type LossHistory struct {
	losses []float64
}

// Record appends the loss of the next epoch.
func (h *LossHistory) Record(loss float64) {
	h.losses = append(h.losses, loss)
}

// Len returns the number of recorded epochs.
func (h *LossHistory) Len() int {
	return len(h.losses)
}

// Losses returns a copy of the recorded losses in epoch order.
func (h *LossHistory) Losses() []float64 {
	out := make([]float64, len(h.losses))
	copy(out, h.losses)
	return out
}

// Last returns the most recent loss, or NaN when nothing was recorded.
func (h *LossHistory) Last() float64 {
	if len(h.losses) == 0 {
		return math.NaN()
	}
	return h.losses[len(h.losses)-1]
}

// Best returns the lowest non-NaN loss and the epoch it was recorded at.
// ok is false when no finite loss exists.
func (h *LossHistory) Best() (epoch int, loss float64, ok bool) {
	epoch = -1
	for i, l := range h.losses {
		if math.IsNaN(l) {
			continue
		}
		if epoch < 0 || l < loss {
			epoch, loss = i, l
		}
	}
	return epoch, loss, epoch >= 0
}

// Scaled maps the losses onto [0, height] relative to the lowest and
// highest recorded loss, for plotting. A flat history maps to zeros.
func (h *LossHistory) Scaled(height float64) []float64 {
	out := h.Losses()
	if len(out) == 0 {
		return out
	}
	_, lo, ok := h.Best()
	if !ok {
		return out
	}
	hi := floats.Max(out)
	span := hi - lo
	if span == 0 || math.IsNaN(span) {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	floats.AddConst(-lo, out)
	floats.Scale(height/span, out)
	return out
}
