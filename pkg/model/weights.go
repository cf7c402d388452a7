package model

import (
	"encoding/json"
	"fmt"
	"os"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

// Snapshot holds a copy of the four attention weight matrices
type Snapshot struct {
	DModel        int           `json:"d_model"`
	NumHeads      int           `json:"num_heads"`
	QueryWeights  *tmath.Matrix `json:"query_weights"`
	KeyWeights    *tmath.Matrix `json:"key_weights"`
	ValueWeights  *tmath.Matrix `json:"value_weights"`
	OutputWeights *tmath.Matrix `json:"output_weights"`
}

// Save returns a deep copy of the current weights
func (a *MultiheadAttention) Save() *Snapshot {
	return &Snapshot{
		DModel:        a.DModel,
		NumHeads:      a.NumHeads,
		QueryWeights:  a.QueryWeights.Clone(),
		KeyWeights:    a.KeyWeights.Clone(),
		ValueWeights:  a.ValueWeights.Clone(),
		OutputWeights: a.OutputWeights.Clone(),
	}
}

// Load replaces the weights with copies from s and drops any forward cache
func (a *MultiheadAttention) Load(s *Snapshot) error {
	if err := s.validate(a.DModel); err != nil {
		return err
	}
	a.QueryWeights = s.QueryWeights.Clone()
	a.KeyWeights = s.KeyWeights.Clone()
	a.ValueWeights = s.ValueWeights.Clone()
	a.OutputWeights = s.OutputWeights.Clone()
	a.cache = nil
	a.state = Ready
	return nil
}

// NewFromSnapshot creates an attention block carrying the weights in s
func NewFromSnapshot(s *Snapshot, dropout float64) (*MultiheadAttention, error) {
	a, err := NewMultiheadAttention(s.DModel, s.NumHeads, dropout)
	if err != nil {
		return nil, err
	}
	if err := a.Load(s); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Snapshot) validate(dModel int) error {
	named := []struct {
		name string
		m    *tmath.Matrix
	}{
		{"query_weights", s.QueryWeights},
		{"key_weights", s.KeyWeights},
		{"value_weights", s.ValueWeights},
		{"output_weights", s.OutputWeights},
	}
	for _, w := range named {
		if w.m == nil {
			return fmt.Errorf("weight not found: %s", w.name)
		}
		if w.m.Rows != dModel || w.m.Cols != dModel || len(w.m.Data) != dModel {
			return fmt.Errorf("%w: %s is (%d,%d), want (%d,%d)",
				tmath.ErrDimensionMismatch, w.name, w.m.Rows, w.m.Cols, dModel, dModel)
		}
		for i, row := range w.m.Data {
			if len(row) != dModel {
				return fmt.Errorf("%w: %s row %d has %d columns", tmath.ErrDimensionMismatch, w.name, i, len(row))
			}
		}
	}
	return nil
}

// SaveJSON writes the snapshot to a JSON file
func (s *Snapshot) SaveJSON(filename string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write weights file: %w", err)
	}
	return nil
}

// LoadFromJSON loads a snapshot from a JSON file
func LoadFromJSON(filename string) (*Snapshot, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(file, &s); err != nil {
		return nil, fmt.Errorf("failed to parse weights JSON: %w", err)
	}
	if err := s.validate(s.DModel); err != nil {
		return nil, fmt.Errorf("invalid weights file: %w", err)
	}
	return &s, nil
}
