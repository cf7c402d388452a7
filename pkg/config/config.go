package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// AttentionConfig holds the attention block and training run configuration
type AttentionConfig struct {
	DModel        int     `json:"d_model"`
	NumHeads      int     `json:"num_heads"`
	Dropout       float64 `json:"dropout"`
	StableSoftmax bool    `json:"stable_softmax"`
	LearningRate  float64 `json:"learning_rate"`
	Epochs        int     `json:"epochs"`
	LogEvery      int     `json:"log_every"`
	WeightsPath   string  `json:"weights_path"`
}

// Overrides captures CLI supplied values. Zero values and a nil Dropout
// leave the config untouched.
type Overrides struct {
	DModel       int
	NumHeads     int
	Dropout      *float64
	LearningRate float64
	Epochs       int
	LogEvery     int
	WeightsPath  string
}

// Validate checks if the configuration is valid
func (c *AttentionConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.DModel <= 0 {
		return fmt.Errorf("d_model must be positive, got %d", c.DModel)
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("num_heads must be positive, got %d", c.NumHeads)
	}
	if c.DModel%c.NumHeads != 0 {
		return fmt.Errorf("d_model (%d) must be divisible by num_heads (%d)", c.DModel, c.NumHeads)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0,1), got %g", c.Dropout)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must not be negative, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 1e-4
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	return nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *AttentionConfig) ApplyOverrides(o Overrides) {
	if o.DModel > 0 {
		c.DModel = o.DModel
	}
	if o.NumHeads > 0 {
		c.NumHeads = o.NumHeads
	}
	if o.Dropout != nil {
		c.Dropout = *o.Dropout
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.WeightsPath != "" {
		c.WeightsPath = o.WeightsPath
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filename string) (*AttentionConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *AttentionConfig {
	return &AttentionConfig{
		DModel:       16,
		NumHeads:     4,
		Dropout:      0.1,
		LearningRate: 1e-4,
		Epochs:       1000,
		LogEvery:     100,
	}
}
