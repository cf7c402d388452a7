package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AttentionConfig
		wantErr bool
	}{
		{name: "valid", cfg: AttentionConfig{DModel: 8, NumHeads: 2}},
		{name: "zero d_model", cfg: AttentionConfig{DModel: 0, NumHeads: 2}, wantErr: true},
		{name: "zero heads", cfg: AttentionConfig{DModel: 8}, wantErr: true},
		{name: "indivisible heads", cfg: AttentionConfig{DModel: 10, NumHeads: 3}, wantErr: true},
		{name: "dropout of one", cfg: AttentionConfig{DModel: 8, NumHeads: 2, Dropout: 1}, wantErr: true},
		{name: "negative epochs", cfg: AttentionConfig{DModel: 8, NumHeads: 2, Epochs: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := AttentionConfig{DModel: 4, NumHeads: 4}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.LearningRate != 1e-4 {
		t.Errorf("LearningRate = %v, want default 1e-4", cfg.LearningRate)
	}
	if cfg.LogEvery != 100 {
		t.Errorf("LogEvery = %v, want default 100", cfg.LogEvery)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attention.json")
	body := `{"d_model": 12, "num_heads": 3, "dropout": 0, "learning_rate": 0.01, "epochs": 5}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DModel != 12 || cfg.NumHeads != 3 || cfg.Epochs != 5 || cfg.LearningRate != 0.01 {
		t.Errorf("LoadConfig() = %+v", cfg)
	}
	if cfg.Dropout != 0 {
		t.Errorf("explicit dropout 0 was replaced: %v", cfg.Dropout)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("LoadConfig() on a missing file should fail")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides(Overrides{DModel: 32, Epochs: 7, WeightsPath: "w.json"})

	if cfg.DModel != 32 || cfg.Epochs != 7 || cfg.WeightsPath != "w.json" {
		t.Errorf("ApplyOverrides() = %+v", cfg)
	}
	if cfg.NumHeads != 4 {
		t.Errorf("zero override changed NumHeads to %d", cfg.NumHeads)
	}
	if cfg.Dropout != 0.1 {
		t.Errorf("unset dropout override changed Dropout to %v", cfg.Dropout)
	}
}

func TestApplyOverridesDropout(t *testing.T) {
	tests := []struct {
		name    string
		dropout *float64
		want    float64
	}{
		{name: "unset keeps default", dropout: nil, want: 0.1},
		{name: "explicit zero disables", dropout: new(float64), want: 0},
		{name: "explicit rate", dropout: func() *float64 { v := 0.3; return &v }(), want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ApplyOverrides(Overrides{Dropout: tt.dropout})
			if cfg.Dropout != tt.want {
				t.Errorf("Dropout = %v, want %v", cfg.Dropout, tt.want)
			}
		})
	}
}
