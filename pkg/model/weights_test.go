package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tmath "github.com/crislerwin/tiny-attention/pkg/math"
)

func TestSaveIsACopy(t *testing.T) {
	a, err := NewMultiheadAttention(4, 2, 0)
	if err != nil {
		t.Fatalf("NewMultiheadAttention() error = %v", err)
	}

	snap := a.Save()
	snap.QueryWeights.Data[0][0] = 42
	if a.QueryWeights.Data[0][0] == 42 {
		t.Errorf("Save() shares storage with the live weights")
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	a, err := NewMultiheadAttention(6, 3, 0)
	if err != nil {
		t.Fatalf("NewMultiheadAttention() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "weights.json")

	if err := a.Save().SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}
	snap, err := LoadFromJSON(path)
	if err != nil {
		t.Fatalf("LoadFromJSON() error = %v", err)
	}

	restored, err := NewFromSnapshot(snap, 0)
	if err != nil {
		t.Fatalf("NewFromSnapshot() error = %v", err)
	}
	if restored.NumHeads != 3 || restored.HeadSize != 2 {
		t.Errorf("restored heads = %d x %d, want 3 x 2", restored.NumHeads, restored.HeadSize)
	}

	x := fixedInput(6, 6)
	want, err := a.Forward(x, x, x)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	got, err := restored.Forward(x, x, x)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if !matrixClose(got, want, 1e-12) {
		t.Errorf("restored Forward() = %v, want %v", got.Data, want.Data)
	}
}

func TestLoadRejectsBadSnapshots(t *testing.T) {
	a, err := NewMultiheadAttention(4, 2, 0)
	if err != nil {
		t.Fatalf("NewMultiheadAttention() error = %v", err)
	}

	missing := a.Save()
	missing.KeyWeights = nil
	if err := a.Load(missing); err == nil {
		t.Errorf("Load() with missing key weights should fail")
	}

	wrongShape := a.Save()
	wrongShape.ValueWeights = tmath.NewMatrix(4, 3)
	if err := a.Load(wrongShape); !errors.Is(err, tmath.ErrDimensionMismatch) {
		t.Errorf("Load() error = %v, want ErrDimensionMismatch", err)
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"d_model": 2, "num_heads": 1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFromJSON(path); err == nil {
		t.Errorf("LoadFromJSON() without weights should fail")
	}
}

func TestLoadResetsForwardCache(t *testing.T) {
	a, err := NewMultiheadAttention(4, 2, 0)
	if err != nil {
		t.Fatalf("NewMultiheadAttention() error = %v", err)
	}
	x := fixedInput(4, 4)
	if _, err := a.Forward(x, x, x); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if err := a.Load(a.Save()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.State() != Ready {
		t.Errorf("State() after Load = %v, want %v", a.State(), Ready)
	}
}
