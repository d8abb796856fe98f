package expression

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestReindex_ZeroFillsMissingGenes(t *testing.T) {
	m, err := NewMatrix(
		[]string{"bulk1", "bulk2"},
		[]string{"TP53", "EXTRA", "MYC"},
		mat.NewDense(2, 3, []float64{
			1, 100, 2,
			3, 200, 4,
		}),
	)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}

	panel := []string{"MYC", "EGFR", "TP53", "KRAS"}
	reindexed, missing, err := m.Reindex(panel)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	r, c := reindexed.Values.Dims()
	if r != 2 || c != 4 {
		t.Fatalf("expected 2x4, got %dx%d", r, c)
	}
	want := [][]float64{
		{2, 0, 1, 0},
		{4, 0, 3, 0},
	}
	for i := range want {
		for j := range want[i] {
			if got := reindexed.Values.At(i, j); got != want[i][j] {
				t.Errorf("cell (%d,%d) = %f, want %f", i, j, got, want[i][j])
			}
		}
	}

	if len(missing) != 2 || missing[0] != "EGFR" || missing[1] != "KRAS" {
		t.Errorf("unexpected missing genes %v", missing)
	}
	if reindexed.Samples[1] != "bulk2" {
		t.Errorf("sample ids should be preserved, got %v", reindexed.Samples)
	}
}

func TestReindex_EmptyPanel(t *testing.T) {
	m, err := NewMatrix([]string{"a"}, []string{"g"}, mat.NewDense(1, 1, []float64{1}))
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	if _, _, err := m.Reindex(nil); !errors.Is(err, ErrEmptyPanel) {
		t.Errorf("expected ErrEmptyPanel, got %v", err)
	}
}

func TestNewMatrix_Validation(t *testing.T) {
	if _, err := NewMatrix(nil, nil, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := NewMatrix([]string{"a"}, []string{"g1", "g2"}, mat.NewDense(1, 1, nil)); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}
