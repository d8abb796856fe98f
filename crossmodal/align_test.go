package crossmodal

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/expression"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

var panel = []string{"G1", "G2", "G3", "G4"}

// fixture fits a two-component projection on synthetic cells and returns the
// resulting embedding table with three samples of four cells each.
func fixture(t *testing.T, components int) (*embedding.Table, projection.Fitted) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	programmes := [][]float64{
		{8, 1, 1, 4},
		{1, 8, 2, 1},
		{2, 1, 8, 6},
	}
	samples := []string{"S1", "S2", "S3"}
	datasets := []string{"CCLE", "TCGA", "TCGA"}

	cells := mat.NewDense(12, len(panel), nil)
	var sampleColumn, datasetColumn []string
	for s, programme := range programmes {
		for c := 0; c < 4; c++ {
			row := s*4 + c
			for g, level := range programme {
				cells.Set(row, g, level+rng.NormFloat64()*0.3)
			}
			sampleColumn = append(sampleColumn, samples[s])
			datasetColumn = append(datasetColumn, datasets[s])
		}
	}

	scaler := projection.FitScaler(cells)
	scaled, err := scaler.Transform(cells)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	pca, err := projection.FitPCA(scaled, components)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	fitted := projection.Fitted{Scaler: scaler, PCA: pca}
	values, err := fitted.Transform(cells)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	table, err := embedding.NewTable(
		embedding.ComponentNames("PC", components),
		values,
		map[string][]string{"sample": sampleColumn, "dataset": datasetColumn},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table, fitted
}

func bulkMissingTwoGenes(t *testing.T) *expression.Matrix {
	t.Helper()
	bulk, err := expression.NewMatrix(
		[]string{"B1", "B2", "B3"},
		[]string{"G3", "OTHER", "G1"},
		mat.NewDense(3, 3, []float64{
			1, 5, 9,
			8, 5, 2,
			7, 0, 3,
		}),
	)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	return bulk
}

func TestAlign_ZeroFillsMissingGenes(t *testing.T) {
	table, fitted := fixture(t, 2)
	opts := DefaultOptions()
	opts.Components = 2

	result, err := Align(Request{
		Embedding:  table,
		Bulk:       bulkMissingTwoGenes(t),
		Panel:      panel,
		Projection: fitted,
		Options:    opts,
	})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if !reflect.DeepEqual(result.MissingGenes, []string{"G2", "G4"}) {
		t.Errorf("missing genes = %v, want [G2 G4]", result.MissingGenes)
	}
	if !reflect.DeepEqual(result.Pseudo.IDs, []string{"S1", "S2", "S3"}) {
		t.Errorf("pseudo ids = %v", result.Pseudo.IDs)
	}
	if !reflect.DeepEqual(result.Bulk.IDs, []string{"B1", "B2", "B3"}) {
		t.Errorf("bulk ids = %v", result.Bulk.IDs)
	}
	wantNames := []string{"HarmonyPC1", "HarmonyPC2"}
	if !reflect.DeepEqual(result.Pseudo.Components, wantNames) || !reflect.DeepEqual(result.Bulk.Components, wantNames) {
		t.Errorf("component names = %v / %v", result.Pseudo.Components, result.Bulk.Components)
	}

	for _, points := range []embedding.Points{result.Pseudo, result.Bulk} {
		rows, cols := points.Values.Dims()
		if rows != 3 || cols != 2 {
			t.Fatalf("dims = %dx%d, want 3x2", rows, cols)
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := points.Values.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("non-finite value at %d,%d", i, j)
				}
			}
		}
	}
	if result.Centroids.Labels["S1"] != "CCLE" {
		t.Errorf("centroid labels lost: %v", result.Centroids.Labels)
	}
}

func TestAlign_EmptyInputs(t *testing.T) {
	table, fitted := fixture(t, 2)
	opts := DefaultOptions()
	opts.Components = 2

	_, err := Align(Request{Embedding: table, Panel: panel, Projection: fitted, Options: opts})
	if !errors.Is(err, embedding.ErrEmptyPopulation) {
		t.Errorf("nil bulk: expected ErrEmptyPopulation, got %v", err)
	}

	empty, _ := embedding.NewTable([]string{"PC1", "PC2"}, nil, nil)
	_, err = Align(Request{Embedding: empty, Bulk: bulkMissingTwoGenes(t), Panel: panel, Projection: fitted, Options: opts})
	if !errors.Is(err, embedding.ErrEmptyPopulation) {
		t.Errorf("empty embedding: expected ErrEmptyPopulation, got %v", err)
	}
}

func TestAlign_ProjectionWidthMismatch(t *testing.T) {
	table, fitted := fixture(t, 3)
	opts := DefaultOptions()
	opts.Components = 2

	_, err := Align(Request{Embedding: table, Bulk: bulkMissingTwoGenes(t), Panel: panel, Projection: fitted, Options: opts})
	if !errors.Is(err, projection.ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestAlign_EmptyPanel(t *testing.T) {
	table, fitted := fixture(t, 2)
	opts := DefaultOptions()
	opts.Components = 2

	_, err := Align(Request{Embedding: table, Bulk: bulkMissingTwoGenes(t), Projection: fitted, Options: opts})
	if !errors.Is(err, expression.ErrEmptyPanel) {
		t.Fatalf("expected ErrEmptyPanel, got %v", err)
	}
}

func TestAlign_MissingComponents(t *testing.T) {
	table, fitted := fixture(t, 2)
	opts := DefaultOptions()

	_, err := Align(Request{Embedding: table, Bulk: bulkMissingTwoGenes(t), Panel: panel, Projection: fitted, Options: opts})
	if !errors.Is(err, embedding.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn for 50 requested components, got %v", err)
	}
}

func TestAlign_FillsHarmonyDefaults(t *testing.T) {
	table, fitted := fixture(t, 2)
	defaults := DefaultOptions()
	defaults.Components = 2

	want, err := Align(Request{Embedding: table, Bulk: bulkMissingTwoGenes(t), Panel: panel, Projection: fitted, Options: defaults})
	if err != nil {
		t.Fatalf("Align with defaults: %v", err)
	}
	got, err := Align(Request{Embedding: table, Bulk: bulkMissingTwoGenes(t), Panel: panel, Projection: fitted, Options: Options{Components: 2}})
	if err != nil {
		t.Fatalf("Align with bare options: %v", err)
	}

	if !mat.Equal(got.Pseudo.Values, want.Pseudo.Values) || !mat.Equal(got.Bulk.Values, want.Bulk.Values) {
		t.Error("bare options should align exactly like the defaults")
	}
	if got.Iterations != want.Iterations {
		t.Errorf("iterations = %d, want %d", got.Iterations, want.Iterations)
	}
}
