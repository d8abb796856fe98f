package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/CaioMussatto/Cacaio-docker/embedding"

	"gonum.org/v1/gonum/mat"
)

func points(t *testing.T, ids []string, dim int, values []float64) embedding.Points {
	t.Helper()
	p, err := embedding.NewPoints(ids, embedding.ComponentNames("PC", dim), mat.NewDense(len(ids), dim, values))
	if err != nil {
		t.Fatalf("NewPoints: %v", err)
	}
	return p
}

func TestCompute_DistanceCorrelation(t *testing.T) {
	rows := points(t, []string{"S1", "S2"}, 4, []float64{
		1, 2, 3, 4,
		4, 1, 3, 2,
	})
	columns := points(t, []string{"T1", "T2"}, 4, []float64{
		1, 2, 3, 4,
		5, 5, 5, 5,
	})

	matrix, report, err := Compute(rows, columns, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if report.Pairs != 4 {
		t.Errorf("expected 4 pairs, got %d", report.Pairs)
	}

	if math.Abs(matrix.At(0, 0)-1) > 1e-9 {
		t.Errorf("identical vectors should score 1, got %f", matrix.At(0, 0))
	}
	if !matrix.Missing(0, 1) || !matrix.Missing(1, 1) {
		t.Errorf("constant column vector should produce missing cells")
	}
	if len(report.Failures) != 2 {
		t.Errorf("expected 2 failures, got %d", len(report.Failures))
	}
	for _, failure := range report.Failures {
		if failure.Column != "T2" {
			t.Errorf("unexpected failure %+v", failure)
		}
	}
}

func TestCompute_FailingMeasureIsIsolated(t *testing.T) {
	rows := points(t, []string{"a", "b", "c"}, 1, []float64{1, 2, 3})
	columns := points(t, []string{"x", "y"}, 1, []float64{10, 20})

	boom := errors.New("boom")
	measure := func(x, y []float64) (float64, error) {
		if x[0] == 2 && y[0] == 20 {
			return 0, boom
		}
		if x[0] == 3 && y[0] == 10 {
			return math.Inf(1), nil
		}
		return x[0] / y[0], nil
	}

	matrix, report, err := Compute(rows, columns, Options{Measure: measure, Workers: 8})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if matrix.Present() != 4 {
		t.Errorf("expected 4 present cells, got %d", matrix.Present())
	}
	if !matrix.Missing(1, 1) || !matrix.Missing(2, 0) {
		t.Errorf("failing pairs should be missing")
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(report.Failures))
	}
	if !errors.Is(report.Failures[0].Err, boom) {
		t.Errorf("first failure should carry the measure error, got %v", report.Failures[0].Err)
	}
}

func TestCompute_InputErrors(t *testing.T) {
	rows := points(t, []string{"a"}, 2, []float64{1, 2})
	columns := points(t, []string{"x"}, 3, []float64{1, 2, 3})

	if _, _, err := Compute(rows, columns, Options{}); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
	if _, _, err := Compute(rows, embedding.Points{}, Options{}); !errors.Is(err, embedding.ErrEmptyPopulation) {
		t.Errorf("expected ErrEmptyPopulation, got %v", err)
	}
}
