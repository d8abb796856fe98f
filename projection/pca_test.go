package projection

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFitScaler_ZeroVarianceColumn(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})
	scaler := FitScaler(x)

	if scaler.Mean[0] != 2 || scaler.Mean[1] != 5 {
		t.Fatalf("unexpected means %v", scaler.Mean)
	}
	if scaler.Scale[1] != 1 {
		t.Errorf("constant column should get scale 1, got %g", scaler.Scale[1])
	}

	scaled, err := scaler.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for i := 0; i < 3; i++ {
		if scaled.At(i, 1) != 0 {
			t.Errorf("row %d: constant column should map to 0, got %g", i, scaled.At(i, 1))
		}
	}
	want := math.Sqrt(1.5)
	if got := scaled.At(2, 0); math.Abs(got-want) > 1e-12 {
		t.Errorf("scaled value = %g, want %g", got, want)
	}
}

func TestScalerTransform_DimensionMismatch(t *testing.T) {
	scaler := FitScaler(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	_, err := scaler.Transform(mat.NewDense(1, 3, nil))
	if !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestFitPCA_LineRecoversDirection(t *testing.T) {
	// Points on the line y = 2x.
	x := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 2,
		2, 4,
		3, 6,
	})
	pca, err := FitPCA(x, 1)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if pca.NComponents() != 1 {
		t.Fatalf("expected 1 component, got %d", pca.NComponents())
	}

	norm := math.Sqrt(5)
	if got := pca.Components.At(0, 0); math.Abs(got-1/norm) > 1e-9 {
		t.Errorf("component x = %g, want %g", got, 1/norm)
	}
	if got := pca.Components.At(0, 1); math.Abs(got-2/norm) > 1e-9 {
		t.Errorf("component y = %g, want %g", got, 2/norm)
	}

	projected, err := pca.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	rows, cols := projected.Dims()
	if rows != 4 || cols != 1 {
		t.Fatalf("projected dims = %dx%d, want 4x1", rows, cols)
	}
	if got := projected.At(3, 0) - projected.At(0, 0); math.Abs(got-3*norm) > 1e-9 {
		t.Errorf("projected spread = %g, want %g", got, 3*norm)
	}
}

func TestFitPCA_TooManyComponents(t *testing.T) {
	_, err := FitPCA(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}), 3)
	if !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestFitted_NotFitted(t *testing.T) {
	var fitted Fitted
	_, err := fitted.Transform(mat.NewDense(1, 1, nil))
	if !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestFitted_TransformMatchesSteps(t *testing.T) {
	x := mat.NewDense(5, 3, []float64{
		1, 0, 3,
		2, 1, 1,
		0, 4, 2,
		5, 2, 0,
		3, 3, 3,
	})
	scaler := FitScaler(x)
	scaled, err := scaler.Transform(x)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	pca, err := FitPCA(scaled, 2)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}

	fitted := Fitted{Scaler: scaler, PCA: pca}
	if fitted.Components() != 2 {
		t.Fatalf("Components = %d, want 2", fitted.Components())
	}
	got, err := fitted.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want, _ := pca.Transform(scaled)
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("fitted transform differs from step-wise transform")
	}

	_, err = fitted.Transform(mat.NewDense(1, 2, nil))
	if !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension for narrow input, got %v", err)
	}
}
