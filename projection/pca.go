// Package projection maps expression data into a principal-component space and
// batch-corrects embeddings that come from different sources.
//
// # Fitted Projection Overview
//
// A reference single-cell dataset defines the embedding space. Its expression
// matrix (cells × highly variable genes) is first standardised gene by gene
// and then projected onto its leading principal components. Both steps are
// fitted once and afterwards applied unchanged to new data, so bulk samples
// land in the same coordinates as the cells the space was built from:
//
//	embedded = ((X - scalerMean) / scalerScale - pcaMean) × Componentsᵀ
//
// # Why We Use Singular Value Decomposition (SVD)
//
// For a centred data matrix X = U · Σ · Vᵀ the rows of Vᵀ are the principal
// component directions, ordered by the variance they capture (Σ²/(n-1)).
// SVD avoids forming XᵀX explicitly and is numerically more stable than an
// eigen decomposition of the covariance matrix.
package projection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrDimension = errors.New("projection: dimension mismatch")
	ErrNotFitted = errors.New("projection: transform is not fitted")
	ErrSVD       = errors.New("projection: SVD failed")
	ErrConfig    = errors.New("projection: invalid configuration")
)

// Transformer is a previously fitted, read-only matrix transform.
type Transformer interface {
	// Transform maps every row of x into the transform's output space.
	// It never modifies x.
	Transform(x mat.Matrix) (*mat.Dense, error)
}

// Scaler standardises each column: (x - Mean) / Scale.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-column means and population standard deviations.
// Columns without variance get a scale of 1 so they map to zero.
func FitScaler(x mat.Matrix) *Scaler {
	_, columns := x.Dims()
	scaler := &Scaler{Mean: make([]float64, columns), Scale: make([]float64, columns)}
	for j := 0; j < columns; j++ {
		columnValues := mat.Col(nil, j, x)
		mean, variance := stat.PopMeanVariance(columnValues, nil)
		scaler.Mean[j] = mean
		scaler.Scale[j] = math.Sqrt(variance)
		if scaler.Scale[j] == 0 {
			scaler.Scale[j] = 1
		}
	}
	return scaler
}

// Transform standardises x column by column.
func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if s == nil || len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	rows, columns := x.Dims()
	if columns != len(s.Mean) || columns != len(s.Scale) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, got %d", ErrDimension, len(s.Mean), columns)
	}

	scaled := mat.NewDense(rows, columns, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			scale := s.Scale[j]
			if scale == 0 {
				scale = 1
			}
			scaled.Set(i, j, (x.At(i, j)-s.Mean[j])/scale)
		}
	}
	return scaled, nil
}

// PCA is a fitted principal component projection.
type PCA struct {
	// Mean is the per-feature mean removed before projecting.
	Mean []float64

	// Components holds one unit-length principal direction per row
	// (components × features).
	Components *mat.Dense

	// ExplainedVariance is the variance captured by each component.
	ExplainedVariance []float64
}

// NComponents returns the dimensionality of the output space.
func (p *PCA) NComponents() int {
	if p == nil || p.Components == nil {
		return 0
	}
	r, _ := p.Components.Dims()
	return r
}

// FitPCA computes the leading principal components of x.
//
// Component signs are fixed so that the loading with the largest magnitude
// of every component is positive, which makes fits reproducible across runs.
func FitPCA(x mat.Matrix, components int) (*PCA, error) {
	rows, features := x.Dims()
	limit := rows
	if features < limit {
		limit = features
	}
	if components < 1 || components > limit {
		return nil, fmt.Errorf("%w: %d components requested from %dx%d data", ErrDimension, components, rows, features)
	}

	// Step 1: Center the data by subtracting the mean of each feature
	columnMeans := make([]float64, features)
	for j := range columnMeans {
		columnMeans[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	centred := mat.NewDense(rows, features, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < features; j++ {
			centred.Set(i, j, x.At(i, j)-columnMeans[j])
		}
	}

	// Step 2: Thin SVD of the centred data
	var svdDecomposition mat.SVD
	if ok := svdDecomposition.Factorize(centred, mat.SVDThin); !ok {
		return nil, ErrSVD
	}
	var rightSingularVectors mat.Dense
	svdDecomposition.VTo(&rightSingularVectors)
	singularValues := svdDecomposition.Values(nil)

	// Step 3: Keep the first columns of V as component rows with a fixed sign
	componentMatrix := mat.NewDense(components, features, nil)
	explained := make([]float64, components)
	for k := 0; k < components; k++ {
		direction := mat.Col(nil, k, &rightSingularVectors)
		if sign := dominantSign(direction); sign < 0 {
			for j := range direction {
				direction[j] = -direction[j]
			}
		}
		componentMatrix.SetRow(k, direction)
		if rows > 1 {
			explained[k] = singularValues[k] * singularValues[k] / float64(rows-1)
		}
	}

	return &PCA{Mean: columnMeans, Components: componentMatrix, ExplainedVariance: explained}, nil
}

// Transform projects the rows of x onto the principal components.
func (p *PCA) Transform(x mat.Matrix) (*mat.Dense, error) {
	if p.NComponents() == 0 {
		return nil, ErrNotFitted
	}
	rows, features := x.Dims()
	_, fitted := p.Components.Dims()
	if features != fitted || len(p.Mean) != fitted {
		return nil, fmt.Errorf("%w: PCA fitted on %d features, got %d", ErrDimension, fitted, features)
	}

	centred := mat.NewDense(rows, features, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < features; j++ {
			centred.Set(i, j, x.At(i, j)-p.Mean[j])
		}
	}

	var projected mat.Dense
	projected.Mul(centred, p.Components.T())
	return &projected, nil
}

// Fitted chains a scaler and a PCA, the pair fitted on a reference gene panel.
type Fitted struct {
	Scaler Transformer
	PCA    *PCA
}

// Transform standardises x and projects it into component space.
func (f Fitted) Transform(x mat.Matrix) (*mat.Dense, error) {
	if f.Scaler == nil || f.PCA == nil {
		return nil, ErrNotFitted
	}
	scaled, err := f.Scaler.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	projected, err := f.PCA.Transform(scaled)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return projected, nil
}

// Components returns the output dimensionality.
func (f Fitted) Components() int {
	return f.PCA.NComponents()
}

// dominantSign returns the sign of the entry with the largest magnitude.
func dominantSign(v []float64) float64 {
	largest := 0.0
	for _, value := range v {
		if math.Abs(value) > math.Abs(largest) {
			largest = value
		}
	}
	if largest < 0 {
		return -1
	}
	return 1
}
