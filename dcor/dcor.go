// Package dcor computes the distance correlation between two equally sized
// vectors.
//
// # Distance Correlation Overview
//
// Distance correlation (Székely, Rizzo & Bakirov, 2007) measures statistical
// dependence between paired samples x and y. Unlike Pearson correlation it is
// zero only under independence and picks up nonlinear association.
//
// Each vector of length n is read as n paired observations (x_i, y_i). The
// statistic is built from the pairwise distance matrices a_ij = |x_i - x_j| and
// b_ij = |y_i - y_j|, double-centred so that every row and column sums to zero:
//
//	A_ij = a_ij - mean(a_i.) - mean(a_.j) + mean(a_..)
//
// Then dCov²(x,y) = mean(A ∘ B), dVar²(x) = mean(A ∘ A) and
//
//	dCor(x,y) = sqrt( dCov²(x,y) / sqrt(dVar²(x) · dVar²(y)) )
//
// which lies in [0, 1] and equals 1 for identical non-constant vectors.
package dcor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrLengthMismatch = errors.New("dcor: vectors differ in length")
	ErrTooShort       = errors.New("dcor: need at least two observations")
	ErrDegenerate     = errors.New("dcor: zero distance variance")
	ErrNonFinite      = errors.New("dcor: non-finite value")
)

// Distance returns the distance correlation of x and y.
//
// Constant vectors (including all-zero ones) have no distance variance and
// yield ErrDegenerate instead of a value; callers building matrices record
// such pairs as missing.
func Distance(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return math.NaN(), fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return math.NaN(), ErrTooShort
	}
	if hasNonFinite(x) || hasNonFinite(y) {
		return math.NaN(), fmt.Errorf("%w in input", ErrNonFinite)
	}

	centredX := doubleCentredDistances(x)
	centredY := doubleCentredDistances(y)

	n := float64(len(x))
	covarianceXY := mat.Sum(elementProduct(centredX, centredY)) / (n * n)
	varianceX := mat.Sum(elementProduct(centredX, centredX)) / (n * n)
	varianceY := mat.Sum(elementProduct(centredY, centredY)) / (n * n)

	denominator := math.Sqrt(varianceX * varianceY)
	if denominator <= 0 {
		return math.NaN(), ErrDegenerate
	}

	squared := covarianceXY / denominator
	if math.IsNaN(squared) || math.IsInf(squared, 0) {
		return math.NaN(), fmt.Errorf("%w in result", ErrNonFinite)
	}

	// Rounding can push the ratio marginally outside [0, 1].
	squared = math.Max(0, math.Min(1, squared))
	return math.Sqrt(squared), nil
}

// doubleCentredDistances builds the n×n absolute-difference matrix of v and
// removes its row means, column means and grand mean.
func doubleCentredDistances(v []float64) *mat.SymDense {
	n := len(v)
	distances := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			distances.SetSym(i, j, math.Abs(v[i]-v[j]))
		}
	}

	// The matrix is symmetric, so row means and column means coincide.
	rowMeans := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = distances.At(i, j)
		}
		rowMeans[i] = floats.Sum(row) / float64(n)
	}
	grandMean := floats.Sum(rowMeans) / float64(n)

	centred := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			centred.SetSym(i, j, distances.At(i, j)-rowMeans[i]-rowMeans[j]+grandMean)
		}
	}
	return centred
}

func elementProduct(a, b mat.Matrix) *mat.Dense {
	var product mat.Dense
	product.MulElem(a, b)
	return &product
}

func hasNonFinite(v []float64) bool {
	for _, value := range v {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return true
		}
	}
	return false
}
