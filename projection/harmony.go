package projection

// # Harmony Overview
//
// Harmony (Korsunsky et al., 2019) integrates embeddings that come from
// different batches. It alternates two steps:
//
//  1. Soft k-means on cosine-normalised embeddings. Each cell gets a
//     responsibility per cluster from a kernel of width sigma around the
//     cluster centroid, reweighted by a diversity penalty theta that favours
//     clusters in which its batch is under-represented.
//  2. Mixture-of-experts ridge regression. For every cluster a linear model of
//     the batch indicators is fitted to the responsibility-weighted data; the
//     batch-specific terms (but not the intercept) are subtracted.
//
// The loop stops after MaxIter rounds or when the relative change of the
// objective drops below EpsilonHarmony. Only the batch labels distinguish the
// two data sources; every cell is otherwise treated alike.

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// convergenceWindow is the number of k-means objectives averaged when testing
// for clustering convergence.
const convergenceWindow = 3

// HarmonyConfig holds the Harmony hyperparameters.
type HarmonyConfig struct {
	Theta          float64   // Diversity penalty (default: 2)
	Lambda         float64   // Ridge penalty on batch coefficients (default: 1)
	Sigma          []float64 // Kernel width, one value or one per cluster (default: 0.1)
	Clusters       int       // Number of soft k-means clusters
	MaxIter        int       // Maximum correction rounds (default: 10)
	MaxIterKMeans  int       // Maximum clustering rounds per correction (default: 20)
	EpsilonCluster float64   // Clustering convergence threshold (default: 1e-5)
	EpsilonHarmony float64   // Correction convergence threshold (default: 1e-4)
	BlockSize      float64   // Fraction of cells updated per block (default: 0.05)
	Seed           int64     // Seed for k-means and block shuffling
}

// DefaultHarmonyConfig returns the reference Harmony hyperparameters for the
// given cluster count.
func DefaultHarmonyConfig(clusters int) HarmonyConfig {
	return HarmonyConfig{
		Theta:          2,
		Lambda:         1,
		Sigma:          []float64{0.1},
		Clusters:       clusters,
		MaxIter:        10,
		MaxIterKMeans:  20,
		EpsilonCluster: 1e-5,
		EpsilonHarmony: 1e-4,
		BlockSize:      0.05,
		Seed:           0,
	}
}

// HarmonyResult is the corrected embedding and the state the run ended in.
type HarmonyResult struct {
	// Corrected has the same shape and row order as the input data.
	Corrected *mat.Dense

	// Responsibilities is the final clusters × cells soft assignment.
	Responsibilities *mat.Dense

	// Batches lists batch levels in order of first appearance.
	Batches []string

	Iterations int
	Converged  bool
	Objective  []float64
}

// harmony is the state of a single Harmonize call.
type harmony struct {
	config HarmonyConfig
	rng    *rand.Rand

	n, dim, k, b int
	batchOf      []int     // batch index per cell
	batchShare   []float64 // fraction of cells per batch
	sigma        []float64 // per cluster
	theta        []float64 // per batch

	phiMoe *mat.Dense // (b+1) × n: intercept row then batch indicators
	ridge  *mat.Dense // (b+1) × (b+1): diag(0, lambda, ...)

	zOrig *mat.Dense // dim × n
	zCorr *mat.Dense // dim × n
	zCos  *mat.Dense // dim × n

	y    *mat.Dense // dim × k cluster centroids
	dist *mat.Dense // k × n
	r    *mat.Dense // k × n responsibilities
	e    *mat.Dense // k × b expected counts
	o    *mat.Dense // k × b observed counts

	objectiveKMeans  []float64
	objectiveHarmony []float64
}

// Harmonize batch-corrects the rows of data (cells × components). batches
// holds one batch label per row.
func Harmonize(data mat.Matrix, batches []string, config HarmonyConfig) (*HarmonyResult, error) {
	h, err := newHarmony(data, batches, config)
	if err != nil {
		return nil, err
	}
	if err := h.initClusters(); err != nil {
		return nil, err
	}

	converged := false
	iterations := 0
	for iterations < h.config.MaxIter {
		iterations++
		h.cluster()
		if err := h.correct(); err != nil {
			return nil, err
		}
		if h.harmonyConverged() {
			converged = true
			break
		}
	}

	corrected := mat.DenseCopyOf(h.zCorr.T())
	if hasNaN(corrected) {
		return nil, fmt.Errorf("harmony: correction produced non-finite values")
	}

	levels := make([]string, h.b)
	for i, label := range batches {
		levels[h.batchOf[i]] = label
	}

	return &HarmonyResult{
		Corrected:        corrected,
		Responsibilities: h.r,
		Batches:          levels,
		Iterations:       iterations,
		Converged:        converged,
		Objective:        h.objectiveHarmony,
	}, nil
}

func newHarmony(data mat.Matrix, batches []string, config HarmonyConfig) (*harmony, error) {
	n, dim := data.Dims()
	if n == 0 || dim == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrDimension)
	}
	if len(batches) != n {
		return nil, fmt.Errorf("%w: %d batch labels for %d cells", ErrDimension, len(batches), n)
	}
	if config.Clusters < 1 || config.Clusters > n {
		return nil, fmt.Errorf("%w: %d clusters for %d cells", ErrDimension, config.Clusters, n)
	}
	if config.MaxIter < 1 {
		config.MaxIter = 10
	}
	if config.MaxIterKMeans < 1 {
		config.MaxIterKMeans = 20
	}
	if config.BlockSize <= 0 || config.BlockSize > 1 {
		config.BlockSize = 0.05
	}

	k := config.Clusters
	sigma := make([]float64, k)
	switch len(config.Sigma) {
	case 0:
		for i := range sigma {
			sigma[i] = 0.1
		}
	case 1:
		for i := range sigma {
			sigma[i] = config.Sigma[0]
		}
	case k:
		copy(sigma, config.Sigma)
	default:
		return nil, fmt.Errorf("%w: %d sigma values for %d clusters", ErrDimension, len(config.Sigma), k)
	}
	for _, s := range sigma {
		if s <= 0 {
			return nil, fmt.Errorf("%w: sigma must be positive, got %g", ErrDimension, s)
		}
	}
	// The intercept row carries no ridge, so a zero lambda leaves every
	// per-cluster system singular.
	if config.Lambda <= 0 {
		return nil, fmt.Errorf("%w: lambda must be positive, got %g", ErrConfig, config.Lambda)
	}

	levelIndex := map[string]int{}
	batchOf := make([]int, n)
	for i, label := range batches {
		index, ok := levelIndex[label]
		if !ok {
			index = len(levelIndex)
			levelIndex[label] = index
		}
		batchOf[i] = index
	}
	b := len(levelIndex)

	batchShare := make([]float64, b)
	for _, index := range batchOf {
		batchShare[index]++
	}
	for i := range batchShare {
		batchShare[i] /= float64(n)
	}

	theta := make([]float64, b)
	for i := range theta {
		theta[i] = config.Theta
	}

	phiMoe := mat.NewDense(b+1, n, nil)
	for i, index := range batchOf {
		phiMoe.Set(0, i, 1)
		phiMoe.Set(index+1, i, 1)
	}

	ridge := mat.NewDense(b+1, b+1, nil)
	for i := 1; i <= b; i++ {
		ridge.Set(i, i, config.Lambda)
	}

	zOrig := mat.DenseCopyOf(data.T())
	return &harmony{
		config:     config,
		rng:        rand.New(rand.NewSource(config.Seed)),
		n:          n,
		dim:        dim,
		k:          k,
		b:          b,
		batchOf:    batchOf,
		batchShare: batchShare,
		sigma:      sigma,
		theta:      theta,
		phiMoe:     phiMoe,
		ridge:      ridge,
		zOrig:      zOrig,
		zCorr:      mat.DenseCopyOf(zOrig),
		zCos:       normalizeColumns(zOrig),
	}, nil
}

// initClusters seeds centroids with k-means on the normalised cells and sets
// the initial responsibilities and batch statistics.
func (h *harmony) initClusters() error {
	km, err := KMeans(h.zCos.T(), KMeansConfig{
		Clusters: h.k,
		MaxIter:  25,
		Restarts: 10,
		Seed:     h.config.Seed,
	})
	if err != nil {
		return fmt.Errorf("harmony: initial clustering: %w", err)
	}

	h.y = normalizeColumns(km.Centroids.T())
	h.dist = h.cosineDistances()

	h.r = mat.NewDense(h.k, h.n, nil)
	for c := 0; c < h.n; c++ {
		column := make([]float64, h.k)
		for i := range column {
			column[i] = -h.dist.At(i, c) / h.sigma[i]
		}
		softmax(column)
		h.r.SetCol(c, column)
	}

	h.e = mat.NewDense(h.k, h.b, nil)
	h.o = mat.NewDense(h.k, h.b, nil)
	for c := 0; c < h.n; c++ {
		h.addCell(c, 1)
	}

	h.computeObjective()
	h.objectiveHarmony = append(h.objectiveHarmony, h.lastKMeansObjective())
	return nil
}

// cluster runs the soft k-means rounds of one Harmony iteration.
func (h *harmony) cluster() {
	for round := 0; round < h.config.MaxIterKMeans; round++ {
		var centroids mat.Dense
		centroids.Mul(h.zCos, h.r.T())
		h.y = normalizeColumns(&centroids)
		h.dist = h.cosineDistances()
		h.updateResponsibilities()
		h.computeObjective()
		if round > convergenceWindow && h.kmeansConverged() {
			break
		}
	}
	h.objectiveHarmony = append(h.objectiveHarmony, h.lastKMeansObjective())
}

// updateResponsibilities recomputes R block by block in shuffled order. Each
// block is removed from the batch statistics, reassigned with the diversity
// penalty, and added back.
func (h *harmony) updateResponsibilities() {
	kernel := mat.NewDense(h.k, h.n, nil)
	for c := 0; c < h.n; c++ {
		column := make([]float64, h.k)
		largest := math.Inf(-1)
		for i := range column {
			column[i] = -h.dist.At(i, c) / h.sigma[i]
			largest = math.Max(largest, column[i])
		}
		for i := range column {
			column[i] = math.Exp(column[i] - largest)
		}
		kernel.SetCol(c, column)
	}

	blocks := int(math.Ceil(1 / h.config.BlockSize))
	for _, block := range splitEvenly(h.rng.Perm(h.n), blocks) {
		for _, c := range block {
			h.addCell(c, -1)
		}
		for _, c := range block {
			batch := h.batchOf[c]
			column := make([]float64, h.k)
			var total float64
			for i := range column {
				penalty := math.Pow((h.e.At(i, batch)+1)/(h.o.At(i, batch)+1), h.theta[batch])
				column[i] = kernel.At(i, c) * penalty
				total += column[i]
			}
			if total > 0 {
				for i := range column {
					column[i] /= total
				}
			}
			h.r.SetCol(c, column)
		}
		for _, c := range block {
			h.addCell(c, 1)
		}
	}
}

// addCell adds (sign = 1) or removes (sign = -1) a cell's responsibilities from
// the expected and observed batch counts.
func (h *harmony) addCell(c, sign int) {
	batch := h.batchOf[c]
	s := float64(sign)
	for i := 0; i < h.k; i++ {
		weight := h.r.At(i, c)
		for j := 0; j < h.b; j++ {
			h.e.Set(i, j, h.e.At(i, j)+s*weight*h.batchShare[j])
		}
		h.o.Set(i, batch, h.o.At(i, batch)+s*weight)
	}
}

// computeObjective appends the soft k-means objective: distortion, entropy
// regularisation and diversity cross-entropy.
func (h *harmony) computeObjective() {
	var distortion, entropy, crossEntropy float64
	for i := 0; i < h.k; i++ {
		for c := 0; c < h.n; c++ {
			weight := h.r.At(i, c)
			distortion += weight * h.dist.At(i, c)
			if weight > 0 {
				entropy += weight * math.Log(weight) * h.sigma[i]
			}
			batch := h.batchOf[c]
			diversity := math.Log((h.o.At(i, batch) + 1) / (h.e.At(i, batch) + 1))
			crossEntropy += weight * h.sigma[i] * h.theta[batch] * diversity
		}
	}
	h.objectiveKMeans = append(h.objectiveKMeans, distortion+entropy+crossEntropy)
}

func (h *harmony) lastKMeansObjective() float64 {
	return h.objectiveKMeans[len(h.objectiveKMeans)-1]
}

func (h *harmony) kmeansConverged() bool {
	count := len(h.objectiveKMeans)
	if count < convergenceWindow+1 {
		return false
	}
	var previous, current float64
	for i := 0; i < convergenceWindow; i++ {
		previous += h.objectiveKMeans[count-2-i]
		current += h.objectiveKMeans[count-1-i]
	}
	if previous == 0 {
		return current == 0
	}
	return math.Abs(previous-current)/math.Abs(previous) < h.config.EpsilonCluster
}

func (h *harmony) harmonyConverged() bool {
	count := len(h.objectiveHarmony)
	if count < 2 {
		return false
	}
	previous := h.objectiveHarmony[count-2]
	current := h.objectiveHarmony[count-1]
	if previous == 0 {
		return current == 0
	}
	return (previous-current)/math.Abs(previous) < h.config.EpsilonHarmony
}

// correct applies the mixture-of-experts ridge correction to the original
// embedding and refreshes the normalised copy used for clustering.
func (h *harmony) correct() error {
	h.zCorr = mat.DenseCopyOf(h.zOrig)
	for i := 0; i < h.k; i++ {
		weighted := mat.NewDense(h.b+1, h.n, nil)
		for row := 0; row <= h.b; row++ {
			for c := 0; c < h.n; c++ {
				weighted.Set(row, c, h.phiMoe.At(row, c)*h.r.At(i, c))
			}
		}

		var gram mat.Dense
		gram.Mul(weighted, h.phiMoe.T())
		gram.Add(&gram, h.ridge)

		var rhs mat.Dense
		rhs.Mul(weighted, h.zOrig.T())

		var coefficients mat.Dense
		if err := coefficients.Solve(&gram, &rhs); err != nil {
			var condition mat.Condition
			if !errors.As(err, &condition) {
				return fmt.Errorf("harmony: ridge solve for cluster %d: %w", i, err)
			}
			// A cluster without any weight has nothing to correct.
			if math.IsInf(float64(condition), 1) {
				continue
			}
		}

		// The intercept is shared by all batches and stays in the data.
		for j := 0; j < h.dim; j++ {
			coefficients.Set(0, j, 0)
		}

		var correction mat.Dense
		correction.Mul(coefficients.T(), weighted)
		h.zCorr.Sub(h.zCorr, &correction)
	}
	h.zCos = normalizeColumns(h.zCorr)
	return nil
}

// cosineDistances returns 2(1 - Yᵀ Zcos), the squared Euclidean distance
// between unit vectors.
func (h *harmony) cosineDistances() *mat.Dense {
	var similarity mat.Dense
	similarity.Mul(h.y.T(), h.zCos)
	rows, columns := similarity.Dims()
	dist := mat.NewDense(rows, columns, nil)
	dist.Apply(func(_, _ int, v float64) float64 { return 2 * (1 - v) }, &similarity)
	return dist
}

// normalizeColumns scales every column of m to unit L2 norm. Zero columns are
// left at zero.
func normalizeColumns(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	_, columns := out.Dims()
	for j := 0; j < columns; j++ {
		norm := mat.Norm(out.ColView(j), 2)
		if norm == 0 {
			continue
		}
		column := mat.Col(nil, j, out)
		for i := range column {
			column[i] /= norm
		}
		out.SetCol(j, column)
	}
	return out
}

// softmax turns v into a probability vector in place.
func softmax(v []float64) {
	largest := math.Inf(-1)
	for _, value := range v {
		largest = math.Max(largest, value)
	}
	var total float64
	for i := range v {
		v[i] = math.Exp(v[i] - largest)
		total += v[i]
	}
	for i := range v {
		v[i] /= total
	}
}

// splitEvenly divides order into parts pieces whose sizes differ by at most
// one, larger pieces first. Pieces may be empty when order is short.
func splitEvenly(order []int, parts int) [][]int {
	size, extra := len(order)/parts, len(order)%parts
	blocks := make([][]int, 0, parts)
	start := 0
	for p := 0; p < parts; p++ {
		end := start + size
		if p < extra {
			end++
		}
		blocks = append(blocks, order[start:end])
		start = end
	}
	return blocks
}

func hasNaN(m *mat.Dense) bool {
	rows, columns := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
