// Package crossmodal places pseudo-bulk centroids and external bulk samples in
// one batch-corrected embedding so that they can be compared directly.
package crossmodal

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/expression"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

// Batch tags passed to the correction step.
const (
	PseudoBatch = "scRNA"
	BulkBatch   = "bulk"
)

// CorrectedPrefix names the components of the corrected space.
const CorrectedPrefix = "HarmonyPC"

// Options configures Align.
type Options struct {
	// Components is the dimensionality of the shared space (default: 50).
	Components int

	// ComponentPrefix selects the pseudo-bulk embedding columns (default: "PC").
	ComponentPrefix string

	Centroids embedding.CentroidOptions

	// Harmony holds the correction hyperparameters. Clusters is always
	// overridden with the number of pseudo-bulk centroids.
	Harmony projection.HarmonyConfig
}

// DefaultOptions returns 50 components and a Harmony configuration without
// diversity penalty, ridge 1 and kernel width 0.1.
func DefaultOptions() Options {
	harmony := projection.DefaultHarmonyConfig(0)
	harmony.Theta = 0
	return Options{
		Components:      50,
		ComponentPrefix: embedding.DefaultComponentPrefix,
		Centroids:       embedding.DefaultCentroidOptions(),
		Harmony:         harmony,
	}
}

// Request bundles the inputs of one alignment.
type Request struct {
	// Embedding is the pseudo-bulk single-cell embedding table.
	Embedding *embedding.Table

	// Bulk is the external expression table, samples × genes.
	Bulk *expression.Matrix

	// Panel is the gene panel the projection was fitted on, in fitted order.
	Panel []string

	// Projection maps panel-ordered expression into the embedding space.
	Projection projection.Transformer

	Options Options
}

// Result holds both populations in the corrected space.
type Result struct {
	Pseudo embedding.Points
	Bulk   embedding.Points

	// Centroids are the uncorrected pseudo-bulk centroids with their labels.
	Centroids *embedding.CentroidSet

	// MissingGenes lists panel genes that were zero-filled for the bulk table.
	MissingGenes []string

	Iterations int
	Converged  bool
}

// Align reduces the pseudo-bulk table to centroids, projects the bulk table
// into the same space and batch-corrects both jointly. Row identifiers and
// their order are preserved for both populations.
func Align(req Request) (*Result, error) {
	opts := req.Options
	if opts.Components < 1 {
		opts.Components = 50
	}
	if opts.ComponentPrefix == "" {
		opts.ComponentPrefix = embedding.DefaultComponentPrefix
	}
	opts.Harmony = withHarmonyDefaults(opts.Harmony)
	if req.Embedding == nil || req.Embedding.Rows() == 0 {
		return nil, fmt.Errorf("%w: pseudo-bulk embedding has no rows", embedding.ErrEmptyPopulation)
	}
	if req.Bulk == nil || len(req.Bulk.Samples) == 0 {
		return nil, fmt.Errorf("%w: bulk table has no samples", embedding.ErrEmptyPopulation)
	}
	if req.Projection == nil {
		return nil, projection.ErrNotFitted
	}

	// Step 1: Pseudo-bulk centroids in the existing component space
	selected, err := req.Embedding.SelectComponents(opts.ComponentPrefix, opts.Components)
	if err != nil {
		return nil, fmt.Errorf("select components: %w", err)
	}
	centroids, err := embedding.Centroids(selected, opts.Centroids)
	if err != nil {
		return nil, fmt.Errorf("centroids: %w", err)
	}

	// Step 2: Bulk genes reindexed to the panel, absent genes zero-filled
	reindexed, missing, err := req.Bulk.Reindex(req.Panel)
	if err != nil {
		return nil, fmt.Errorf("reindex bulk: %w", err)
	}

	// Step 3: Bulk samples projected with the fitted scaler and PCA
	projected, err := req.Projection.Transform(reindexed.Values)
	if err != nil {
		return nil, fmt.Errorf("project bulk: %w", err)
	}
	if _, width := projected.Dims(); width != opts.Components {
		return nil, fmt.Errorf("%w: projection yields %d components, want %d", projection.ErrDimension, width, opts.Components)
	}

	// Step 4: One joint table tagged by source
	pseudoRows := centroids.Len()
	bulkRows := len(reindexed.Samples)
	joint := mat.NewDense(pseudoRows+bulkRows, opts.Components, nil)
	batches := make([]string, 0, pseudoRows+bulkRows)
	for i := 0; i < pseudoRows; i++ {
		joint.SetRow(i, centroids.Vector(i))
		batches = append(batches, PseudoBatch)
	}
	for i := 0; i < bulkRows; i++ {
		joint.SetRow(pseudoRows+i, mat.Row(nil, i, projected))
		batches = append(batches, BulkBatch)
	}

	// Step 5: Joint correction with one cluster per pseudo-bulk centroid
	config := opts.Harmony
	config.Clusters = pseudoRows
	corrected, err := projection.Harmonize(joint, batches, config)
	if err != nil {
		return nil, fmt.Errorf("harmonize: %w", err)
	}

	// Step 6: Split back by position
	names := embedding.ComponentNames(CorrectedPrefix, opts.Components)
	pseudo, err := embedding.NewPoints(
		append([]string(nil), centroids.IDs...),
		names,
		mat.DenseCopyOf(corrected.Corrected.Slice(0, pseudoRows, 0, opts.Components)),
	)
	if err != nil {
		return nil, err
	}
	bulk, err := embedding.NewPoints(
		append([]string(nil), reindexed.Samples...),
		names,
		mat.DenseCopyOf(corrected.Corrected.Slice(pseudoRows, pseudoRows+bulkRows, 0, opts.Components)),
	)
	if err != nil {
		return nil, err
	}

	return &Result{
		Pseudo:       pseudo,
		Bulk:         bulk,
		Centroids:    centroids,
		MissingGenes: missing,
		Iterations:   corrected.Iterations,
		Converged:    corrected.Converged,
	}, nil
}

// withHarmonyDefaults fills the zero fields of config. Theta and Seed are
// meaningful at zero and are kept.
func withHarmonyDefaults(config projection.HarmonyConfig) projection.HarmonyConfig {
	defaults := DefaultOptions().Harmony
	if config.Lambda == 0 {
		config.Lambda = defaults.Lambda
	}
	if len(config.Sigma) == 0 {
		config.Sigma = defaults.Sigma
	}
	if config.MaxIter == 0 {
		config.MaxIter = defaults.MaxIter
	}
	if config.MaxIterKMeans == 0 {
		config.MaxIterKMeans = defaults.MaxIterKMeans
	}
	if config.EpsilonCluster == 0 {
		config.EpsilonCluster = defaults.EpsilonCluster
	}
	if config.EpsilonHarmony == 0 {
		config.EpsilonHarmony = defaults.EpsilonHarmony
	}
	if config.BlockSize == 0 {
		config.BlockSize = defaults.BlockSize
	}
	return config
}
