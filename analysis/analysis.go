// Package analysis runs the two comparison pipelines on top of the core
// packages: cell lines against tumors inside one embedding, and external bulk
// samples against pseudo-bulk centroids after cross-modal alignment.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CaioMussatto/Cacaio-docker/crossmodal"
	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

// CompareOptions configures CompareCentroids.
type CompareOptions struct {
	// ComponentPrefix selects embedding columns (default: "PC").
	ComponentPrefix string

	// Components limits the comparison to prefix1..prefixN; zero keeps every
	// column with the prefix.
	Components int

	Centroids  embedding.CentroidOptions
	Similarity similarity.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultCompareOptions uses every PC column and the default sample and
// dataset columns.
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		ComponentPrefix: embedding.DefaultComponentPrefix,
		Centroids:       embedding.DefaultCentroidOptions(),
	}
}

// CompareResult is the outcome of a same-space comparison.
type CompareResult struct {
	RunID string

	// Matrix is cell lines × tumors, before missing rows and columns are
	// dropped.
	Matrix *similarity.Matrix

	// Best is the global best match of the cleaned matrix.
	Best similarity.Match

	Labels      map[string]string
	SampleTypes map[string]string
	Conflicts   []embedding.LabelConflict
	Report      similarity.Report
}

// CompareCentroids reduces table to per-sample centroids, splits them into
// cell lines and tumors and scores every cell-line/tumor pair.
func CompareCentroids(table *embedding.Table, opts CompareOptions) (*CompareResult, error) {
	runID := uuid.NewString()
	logger := loggerOrDefault(opts.Logger).With("run_id", runID, "pipeline", "compare")
	started := time.Now()

	if opts.ComponentPrefix == "" {
		opts.ComponentPrefix = embedding.DefaultComponentPrefix
	}
	selected, err := table.SelectComponents(opts.ComponentPrefix, opts.Components)
	if err != nil {
		return nil, fmt.Errorf("select components: %w", err)
	}

	centroids, err := embedding.Centroids(selected, opts.Centroids)
	if err != nil {
		return nil, fmt.Errorf("centroids: %w", err)
	}
	for _, conflict := range centroids.Conflicts {
		logger.Warn("inconsistent dataset label",
			"sample", conflict.Sample,
			"kept", conflict.Kept,
			"seen", conflict.Seen,
			"row", conflict.Row,
		)
	}

	cellLines, tumors, err := centroids.Partition()
	if err != nil {
		return nil, err
	}
	logger.Info("comparing centroids", "cell_lines", cellLines.Len(), "tumors", tumors.Len(), "components", cellLines.Dim())

	matrix, report, err := similarity.Compute(cellLines, tumors, opts.Similarity)
	if err != nil {
		return nil, err
	}

	cleaned, err := matrix.Clean()
	if err != nil {
		logger.Warn("similarity matrix is empty", "failed_pairs", len(report.Failures))
		return nil, err
	}
	best, err := cleaned.Best()
	if err != nil {
		return nil, err
	}

	logger.Info("comparison finished",
		"rows", len(cleaned.RowIDs),
		"cols", len(cleaned.ColumnIDs),
		"failed_pairs", len(report.Failures),
		"best_row", best.Row,
		"best_column", best.Column,
		"best_value", best.Value,
		"elapsed", time.Since(started),
	)

	return &CompareResult{
		RunID:       runID,
		Matrix:      matrix,
		Best:        best,
		Labels:      centroids.Labels,
		SampleTypes: embedding.SampleTypes(centroids.Labels),
		Conflicts:   centroids.Conflicts,
		Report:      report,
	}, nil
}

// CrossModalRequest configures CrossModal.
type CrossModalRequest struct {
	Align      crossmodal.Request
	Similarity similarity.Options
	Logger     *slog.Logger
}

// CrossModalResult is the outcome of a bulk against pseudo-bulk comparison.
type CrossModalResult struct {
	RunID     string
	Alignment *crossmodal.Result

	// Matrix is bulk samples × pseudo-bulk centroids.
	Matrix *similarity.Matrix

	// RowBest holds the best pseudo-bulk centroid per bulk sample.
	RowBest map[string]similarity.Match

	// SampleTypes maps each pseudo-bulk centroid to cell_line or
	// primary_tumor.
	SampleTypes map[string]string

	Report similarity.Report
}

// CrossModal aligns the bulk table with the pseudo-bulk centroids and scores
// every bulk sample against every centroid in the corrected space.
func CrossModal(req CrossModalRequest) (*CrossModalResult, error) {
	runID := uuid.NewString()
	logger := loggerOrDefault(req.Logger).With("run_id", runID, "pipeline", "crossmodal")
	started := time.Now()

	alignment, err := crossmodal.Align(req.Align)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	logger.Info("aligned sources",
		"pseudo", alignment.Pseudo.Len(),
		"bulk", alignment.Bulk.Len(),
		"missing_genes", len(alignment.MissingGenes),
		"iterations", alignment.Iterations,
		"converged", alignment.Converged,
	)

	matrix, report, err := similarity.Compute(alignment.Bulk, alignment.Pseudo, req.Similarity)
	if err != nil {
		return nil, err
	}
	if _, err := matrix.Clean(); err != nil {
		logger.Warn("similarity matrix is empty", "failed_pairs", len(report.Failures))
		return nil, err
	}

	rowBest := matrix.RowBest()
	logger.Info("cross-modal comparison finished",
		"rows", len(matrix.RowIDs),
		"cols", len(matrix.ColumnIDs),
		"matched_rows", len(rowBest),
		"failed_pairs", len(report.Failures),
		"elapsed", time.Since(started),
	)

	return &CrossModalResult{
		RunID:       runID,
		Alignment:   alignment,
		Matrix:      matrix,
		RowBest:     rowBest,
		SampleTypes: embedding.SampleTypes(alignment.Centroids.Labels),
		Report:      report,
	}, nil
}

// TopCombinations returns the n highest bulk/pseudo-bulk pairs whose
// pseudo-bulk centroid has the given sample type. A known sample type with no
// centroids yields no pairs; a selector that is not a sample type keeps every
// pair.
func TopCombinations(result *CrossModalResult, selector string, n int) ([]similarity.Entry, error) {
	entries := result.Matrix.Tidy()
	filtered := similarity.FilterEntries(entries, result.SampleTypes, embedding.SampleTypeNames(), selector, similarity.ByColumn)
	return similarity.TopN(filtered, n)
}

// IsNoData reports whether err means that the selection held nothing to
// compare, as opposed to a failed computation.
func IsNoData(err error) bool {
	return errors.Is(err, embedding.ErrEmptyPopulation) || errors.Is(err, similarity.ErrEmptyMatrix)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
