// Package expression holds sample × gene expression tables and reconciles
// them against a fixed gene panel.
package expression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape      = errors.New("expression: shape mismatch")
	ErrEmpty      = errors.New("expression: no samples")
	ErrEmptyPanel = errors.New("expression: empty gene panel")
)

// Matrix is an expression table with one row per sample and one column per
// gene.
type Matrix struct {
	Samples []string
	Genes   []string
	Values  *mat.Dense
}

// NewMatrix validates the shape of values against the labels.
func NewMatrix(samples, genes []string, values *mat.Dense) (*Matrix, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	if values == nil {
		return nil, fmt.Errorf("%w: no values for %d samples", ErrShape, len(samples))
	}
	r, c := values.Dims()
	if r != len(samples) || c != len(genes) {
		return nil, fmt.Errorf("%w: values are %dx%d, want %dx%d", ErrShape, r, c, len(samples), len(genes))
	}
	return &Matrix{Samples: samples, Genes: genes, Values: values}, nil
}

// Reindex returns a matrix whose columns are exactly panel, in panel order.
// Genes absent from m are filled with zero; genes not in the panel are
// dropped. The second return value lists the panel genes that were missing.
// When a gene occurs more than once in m its first column is used.
func (m *Matrix) Reindex(panel []string) (*Matrix, []string, error) {
	if len(panel) == 0 {
		return nil, nil, ErrEmptyPanel
	}

	geneColumn := make(map[string]int, len(m.Genes))
	for j, gene := range m.Genes {
		if _, seen := geneColumn[gene]; !seen {
			geneColumn[gene] = j
		}
	}

	rows := len(m.Samples)
	values := mat.NewDense(rows, len(panel), nil)
	var missing []string
	for target, gene := range panel {
		source, ok := geneColumn[gene]
		if !ok {
			missing = append(missing, gene)
			continue
		}
		for i := 0; i < rows; i++ {
			values.Set(i, target, m.Values.At(i, source))
		}
	}

	genes := make([]string, len(panel))
	copy(genes, panel)
	return &Matrix{Samples: m.Samples, Genes: genes, Values: values}, missing, nil
}
