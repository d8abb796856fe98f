// Package similarity builds labelled similarity matrices between two point
// populations and reduces them to tidy tables and best-match summaries.
//
// Missing cells are stored as NaN. Every ordering decision (tidy sort, best
// match, top-N) is resolved by the row-major iteration order of the matrix, so
// results are deterministic for a given matrix.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyMatrix = errors.New("similarity: empty matrix")
	ErrDimension   = errors.New("similarity: dimension mismatch")
	ErrInvalidN    = errors.New("similarity: n must be positive")
	ErrDuplicate   = errors.New("similarity: duplicate cell")
)

// Matrix is a rows × columns table of similarity values. NaN marks a missing
// value.
type Matrix struct {
	RowIDs    []string
	ColumnIDs []string
	Values    *mat.Dense
}

// NewMatrix allocates a matrix with every cell missing.
func NewMatrix(rowIDs, columnIDs []string) *Matrix {
	m := &Matrix{RowIDs: rowIDs, ColumnIDs: columnIDs}
	if len(rowIDs) > 0 && len(columnIDs) > 0 {
		data := make([]float64, len(rowIDs)*len(columnIDs))
		for i := range data {
			data[i] = math.NaN()
		}
		m.Values = mat.NewDense(len(rowIDs), len(columnIDs), data)
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, columns int) {
	return len(m.RowIDs), len(m.ColumnIDs)
}

// At returns the value at (i, j), NaN when missing.
func (m *Matrix) At(i, j int) float64 {
	return m.Values.At(i, j)
}

// Set stores a value at (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.Values.Set(i, j, v)
}

// Missing reports whether cell (i, j) holds no value.
func (m *Matrix) Missing(i, j int) bool {
	return math.IsNaN(m.At(i, j))
}

// Present returns the number of non-missing cells.
func (m *Matrix) Present() int {
	rows, columns := m.Dims()
	count := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if !m.Missing(i, j) {
				count++
			}
		}
	}
	return count
}

// Clean drops rows and columns in which every cell is missing. It fails with
// ErrEmptyMatrix when nothing remains.
func (m *Matrix) Clean() (*Matrix, error) {
	rows, columns := m.Dims()
	keepRow := make([]bool, rows)
	keepColumn := make([]bool, columns)
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if !m.Missing(i, j) {
				keepRow[i] = true
				keepColumn[j] = true
			}
		}
	}

	var rowIndex, columnIndex []int
	for i, keep := range keepRow {
		if keep {
			rowIndex = append(rowIndex, i)
		}
	}
	for j, keep := range keepColumn {
		if keep {
			columnIndex = append(columnIndex, j)
		}
	}
	if len(rowIndex) == 0 {
		return nil, fmt.Errorf("%w: all %d×%d cells are missing", ErrEmptyMatrix, rows, columns)
	}

	rowIDs := make([]string, len(rowIndex))
	for k, i := range rowIndex {
		rowIDs[k] = m.RowIDs[i]
	}
	columnIDs := make([]string, len(columnIndex))
	for k, j := range columnIndex {
		columnIDs[k] = m.ColumnIDs[j]
	}

	cleaned := NewMatrix(rowIDs, columnIDs)
	for a, i := range rowIndex {
		for b, j := range columnIndex {
			cleaned.Set(a, b, m.At(i, j))
		}
	}
	return cleaned, nil
}

// Transpose swaps the roles of rows and columns.
func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.ColumnIDs, m.RowIDs)
	rows, columns := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}
