// Package embedding holds observations expressed in a fixed component space
// (principal components, or a batch-corrected variant of them) together with
// their categorical metadata, and reduces them to per-sample centroids.
//
// A Table is column oriented: numeric components live in a gonum Dense matrix
// with one row per observation, while categorical columns (sample identifier,
// dataset label, ...) are kept as parallel string slices.
package embedding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors. Input-shape problems are reported with one of these wrapped
// in a descriptive message.
var (
	ErrMissingColumn     = errors.New("embedding: missing column")
	ErrShape             = errors.New("embedding: shape mismatch")
	ErrEmptyPopulation   = errors.New("embedding: empty population")
	ErrInconsistentLabel = errors.New("embedding: inconsistent dataset label")
)

const (
	// DefaultComponentPrefix identifies component columns such as PC1, PC2, ...
	DefaultComponentPrefix = "PC"

	// DefaultSampleColumn is the metadata column holding sample identifiers.
	DefaultSampleColumn = "sample"

	// DefaultDatasetColumn is the metadata column holding the dataset label.
	DefaultDatasetColumn = "dataset"
)

// Table is a set of observations in a named component space.
type Table struct {
	// Components names the numeric columns of Values, in order.
	Components []string

	// Values has one row per observation and one column per component.
	// It is nil when the table has no rows.
	Values *mat.Dense

	// Metadata maps a categorical column name to one value per observation.
	Metadata map[string][]string
}

// NewTable validates that values and metadata agree on the number of rows and
// that values has one column per component name.
func NewTable(components []string, values *mat.Dense, metadata map[string][]string) (*Table, error) {
	rows := 0
	if values != nil {
		r, c := values.Dims()
		if c != len(components) {
			return nil, fmt.Errorf("%w: %d component names for %d value columns", ErrShape, len(components), c)
		}
		rows = r
	}

	for name, column := range metadata {
		if len(column) != rows {
			return nil, fmt.Errorf("%w: metadata column %q has %d rows, want %d", ErrShape, name, len(column), rows)
		}
	}

	if metadata == nil {
		metadata = map[string][]string{}
	}

	return &Table{Components: components, Values: values, Metadata: metadata}, nil
}

// Rows returns the number of observations.
func (t *Table) Rows() int {
	if t == nil || t.Values == nil {
		return 0
	}
	r, _ := t.Values.Dims()
	return r
}

// Column returns a categorical column by name.
func (t *Table) Column(name string) ([]string, error) {
	column, ok := t.Metadata[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return column, nil
}

// ComponentIndex returns the position of a named component column.
func (t *Table) ComponentIndex(name string) (int, bool) {
	for i, component := range t.Components {
		if component == name {
			return i, true
		}
	}
	return -1, false
}

// ComponentNames returns prefix1..prefixN, the 1-based column naming used for
// principal components.
func ComponentNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i+1)
	}
	return names
}

// SelectComponents returns a table restricted to the requested component
// columns. With n == 0 every component whose name starts with prefix is kept in
// table order; with n > 0 exactly prefix1..prefixN are required.
func (t *Table) SelectComponents(prefix string, n int) (*Table, error) {
	var wanted []string
	if n > 0 {
		wanted = ComponentNames(prefix, n)
	} else {
		for _, component := range t.Components {
			if strings.HasPrefix(component, prefix) {
				wanted = append(wanted, component)
			}
		}
		if len(wanted) == 0 {
			return nil, fmt.Errorf("%w: no component columns with prefix %q", ErrMissingColumn, prefix)
		}
	}

	indices := make([]int, len(wanted))
	for i, name := range wanted {
		index, ok := t.ComponentIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: component %q", ErrMissingColumn, name)
		}
		indices[i] = index
	}

	rows := t.Rows()
	var values *mat.Dense
	if rows > 0 {
		values = mat.NewDense(rows, len(indices), nil)
		for r := 0; r < rows; r++ {
			for c, index := range indices {
				values.Set(r, c, t.Values.At(r, index))
			}
		}
	}

	return &Table{Components: wanted, Values: values, Metadata: t.Metadata}, nil
}
