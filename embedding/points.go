package embedding

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Points is an ordered, labelled set of vectors in one component space.
// Row i of Values belongs to IDs[i].
type Points struct {
	IDs        []string
	Components []string
	Values     *mat.Dense
}

// NewPoints checks that ids, components and values agree in shape.
func NewPoints(ids, components []string, values *mat.Dense) (Points, error) {
	if len(ids) == 0 {
		return Points{Components: components}, nil
	}
	if values == nil {
		return Points{}, fmt.Errorf("%w: %d ids without values", ErrShape, len(ids))
	}
	r, c := values.Dims()
	if r != len(ids) || c != len(components) {
		return Points{}, fmt.Errorf("%w: values are %dx%d, want %dx%d", ErrShape, r, c, len(ids), len(components))
	}
	return Points{IDs: ids, Components: components, Values: values}, nil
}

// Len returns the number of points.
func (p Points) Len() int { return len(p.IDs) }

// Dim returns the dimensionality of the component space.
func (p Points) Dim() int { return len(p.Components) }

// Vector returns a copy of row i.
func (p Points) Vector(i int) []float64 {
	return mat.Row(nil, i, p.Values)
}

// Subset returns the points at the given row positions, in that order.
func (p Points) Subset(rows []int) Points {
	out := Points{Components: p.Components}
	if len(rows) == 0 {
		return out
	}
	out.IDs = make([]string, len(rows))
	out.Values = mat.NewDense(len(rows), p.Dim(), nil)
	for i, row := range rows {
		out.IDs[i] = p.IDs[row]
		out.Values.SetRow(i, p.Vector(row))
	}
	return out
}

// Index returns the row position of every id. Duplicate ids keep their first row.
func (p Points) Index() map[string]int {
	index := make(map[string]int, len(p.IDs))
	for i, id := range p.IDs {
		if _, seen := index[id]; !seen {
			index[id] = i
		}
	}
	return index
}
