package embedding

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CellLineDataset is the dataset label that marks a sample as a cell line.
// Every other label is treated as tumor.
const CellLineDataset = "CCLE"

// Sample type categories derived from dataset labels.
const (
	SampleTypeCellLine     = "cell_line"
	SampleTypePrimaryTumor = "primary_tumor"
)

// SampleTypeNames lists every sample type category.
func SampleTypeNames() []string {
	return []string{SampleTypeCellLine, SampleTypePrimaryTumor}
}

// LabelPolicy decides what happens when rows of one sample disagree on their
// dataset label.
type LabelPolicy int

const (
	// LabelFirst keeps the label of the first row of each sample and records
	// disagreeing rows in CentroidSet.Conflicts.
	LabelFirst LabelPolicy = iota

	// LabelStrict fails with ErrInconsistentLabel on the first disagreement.
	LabelStrict
)

// CentroidOrder decides the order of samples in a CentroidSet, and with it
// the rows and columns of every matrix built from it.
type CentroidOrder int

const (
	// OrderSorted lists samples by id.
	OrderSorted CentroidOrder = iota

	// OrderFirstAppearance lists samples as they are first seen in the table.
	OrderFirstAppearance
)

// CentroidOptions configures Centroids.
type CentroidOptions struct {
	SampleColumn  string
	DatasetColumn string // empty disables label collection
	Policy        LabelPolicy
	Order         CentroidOrder
}

// DefaultCentroidOptions groups by "sample" and labels by "dataset".
func DefaultCentroidOptions() CentroidOptions {
	return CentroidOptions{
		SampleColumn:  DefaultSampleColumn,
		DatasetColumn: DefaultDatasetColumn,
		Policy:        LabelFirst,
		Order:         OrderSorted,
	}
}

// LabelConflict records a row whose dataset label differs from the label
// already assigned to its sample.
type LabelConflict struct {
	Sample string
	Kept   string
	Seen   string
	Row    int
}

// CentroidSet is one mean vector per sample, ordered per CentroidOptions.Order.
type CentroidSet struct {
	Points

	// Counts is the number of observations averaged into each centroid.
	Counts []int

	// Labels maps each sample to its dataset label.
	Labels map[string]string

	Conflicts []LabelConflict
}

// Centroids averages every component column of table per distinct sample.
func Centroids(table *Table, opts CentroidOptions) (*CentroidSet, error) {
	if opts.SampleColumn == "" {
		opts.SampleColumn = DefaultSampleColumn
	}

	samples, err := table.Column(opts.SampleColumn)
	if err != nil {
		return nil, err
	}

	var datasets []string
	if opts.DatasetColumn != "" {
		datasets, err = table.Column(opts.DatasetColumn)
		if err != nil {
			return nil, err
		}
	}

	if len(table.Components) == 0 {
		return nil, fmt.Errorf("%w: table has no component columns", ErrMissingColumn)
	}
	if table.Rows() == 0 {
		return nil, fmt.Errorf("%w: table has no rows", ErrEmptyPopulation)
	}
	if len(samples) != table.Rows() || (datasets != nil && len(datasets) != table.Rows()) {
		return nil, fmt.Errorf("%w: metadata does not cover %d rows", ErrShape, table.Rows())
	}

	dim := len(table.Components)
	groupOf := make(map[string]int)
	var order []string
	var sums [][]float64
	var counts []int
	labels := make(map[string]string)
	var conflicts []LabelConflict

	for row, sample := range samples {
		group, seen := groupOf[sample]
		if !seen {
			group = len(order)
			groupOf[sample] = group
			order = append(order, sample)
			sums = append(sums, make([]float64, dim))
			counts = append(counts, 0)
		}

		floats.Add(sums[group], mat.Row(nil, row, table.Values))
		counts[group]++

		if datasets == nil {
			continue
		}
		label := datasets[row]
		kept, labelled := labels[sample]
		switch {
		case !labelled:
			labels[sample] = label
		case kept != label:
			if opts.Policy == LabelStrict {
				return nil, fmt.Errorf("%w: sample %q is labelled %q and %q (row %d)", ErrInconsistentLabel, sample, kept, label, row)
			}
			conflicts = append(conflicts, LabelConflict{Sample: sample, Kept: kept, Seen: label, Row: row})
		}
	}

	groups := make([]int, len(order))
	for i := range groups {
		groups[i] = i
	}
	if opts.Order == OrderSorted {
		sort.Slice(groups, func(a, b int) bool {
			return order[groups[a]] < order[groups[b]]
		})
	}

	ids := make([]string, len(groups))
	sampleCounts := make([]int, len(groups))
	values := mat.NewDense(len(groups), dim, nil)
	for i, group := range groups {
		sum := sums[group]
		floats.Scale(1/float64(counts[group]), sum)
		values.SetRow(i, sum)
		ids[i] = order[group]
		sampleCounts[i] = counts[group]
	}

	return &CentroidSet{
		Points:    Points{IDs: ids, Components: table.Components, Values: values},
		Counts:    sampleCounts,
		Labels:    labels,
		Conflicts: conflicts,
	}, nil
}

// IsCellLine reports whether a dataset label marks a cell line.
func IsCellLine(dataset string) bool {
	return dataset == CellLineDataset
}

// Partition splits the centroids into cell-line and tumor populations using
// their dataset labels. Either population being empty is an error.
func (c *CentroidSet) Partition() (cellLines, tumors Points, err error) {
	var cellLineRows, tumorRows []int
	for i, sample := range c.IDs {
		if IsCellLine(c.Labels[sample]) {
			cellLineRows = append(cellLineRows, i)
		} else {
			tumorRows = append(tumorRows, i)
		}
	}

	if len(cellLineRows) == 0 || len(tumorRows) == 0 {
		return Points{}, Points{}, fmt.Errorf("%w: %d cell-line and %d tumor samples", ErrEmptyPopulation, len(cellLineRows), len(tumorRows))
	}

	return c.Subset(cellLineRows), c.Subset(tumorRows), nil
}

// SampleTypes maps every labelled sample to SampleTypeCellLine or
// SampleTypePrimaryTumor.
func SampleTypes(labels map[string]string) map[string]string {
	types := make(map[string]string, len(labels))
	for sample, dataset := range labels {
		if IsCellLine(dataset) {
			types[sample] = SampleTypeCellLine
		} else {
			types[sample] = SampleTypePrimaryTumor
		}
	}
	return types
}
