package similarity

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/CaioMussatto/Cacaio-docker/dcor"
	"github.com/CaioMussatto/Cacaio-docker/embedding"
)

// Measure scores a pair of equally sized vectors. A returned error marks the
// pair as missing.
type Measure func(x, y []float64) (float64, error)

// Options configures Compute.
type Options struct {
	// Measure defaults to dcor.Distance.
	Measure Measure

	// Workers bounds the number of goroutines; zero or less uses runtime.NumCPU().
	Workers int
}

// PairFailure records a pair whose measure failed.
type PairFailure struct {
	Row    string
	Column string
	Err    error
}

// Report summarises a Compute call.
type Report struct {
	Pairs    int
	Failures []PairFailure
}

// Compute scores every (row, column) pair. Failing pairs become missing cells
// and are listed in the report; they never abort the batch. Rows are split
// across workers and each worker writes only the cells of its own rows.
func Compute(rows, columns embedding.Points, opts Options) (*Matrix, Report, error) {
	if rows.Len() == 0 || columns.Len() == 0 {
		return nil, Report{}, fmt.Errorf("%w: %d rows, %d columns", embedding.ErrEmptyPopulation, rows.Len(), columns.Len())
	}
	if rows.Dim() != columns.Dim() {
		return nil, Report{}, fmt.Errorf("%w: rows have %d components, columns have %d", ErrDimension, rows.Dim(), columns.Dim())
	}

	measure := opts.Measure
	if measure == nil {
		measure = dcor.Distance
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > rows.Len() {
		workers = rows.Len()
	}

	matrix := NewMatrix(rows.IDs, columns.IDs)

	columnVectors := make([][]float64, columns.Len())
	for j := range columnVectors {
		columnVectors[j] = columns.Vector(j)
	}

	failuresByRow := make([][]PairFailure, rows.Len())
	rowIndices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rowIndices {
				rowVector := rows.Vector(i)
				for j, columnVector := range columnVectors {
					value, err := measure(rowVector, columnVector)
					if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
						if err == nil {
							err = fmt.Errorf("%w in result", dcor.ErrNonFinite)
						}
						failuresByRow[i] = append(failuresByRow[i], PairFailure{Row: rows.IDs[i], Column: columns.IDs[j], Err: err})
						continue
					}
					matrix.Set(i, j, value)
				}
			}
		}()
	}

	for i := 0; i < rows.Len(); i++ {
		rowIndices <- i
	}
	close(rowIndices)
	wg.Wait()

	report := Report{Pairs: rows.Len() * columns.Len()}
	for _, failures := range failuresByRow {
		report.Failures = append(report.Failures, failures...)
	}
	return matrix, report, nil
}
