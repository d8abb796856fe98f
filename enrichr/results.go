package enrichr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrMalformedExport = errors.New("enrichr: malformed export")

// Result is one enriched term.
type Result struct {
	GeneSet        string
	Term           string
	Overlap        string
	PValue         float64
	AdjustedPValue float64
	OddsRatio      float64
	CombinedScore  float64
	Genes          []string
}

// NegLog10AdjustedP is the usual bar length for enrichment plots.
func (r Result) NegLog10AdjustedP() float64 {
	if r.AdjustedPValue <= 0 {
		return math.Inf(1)
	}
	return -math.Log10(r.AdjustedPValue)
}

// exportColumns are the export headers this package reads.
var exportColumns = []string{
	"Term",
	"Overlap",
	"P-value",
	"Adjusted P-value",
	"Odds Ratio",
	"Combined Score",
	"Genes",
}

// ParseResults reads the tab-separated table produced by the export
// endpoint. Unknown columns are ignored; genes are split on ';'.
func ParseResults(r io.Reader) ([]Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.TrimSpace(name)] = i
	}
	for _, name := range exportColumns {
		if _, ok := position[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedExport, name)
		}
	}

	var results []Result
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedExport, line, err)
		}
		if len(record) < len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrMalformedExport, line, len(record), len(header))
		}

		field := func(name string) string { return strings.TrimSpace(record[position[name]]) }
		number := func(name string) (float64, error) {
			value, err := strconv.ParseFloat(field(name), 64)
			if err != nil {
				return 0, fmt.Errorf("%w: line %d column %q: %v", ErrMalformedExport, line, name, err)
			}
			return value, nil
		}

		result := Result{Term: field("Term"), Overlap: field("Overlap")}
		if result.PValue, err = number("P-value"); err != nil {
			return nil, err
		}
		if result.AdjustedPValue, err = number("Adjusted P-value"); err != nil {
			return nil, err
		}
		if result.OddsRatio, err = number("Odds Ratio"); err != nil {
			return nil, err
		}
		if result.CombinedScore, err = number("Combined Score"); err != nil {
			return nil, err
		}
		if genes := field("Genes"); genes != "" {
			result.Genes = strings.Split(genes, ";")
		}
		results = append(results, result)
	}
	return results, nil
}

// TopByAdjustedP returns the n most significant results. Equal adjusted
// p-values keep their incoming order.
func TopByAdjustedP(results []Result, n int) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].AdjustedPValue < sorted[b].AdjustedPValue
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
