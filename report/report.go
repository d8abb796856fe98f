// Package report turns pipeline results into delimited exports, terminal
// tables and msgpack snapshots that the browser can reopen.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

// Column headers of the tidy export.
var (
	CompareHeaders    = []string{"cell_line", "tumor", "distance_correlation"}
	CrossModalHeaders = []string{"bulk_sample", "pseudo_bulk_sample", "distance_correlation"}
	EnrichmentHeaders = []string{"gene_set", "term", "overlap", "adjusted_p", "combined_score", "genes"}
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// WriteDelimited writes entries as three-column delimited text.
func WriteDelimited(w io.Writer, headers []string, entries []similarity.Entry, sep rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = sep
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range EntryRows(entries) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// EntryRows formats entries as table cells.
func EntryRows(entries []similarity.Entry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Row, e.Column, FormatValue(e.Value)}
	}
	return rows
}

// MatchRows formats matches as table cells.
func MatchRows(matches []similarity.Match) [][]string {
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{m.Row, m.Column, FormatValue(m.Value)}
	}
	return rows
}

// EnrichmentRows formats enrichment results as table cells.
func EnrichmentRows(results []enrichr.Result) [][]string {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.GeneSet,
			r.Term,
			r.Overlap,
			strconv.FormatFloat(r.AdjustedPValue, 'g', 3, 64),
			strconv.FormatFloat(r.CombinedScore, 'f', 2, 64),
			fmt.Sprint(len(r.Genes)),
		}
	}
	return rows
}

// SortedMatches lists per-row best matches in the given row order. Rows
// without a match are skipped; with a nil order rows are sorted by id.
func SortedMatches(best map[string]similarity.Match, order []string) []similarity.Match {
	if order == nil {
		for row := range best {
			order = append(order, row)
		}
		sort.Strings(order)
	}
	matches := make([]similarity.Match, 0, len(best))
	for _, row := range order {
		if match, ok := best[row]; ok {
			matches = append(matches, match)
		}
	}
	return matches
}

// RenderTable draws rows as a bordered terminal table.
func RenderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// FormatValue prints a similarity with four decimals.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
