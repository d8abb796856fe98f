package similarity

import (
	"fmt"
	"sort"
)

// Entry is one present cell of a matrix in long form.
type Entry struct {
	Row    string
	Column string
	Value  float64
}

// Match is a best-match record: the column achieving the highest value for a
// row, or for the whole matrix.
type Match struct {
	Row    string
	Column string
	Value  float64
}

// Tidy returns one entry per present cell, sorted by value descending. Equal
// values keep row-major order.
func (m *Matrix) Tidy() []Entry {
	rows, columns := m.Dims()
	entries := make([]Entry, 0, m.Present())
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if m.Missing(i, j) {
				continue
			}
			entries = append(entries, Entry{Row: m.RowIDs[i], Column: m.ColumnIDs[j], Value: m.At(i, j)})
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Value > entries[b].Value
	})
	return entries
}

// Pivot rebuilds a matrix from entries. Row and column order follow first
// appearance unless rowIDs or columnIDs are given. Cells without an entry are
// missing.
func Pivot(entries []Entry, rowIDs, columnIDs []string) (*Matrix, error) {
	if rowIDs == nil {
		rowIDs = firstAppearance(entries, func(e Entry) string { return e.Row })
	}
	if columnIDs == nil {
		columnIDs = firstAppearance(entries, func(e Entry) string { return e.Column })
	}

	rowIndex := indexOf(rowIDs)
	columnIndex := indexOf(columnIDs)
	matrix := NewMatrix(rowIDs, columnIDs)
	for _, e := range entries {
		i, okRow := rowIndex[e.Row]
		j, okColumn := columnIndex[e.Column]
		if !okRow || !okColumn {
			return nil, fmt.Errorf("%w: entry (%s, %s) outside the given ids", ErrDimension, e.Row, e.Column)
		}
		if !matrix.Missing(i, j) {
			return nil, fmt.Errorf("%w: (%s, %s)", ErrDuplicate, e.Row, e.Column)
		}
		matrix.Set(i, j, e.Value)
	}
	return matrix, nil
}

// Best returns the highest present cell of the matrix. Ties go to the first
// cell in row-major order.
func (m *Matrix) Best() (Match, error) {
	rows, columns := m.Dims()
	best := Match{}
	found := false
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if m.Missing(i, j) {
				continue
			}
			if value := m.At(i, j); !found || value > best.Value {
				best = Match{Row: m.RowIDs[i], Column: m.ColumnIDs[j], Value: value}
				found = true
			}
		}
	}
	if !found {
		return Match{}, fmt.Errorf("%w: no present cell", ErrEmptyMatrix)
	}
	return best, nil
}

// RowBest returns the best column of every row that has at least one present
// cell, keyed by row id. Ties go to the first column.
func (m *Matrix) RowBest() map[string]Match {
	rows, columns := m.Dims()
	matches := make(map[string]Match, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			if m.Missing(i, j) {
				continue
			}
			current, found := matches[m.RowIDs[i]]
			if value := m.At(i, j); !found || value > current.Value {
				matches[m.RowIDs[i]] = Match{Row: m.RowIDs[i], Column: m.ColumnIDs[j], Value: value}
			}
		}
	}
	return matches
}

// Field selects which id of an entry is looked up in a category map.
type Field int

const (
	ByRow Field = iota
	ByColumn
)

// FilterEntries keeps the entries whose id (row or column, per field) maps to
// selector in categories. Selectors are recognised against known, the fixed
// set of category names, so a known selector with no members yields no
// entries. A selector outside known means no filtering and the entries are
// returned unchanged. Order is kept.
func FilterEntries(entries []Entry, categories map[string]string, known []string, selector string, field Field) []Entry {
	if !isCategory(known, selector) {
		return entries
	}

	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		id := e.Row
		if field == ByColumn {
			id = e.Column
		}
		if categories[id] == selector {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// TopN returns the n highest entries. Entries are re-sorted stably, so equal
// values keep their incoming order. Asking for more entries than exist
// returns all of them.
func TopN(entries []Entry, n int) ([]Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidN, n)
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Value > sorted[b].Value
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n], nil
}

func isCategory(known []string, selector string) bool {
	for _, category := range known {
		if category == selector {
			return true
		}
	}
	return false
}

func firstAppearance(entries []Entry, key func(Entry) string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		id := key(e)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func indexOf(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}
