// Package tui is a read-only terminal browser over a saved result snapshot.
// It reshapes the snapshot's tidy table (category filter, top-N) but never
// recomputes similarities.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/report"
	"github.com/CaioMussatto/Cacaio-docker/similarity"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// filters cycles the category selector. "all" is not a sample type and so
// keeps every entry.
var filters = []string{"all", embedding.SampleTypeCellLine, embedding.SampleTypePrimaryTumor}

// Model represents the browser state.
type Model struct {
	width, height int
	path          string
	snapshot      *report.Snapshot
	activeTab     viewTab
	filterIndex   int
	topN          int
	selectedIndex int
	showDetail    bool
	version       string
	err           error
}

// snapshotLoaded is the message returned after reading the snapshot file.
type snapshotLoaded struct {
	snapshot *report.Snapshot
	err      error
}

// NewModel creates a browser for the snapshot stored at path.
func NewModel(path string, topN int, version string) Model {
	if topN < 1 {
		topN = 5
	}
	return Model{
		path:          path,
		width:         80,
		height:        24,
		topN:          topN,
		selectedIndex: 0,
		version:       version,
	}
}

// Init loads the snapshot.
func (model Model) Init() tea.Cmd {
	path := model.path
	return func() tea.Msg {
		snapshot, err := report.LoadSnapshot(path)
		return snapshotLoaded{snapshot: snapshot, err: err}
	}
}

// Update handles all incoming messages and updates the model state accordingly.
func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch message := msg.(type) {
	case tea.KeyMsg:
		return model.handleKeyPress(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height

	case snapshotLoaded:
		model.snapshot = message.snapshot
		model.err = message.err
		model.selectedIndex = 0
	}

	return model, nil
}

// handleKeyPress processes keyboard input.
func (model Model) handleKeyPress(keyMessage tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch keyMessage.String() {
	case "ctrl+c", "esc", "q":
		return model, tea.Quit

	case "1":
		model.switchTab(tabMatches)
	case "2":
		model.switchTab(tabBest)
	case "3":
		model.switchTab(tabEnrichment)
	case "tab":
		model.switchTab((model.activeTab + 1) % 3)

	case "up", "k":
		model.selectPrevious()
	case "down", "j":
		model.selectNext()

	case "/":
		model.showDetail = !model.showDetail

	case "f":
		model.filterIndex = (model.filterIndex + 1) % len(filters)
		model.clampSelection()

	case "+", "=":
		model.topN++
	case "-":
		if model.topN > 1 {
			model.topN--
			model.clampSelection()
		}
	}

	return model, nil
}

func (model *Model) switchTab(tab viewTab) {
	model.activeTab = tab
	model.selectedIndex = 0
}

func (model *Model) selectNext() {
	if count := model.rowCount(); count > 0 {
		model.selectedIndex = (model.selectedIndex + 1) % count
	}
}

func (model *Model) selectPrevious() {
	if count := model.rowCount(); count > 0 {
		model.selectedIndex--
		if model.selectedIndex < 0 {
			model.selectedIndex = count - 1
		}
	}
}

func (model *Model) clampSelection() {
	if count := model.rowCount(); model.selectedIndex >= count {
		model.selectedIndex = count - 1
	}
	if model.selectedIndex < 0 {
		model.selectedIndex = 0
	}
}

// matches returns the filtered top-N entries of the tidy table.
func (model Model) matches() []similarity.Entry {
	if model.snapshot == nil {
		return nil
	}
	entries := model.snapshot.Entries
	if model.snapshot.Kind == report.KindCrossModal {
		entries = similarity.FilterEntries(entries, model.snapshot.SampleTypes, embedding.SampleTypeNames(), filters[model.filterIndex], similarity.ByColumn)
	}
	top, err := similarity.TopN(entries, model.topN)
	if err != nil {
		return nil
	}
	return top
}

func (model Model) best() []similarity.Match {
	if model.snapshot == nil {
		return nil
	}
	return model.snapshot.Best
}

func (model Model) enrichment() []enrichr.Result {
	if model.snapshot == nil {
		return nil
	}
	return enrichr.TopByAdjustedP(model.snapshot.Enrichment, model.topN)
}

func (model Model) rowCount() int {
	switch model.activeTab {
	case tabBest:
		return len(model.best())
	case tabEnrichment:
		return len(model.enrichment())
	default:
		return len(model.matches())
	}
}

func (model Model) filterLabel() string {
	if model.snapshot == nil || model.snapshot.Kind != report.KindCrossModal {
		return "n/a"
	}
	return filters[model.filterIndex]
}

func (model Model) topLabel() string {
	return strconv.Itoa(model.topN)
}

// View renders the browser.
func (model Model) View() string {
	s := newStyles()
	layout := model.calculateLayout()

	var b strings.Builder
	b.WriteString(model.renderTabBar(s, layout.totalWidth))
	b.WriteString("\n")
	b.WriteString(model.renderContentArea(s, layout))
	b.WriteString("\n")
	if errorLine := model.renderError(s); errorLine != "" {
		b.WriteString(errorLine)
		b.WriteString("\n")
	}
	b.WriteString(model.renderStatusBar(s, layout.totalWidth))

	return lipgloss.NewStyle().Padding(1, 1).Render(b.String())
}

// renderTable draws the active tab's rows, keeping the selection visible.
func (model Model) renderTable(s styles, width, height int) string {
	if model.snapshot == nil {
		if model.err != nil {
			return s.label.Render("No snapshot loaded.")
		}
		return s.label.Render("Loading " + model.path + "...")
	}

	headers, rows := model.tableRows()
	if len(rows) == 0 {
		return s.label.Render("No data for this selection.")
	}

	columnWidths := make([]int, len(headers))
	remaining := width
	for i := range headers {
		columnWidths[i] = remaining / (len(headers) - i)
		remaining -= columnWidths[i]
	}
	formatRow := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fitCell(cell, columnWidths[i]-1)
		}
		return strings.Join(parts, " ")
	}

	lines := []string{s.header.Render(formatRow(headers))}
	visible := height - 1
	start := 0
	if model.selectedIndex >= visible {
		start = model.selectedIndex - visible + 1
	}
	for i := start; i < len(rows) && i < start+visible; i++ {
		style := s.row
		if i == model.selectedIndex {
			style = s.selected
		}
		lines = append(lines, style.Render(formatRow(rows[i])))
	}
	return strings.Join(lines, "\n")
}

func (model Model) tableRows() ([]string, [][]string) {
	switch model.activeTab {
	case tabBest:
		return model.snapshot.Headers(), report.MatchRows(model.best())
	case tabEnrichment:
		return report.EnrichmentHeaders, report.EnrichmentRows(model.enrichment())
	default:
		return model.snapshot.Headers(), report.EntryRows(model.matches())
	}
}

// renderDetail generates the overlay content for the selected row.
func (model Model) renderDetail(s styles, width, height int) string {
	var lines []string
	field := func(label, value string) {
		lines = append(lines, s.label.Render(label+": ")+fitCell(value, width-len(label)-2))
	}

	switch model.activeTab {
	case tabEnrichment:
		results := model.enrichment()
		if model.selectedIndex >= len(results) {
			return ""
		}
		r := results[model.selectedIndex]
		lines = append(lines, s.header.Render(fitCell(r.Term, width)))
		field("Library", r.GeneSet)
		field("Overlap", r.Overlap)
		field("P-value", fmt.Sprintf("%.3g", r.PValue))
		field("Adj. P", fmt.Sprintf("%.3g", r.AdjustedPValue))
		field("-log10", fmt.Sprintf("%.2f", r.NegLog10AdjustedP()))
		field("Odds", fmt.Sprintf("%.2f", r.OddsRatio))
		field("Score", fmt.Sprintf("%.2f", r.CombinedScore))
		lines = append(lines, "")
		lines = append(lines, wrapGenes(r.Genes, width)...)

	default:
		var row, column string
		var value float64
		if model.activeTab == tabBest {
			best := model.best()
			if model.selectedIndex >= len(best) {
				return ""
			}
			row, column, value = best[model.selectedIndex].Row, best[model.selectedIndex].Column, best[model.selectedIndex].Value
		} else {
			matches := model.matches()
			if model.selectedIndex >= len(matches) {
				return ""
			}
			row, column, value = matches[model.selectedIndex].Row, matches[model.selectedIndex].Column, matches[model.selectedIndex].Value
		}
		headers := model.snapshot.Headers()
		lines = append(lines, s.header.Render("Selected"))
		field(headers[0], row)
		field(headers[1], column)
		field("dCor", report.FormatValue(value))
		if sampleType, ok := model.snapshot.SampleTypes[column]; ok {
			field("type", sampleType)
		}
		lines = append(lines, "")
		field("run", model.snapshot.RunID)
		field("dataset", model.snapshot.Dataset)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// wrapGenes joins genes into lines no wider than width.
func wrapGenes(genes []string, width int) []string {
	var lines []string
	var current string
	for _, gene := range genes {
		switch {
		case current == "":
			current = gene
		case len(current)+1+len(gene) <= width:
			current += " " + gene
		default:
			lines = append(lines, current)
			current = gene
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
