package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"
)

const (
	overlayPanelWidth  = 48
	overlayPanelHeight = 14
	minCanvasWidth     = 40
	minCanvasHeight    = 10
	tabBarHeight       = 1
	statusBarHeight    = 1
	borderSize         = 2
)

type viewTab int

const (
	tabMatches viewTab = iota
	tabBest
	tabEnrichment
)

type layoutDimensions struct {
	totalWidth   int
	totalHeight  int
	canvasWidth  int
	canvasHeight int
}

func (m Model) calculateLayout() layoutDimensions {
	marginX := 2
	marginY := 2

	totalWidth := m.width - marginX
	totalHeight := m.height - marginY

	canvasHeight := totalHeight - tabBarHeight - statusBarHeight
	if canvasHeight < minCanvasHeight {
		canvasHeight = minCanvasHeight
	}

	canvasWidth := totalWidth - borderSize
	if canvasWidth < minCanvasWidth {
		canvasWidth = minCanvasWidth
	}

	return layoutDimensions{
		totalWidth:   totalWidth,
		totalHeight:  totalHeight,
		canvasWidth:  canvasWidth,
		canvasHeight: canvasHeight,
	}
}

type styles struct {
	title, header, label, row, selected lipgloss.Style
	tabActive, tabInactive, muted       lipgloss.Style
	canvas, overlay, errorText          lipgloss.Style
}

// palette colours, keyed by role.
var palette = struct {
	accent, frame, panel, panelBackground, muted, match, text, failure lipgloss.Color
}{
	accent:          "#5FD7AF",
	frame:           "#5F87AF",
	panel:           "#AF87D7",
	panelBackground: "#262626",
	muted:           "#767676",
	match:           "#FFD75F",
	text:            "#D0D0D0",
	failure:         "#FF5F5F",
}

func newStyles() styles {
	plain := lipgloss.NewStyle()
	bold := plain.Bold(true)
	rounded := plain.Border(lipgloss.RoundedBorder())

	return styles{
		title:       bold.Foreground(palette.accent),
		header:      bold.Foreground(palette.accent).Underline(true),
		label:       plain.Foreground(palette.muted),
		row:         plain.Foreground(palette.text),
		selected:    bold.Foreground(palette.match),
		tabActive:   bold.Foreground(palette.accent).Padding(0, 1),
		tabInactive: plain.Foreground(palette.muted).Padding(0, 1),
		muted:       plain.Foreground(palette.muted),
		canvas:      rounded.BorderForeground(palette.frame),
		overlay:     rounded.BorderForeground(palette.panel).Background(palette.panelBackground).Padding(0, 1),
		errorText:   bold.Foreground(palette.failure),
	}
}

var tabNames = [...]string{tabMatches: "Matches", tabBest: "Best", tabEnrichment: "Enrichment"}

// renderTabBar lists the tabs with their row counts on the left and the
// snapshot being browsed on the right.
func (m Model) renderTabBar(s styles, width int) string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		view := m
		view.activeTab = viewTab(i)
		label := fmt.Sprintf("%s %d", name, view.rowCount())
		if view.activeTab == m.activeTab {
			tabs[i] = s.tabActive.Render(label)
		} else {
			tabs[i] = s.tabInactive.Render(label)
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	right := s.title.Render("cacaio")
	if m.snapshot != nil {
		right = s.muted.Render(m.snapshot.Kind+" · "+m.snapshot.Dataset+"  ") + right
	}
	return spread(left, right, width)
}

// spread places left and right at the two ends of a line of width cells.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	return left + strings.Repeat(" ", max(gap, 1)) + right
}

func (m Model) renderContentArea(s styles, layout layoutDimensions) string {
	canvasInnerWidth := layout.canvasWidth - borderSize
	canvasInnerHeight := layout.canvasHeight - borderSize

	content := m.renderTable(s, canvasInnerWidth, canvasInnerHeight)
	canvasBox := s.canvas.
		Width(canvasInnerWidth).
		Height(canvasInnerHeight).
		Render(content)

	if m.showDetail && m.selectedIndex >= 0 && m.selectedIndex < m.rowCount() {
		canvasBox = m.overlayDetailPanel(canvasBox, s, layout)
	}

	return canvasBox
}

func (m Model) overlayDetailPanel(base string, s styles, layout layoutDimensions) string {
	panelInnerWidth := overlayPanelWidth - 4
	panelInnerHeight := overlayPanelHeight

	if panelInnerHeight > layout.canvasHeight-4 {
		panelInnerHeight = layout.canvasHeight - 4
	}

	detail := m.renderDetail(s, panelInnerWidth-2, panelInnerHeight)
	panel := s.overlay.
		Width(panelInnerWidth).
		Height(panelInnerHeight).
		Render(detail)

	return overlayAt(base, panel, layout.canvasWidth-overlayPanelWidth-1, 1)
}

func overlayAt(base, overlay string, x, y int) string {
	bgLines, bgWidth := getLines(base)
	fgLines, fgWidth := getLines(overlay)
	bgHeight := len(bgLines)
	fgHeight := len(fgLines)

	if fgWidth >= bgWidth && fgHeight >= bgHeight {
		return overlay
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > bgWidth-fgWidth {
		x = bgWidth - fgWidth
	}
	if y > bgHeight-fgHeight {
		y = bgHeight - fgHeight
	}

	var b strings.Builder
	for i, bgLine := range bgLines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i < y || i >= y+fgHeight {
			b.WriteString(bgLine)
			continue
		}

		pos := 0
		if x > 0 {
			left := truncate.String(bgLine, uint(x))
			pos = ansi.StringWidth(left)
			b.WriteString(left)
			if pos < x {
				b.WriteString(strings.Repeat(" ", x-pos))
				pos = x
			}
		}

		fgLine := fgLines[i-y]
		b.WriteString(fgLine)
		pos += ansi.StringWidth(fgLine)

		right := ansi.TruncateLeft(bgLine, pos, "")
		lineWidth := ansi.StringWidth(bgLine)
		rightWidth := ansi.StringWidth(right)
		if rightWidth <= lineWidth-pos {
			b.WriteString(strings.Repeat(" ", lineWidth-rightWidth-pos))
		}
		b.WriteString(right)
	}

	return b.String()
}

func getLines(s string) ([]string, int) {
	lines := strings.Split(s, "\n")
	widest := 0
	for _, l := range lines {
		w := ansi.StringWidth(l)
		if widest < w {
			widest = w
		}
	}
	return lines, widest
}

// fitCell truncates or pads text to exactly width cells.
func fitCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(text) > width {
		if width == 1 {
			return "…"
		}
		return truncate.StringWithTail(text, uint(width), "…")
	}
	return text + strings.Repeat(" ", width-ansi.StringWidth(text))
}

type keyHint struct{ keys, action string }

func (m Model) renderStatusBar(s styles, width int) string {
	hints := []keyHint{
		{"↑↓", "select"},
		{"/", "detail"},
		{"f", "filter " + m.filterLabel()},
		{"+/-", "top " + m.topLabel()},
		{"1-3", "tabs"},
		{"q", "quit"},
	}
	parts := make([]string, len(hints))
	for i, hint := range hints {
		parts[i] = hint.keys + " " + hint.action
	}

	right := m.version
	if m.snapshot != nil && len(m.snapshot.RunID) >= 8 {
		right = "run " + m.snapshot.RunID[:8] + "  " + right
	}
	return s.muted.Render(spread(strings.Join(parts, "  "), right, width))
}

func (m Model) renderError(s styles) string {
	if m.err == nil {
		return ""
	}
	return s.errorText.Render("Error: " + m.err.Error())
}
