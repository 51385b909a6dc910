package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pimenu-ng/internal/nav"
)

func tileColor(e nav.Entry) string {
	switch {
	case e.Back:
		return colorBack
	case e.Item.Color != "":
		return e.Item.Color
	case e.Item.IsBranch():
		return colorBranch
	default:
		return colorLeaf
	}
}

func tileLabel(e nav.Entry) string {
	if e.Item.IsBranch() {
		return e.Item.Label + "…"
	}
	return e.Item.Label
}

// cellSize splits the area below the header evenly between the grid cells.
func cellSize(width, height, rows, cols int) (int, int) {
	cw := width / max(cols, 1)
	ch := (height - headerHeight) / max(rows, 1)
	return max(cw, 4), max(ch, 1)
}

// hit maps a screen position to the menu entry drawn there.
func (m *Model) hit(x, y int) (int, bool) {
	p := m.stack.Top()
	if p == nil || y < headerHeight {
		return 0, false
	}
	cw, ch := cellSize(m.viewWidth(), m.viewHeight(), p.Rows, p.Cols)
	row, col := (y-headerHeight)/ch, x/cw
	if _, ok := p.At(row, col); !ok {
		return 0, false
	}
	return row*p.Cols + col, true
}

func (m *Model) viewMenu() string {
	p := m.stack.Top()
	width, height := m.viewWidth(), m.viewHeight()

	title := "PiMenu"
	if p != nil && len(p.Path) > 0 {
		title += " › " + strings.Join(p.Path, " › ")
	}
	parts := []string{" " + runewidth.Truncate(title, max(width/2, 8), "…")}
	if m.menuChanged {
		parts = append(parts, " ", badgeStyle.Render("menu changed"))
	}
	if m.banner != "" {
		parts = append(parts, " ", errorStyle.Render(runewidth.Truncate(m.banner, max(width/2, 8), "…")))
	}
	header := headerStyle.Width(width).MaxHeight(headerHeight).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	if p == nil {
		return header
	}

	cw, ch := cellSize(width, height, p.Rows, p.Cols)
	rows := make([]string, 0, p.Rows+1)
	rows = append(rows, header)
	for r := 0; r < p.Rows; r++ {
		cells := make([]string, 0, p.Cols)
		for c := 0; c < p.Cols; c++ {
			e, ok := p.At(r, c)
			if !ok {
				cells = append(cells, lipgloss.NewStyle().Width(cw).Height(ch).Render(""))
				continue
			}
			cells = append(cells, renderTile(e, cw, ch, r*p.Cols+c == m.cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTile(e nav.Entry, cw, ch int, selected bool) string {
	st := lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorText)).
		Background(lipgloss.Color(tileColor(e))).
		Align(lipgloss.Center, lipgloss.Center)
	w, h := cw, ch
	if cw > 4 && ch > 2 {
		st = st.Border(lipgloss.HiddenBorder())
		w, h = cw-2, ch-2
	}
	if selected {
		st = st.Bold(true).Reverse(true)
	}
	label := runewidth.Truncate(tileLabel(e), max(w-2, 1), "…")
	return st.Width(w).Height(h).Render(label)
}
