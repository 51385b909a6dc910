package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorBranch = "#2b5797" // dark-blue
	colorLeaf   = "#b91d47" // dark-red
	colorBack   = "#00a300" // green
	colorText   = "#ffffff"
)

const (
	headerHeight = 1
	footerHeight = 1
	mapWidth     = 34

	defaultWidth  = 80
	defaultHeight = 24
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color("#1d1d1d"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1d1d1d")).
			Background(lipgloss.Color("#e3a21a")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color(colorLeaf)).
			Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color(colorBranch)).
			Padding(0, 1)

	mapStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#555555")).
			PaddingLeft(1)
)
