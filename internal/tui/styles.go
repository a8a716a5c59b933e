package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	primary   = lipgloss.Color("#7C3AED") // violet
	secondary = lipgloss.Color("#06B6D4") // cyan
	success   = lipgloss.Color("#22C55E")
	warning   = lipgloss.Color("#F59E0B")
	danger    = lipgloss.Color("#EF4444")
	muted     = lipgloss.Color("#6B7280")
	text      = lipgloss.Color("#E5E7EB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginBottom(1)

	statLabel = lipgloss.NewStyle().Foreground(muted).Width(12)
	statValue = lipgloss.NewStyle().Foreground(text).Bold(true)

	statsBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			Width(34)

	helpStyle    = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	cachedStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(secondary)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true).
		Bold(true).
		Foreground(secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primary).
		Bold(true)
	return s
}
