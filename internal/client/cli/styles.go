package cli

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
	label lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4")),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		muted: lipgloss.NewStyle().Faint(true),
		label: lipgloss.NewStyle().Bold(true).Width(16),
	}
}
