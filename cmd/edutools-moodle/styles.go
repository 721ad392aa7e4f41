package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by all command output.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// styles renders for one writer, so output to a file or pipe stays plain.
type styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Highlight lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Title:     r.NewStyle().Bold(true).Foreground(ColorPrimary),
		Subtitle:  r.NewStyle().Foreground(ColorMuted),
		Success:   r.NewStyle().Foreground(ColorSuccess),
		Error:     r.NewStyle().Bold(true).Foreground(ColorError),
		Warning:   r.NewStyle().Foreground(ColorWarning),
		Highlight: r.NewStyle().Foreground(ColorHighlight),
	}
}
