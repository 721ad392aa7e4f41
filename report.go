package moodle

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const reportWidth = 80

type reportStyles struct {
	title   lipgloss.Style
	module  lipgloss.Style
	granted lipgloss.Style
	denied  lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

// Styles are built per writer so colour is only emitted to terminals.
func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		module:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		granted: r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		denied:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// Render writes the report grouped by module, followed by a summary and
// the functions to add to the web service.
func (r *PermissionReport) Render(w io.Writer) error {
	s := newReportStyles(w)
	rule := strings.Repeat("=", reportWidth)
	var b strings.Builder

	b.WriteString("\n" + rule + "\n")
	b.WriteString(s.title.Render("MOODLE WEB SERVICE PERMISSIONS CHECK") + "\n")
	b.WriteString(rule + "\n")

	module := ""
	for _, d := range r.Details {
		if d.Module != module {
			module = d.Module
			b.WriteString("\n" + s.module.Render("📦 Module: "+strings.ToUpper(module)) + "\n")
			b.WriteString(strings.Repeat("-", reportWidth) + "\n")
		}
		switch d.Status {
		case PermissionGranted:
			fmt.Fprintf(&b, "  ✅ %-45s %s\n", d.Function, s.muted.Render(d.Description))
		case PermissionDenied:
			fmt.Fprintf(&b, "  ❌ %-45s %s\n", d.Function, s.denied.Render("PERMISSION DENIED"))
		default:
			fmt.Fprintf(&b, "  ⚠️  %-45s %s\n", d.Function, s.warning.Render("ERROR: "+d.Error))
		}
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString(s.title.Render("SUMMARY") + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total permissions checked: %d\n", r.Total)
	b.WriteString(s.granted.Render(fmt.Sprintf("✅ Granted: %d", r.Granted)) + "\n")
	b.WriteString(s.denied.Render(fmt.Sprintf("❌ Denied: %d", r.Denied)) + "\n")

	if r.Denied > 0 {
		b.WriteString("\n" + s.warning.Render("⚠️  MISSING PERMISSIONS:") + "\n")
		b.WriteString("Add these functions to your Moodle web service:\n")
		for _, name := range r.Missing {
			b.WriteString("  - " + name + "\n")
		}
	} else {
		b.WriteString("\n" + s.granted.Render("✅ All required permissions are granted!") + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
