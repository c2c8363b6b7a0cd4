package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/importer"
	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	reportBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)
)

// consoleNotifier prints operation outcomes for a person at a terminal.
type consoleNotifier struct {
	w io.Writer
}

func newConsoleNotifier(w io.Writer) *consoleNotifier {
	return &consoleNotifier{w: w}
}

func (c *consoleNotifier) NotifyError(msg string) {
	fmt.Fprintln(c.w, errorStyle.Render("✗"), msg)
}

func (c *consoleNotifier) NotifySuccess(msg string) {
	fmt.Fprintln(c.w, successStyle.Render("✓"), msg)
}

func severityStyle(s constraints.Severity) lipgloss.Style {
	switch s {
	case constraints.Error:
		return errorStyle
	case constraints.Warning:
		return warningStyle
	default:
		return dimStyle
	}
}

// writeViolations renders violations grouped by severity, most severe first.
func writeViolations(w io.Writer, violations []constraints.Violation) {
	for _, sev := range []constraints.Severity{constraints.Error, constraints.Warning, constraints.Info} {
		for _, v := range violations {
			if v.Severity != sev {
				continue
			}
			fmt.Fprintf(w, "%s %s %s\n",
				severityStyle(sev).Render(fmt.Sprintf("%-7s", strings.ToUpper(sev.String()))),
				dimStyle.Render("["+v.Type.String()+"]"),
				v.Message)
		}
	}
}

// writeValidation renders a validation result with a summary box.
func writeValidation(w io.Writer, nodes, edges int, result *constraints.ValidationResult) {
	errs := len(result.GetViolationsBySeverity(constraints.Error))
	warns := len(result.GetViolationsBySeverity(constraints.Warning))

	status := successStyle.Render("consistent")
	if errs > 0 {
		status = errorStyle.Render("inconsistent")
	}
	summary := fmt.Sprintf("%s\n%d nodes, %d relations\n%d errors, %d warnings\nstatus: %s",
		titleStyle.Render("Model check"), nodes, edges, errs, warns, status)
	fmt.Fprintln(w, reportBoxStyle.Render(summary))
	writeViolations(w, result.Violations)
}

func writeImportReport(w io.Writer, r *importer.Report) {
	fmt.Fprintf(w, "imported %d nodes and %d relations\n", r.Nodes, r.Edges)
	writeViolations(w, r.Warnings)
}

func writeEdge(w io.Writer, e *model.Edge) {
	lock := ""
	if e.LockConnection {
		lock = " " + dimStyle.Render("(locked)")
	}
	fmt.Fprintf(w, "%s\t%s\t%s -> %s%s\n", e.ID, e.Kind, e.Source, e.Target, lock)
}
