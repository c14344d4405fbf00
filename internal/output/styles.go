package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwtly10/shadertpl"
)

var (
	colorCyan    = lipgloss.Color("14")
	colorGreen   = lipgloss.Color("82")
	colorYellow  = lipgloss.Color("220")
	colorBoldRed = lipgloss.Color("204")
)

var (
	// StyleNoun styles template and module names
	StyleNoun = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim  = lipgloss.NewStyle().Faint(true)
	// StyleSummary styles completion and summary lines
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

const (
	StatusCompiled = "compiled"
	StatusWarning  = "warnings"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusCompiled:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case StatusWarning:
		return lipgloss.NewStyle().Foreground(colorYellow)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(colorBoldRed)
	case StatusSkipped:
		return lipgloss.NewStyle().Faint(true)
	default:
		return lipgloss.NewStyle()
	}
}

// FileStatus formats one line of a compile run, eg "fur.sg2.txt -> fur.shader compiled"
func FileStatus(src, dst, status string) string {
	if dst == "" {
		return fmt.Sprintf("%s %s", StyleNoun.Render(src), statusStyle(status).Render(status))
	}
	return fmt.Sprintf("%s %s %s %s",
		StyleNoun.Render(src), StyleDim.Render("->"), dst, statusStyle(status).Render(status))
}

// Summary formats the totals of a compile run
func Summary(compiled, failed int) string {
	parts := []string{fmt.Sprintf("%d compiled", compiled)}
	if failed > 0 {
		parts = append(parts, statusStyle(StatusFailed).Render(fmt.Sprintf("%d failed", failed)))
	}
	return StyleSummary.Render(strings.Join(parts, ", "))
}

// WriteDiagnostics prints ds one per line in file:line form
func WriteDiagnostics(w io.Writer, ds shadertpl.Diagnostics) error {
	for _, d := range ds {
		status := StatusWarning
		if d.Severity == shadertpl.SeverityError {
			status = StatusFailed
		}
		if _, err := fmt.Fprintf(w, "  %s %s\n", statusStyle(status).Render(d.Severity.String()), d.Error()); err != nil {
			return err
		}
	}
	return nil
}
