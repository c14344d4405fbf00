package shadertpl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel errors for the diagnostic categories. Every hard Diagnostic unwraps to one of them.
var (
	// ErrStructural indicates unbalanced condition blocks or missing block terminators.
	ErrStructural = errors.New("structural error")

	// ErrReference indicates a name that could not be resolved (module, property).
	ErrReference = errors.New("reference error")

	// ErrSyntax indicates a line that could not be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrModuleNotFound is returned by a ModuleRegistry for unknown module names.
	ErrModuleNotFound = errors.New("module not found")

	// ErrInvalidTemplate indicates a source that is not a template at all.
	ErrInvalidTemplate = errors.New("invalid template")
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

type Kind int

const (
	KindStructural Kind = iota
	KindReference
	KindSyntax
	KindAdvisory
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindReference:
		return "reference"
	case KindSyntax:
		return "syntax"
	case KindAdvisory:
		return "advisory"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindStructural:
		return ErrStructural
	case KindReference:
		return ErrReference
	case KindSyntax:
		return ErrSyntax
	default:
		return nil
	}
}

// Diagnostic is a single structured problem found while processing a template.
type Diagnostic struct {
	Severity Severity
	Kind     Kind

	// Document is the source the problem was found in, may be empty for passes run on bare lines
	Document string
	// Line is the 1-based line number in the original document, 0 when unknown
	Line int
	// Text is the offending source line, if any
	Text string

	Message string

	// Cause is the underlying error (optional)
	Cause error
}

func (d Diagnostic) Error() string {
	var b strings.Builder

	if d.Document != "" {
		b.WriteString(d.Document)
		b.WriteString(":")
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, "%d:", d.Line)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(d.Message)

	if d.Text != "" {
		b.WriteString("\n\t")
		b.WriteString(strings.TrimSpace(d.Text))
	}

	return b.String()
}

// Unwrap exposes both the category sentinel and the cause, so errors.Is works for either
func (d Diagnostic) Unwrap() []error {
	var errs []error
	if s := d.Kind.sentinel(); s != nil && d.Severity == SeverityError {
		errs = append(errs, s)
	}
	if d.Cause != nil {
		errs = append(errs, d.Cause)
	}
	return errs
}

// Diagnostics is the list of problems reported by a pass.
type Diagnostics []Diagnostic

func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (ds Diagnostics) Errors() Diagnostics {
	return ds.filter(SeverityError)
}

func (ds Diagnostics) Warnings() Diagnostics {
	return ds.filter(SeverityWarning)
}

func (ds Diagnostics) filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Err joins every hard error, or returns nil when there are none
func (ds Diagnostics) Err() error {
	var errs []error
	for _, d := range ds {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}

// WithDocument returns a copy where every diagnostic without a document name gets name
func (ds Diagnostics) WithDocument(name string) Diagnostics {
	if len(ds) == 0 {
		return ds
	}
	out := make(Diagnostics, len(ds))
	for i, d := range ds {
		if d.Document == "" {
			d.Document = name
		}
		out[i] = d
	}
	return out
}

// Log writes every diagnostic to logger, errors at error level and warnings at warn level
func (ds Diagnostics) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, d := range ds {
		args := []any{"kind", d.Kind.String()}
		if d.Document != "" {
			args = append(args, "document", d.Document)
		}
		if d.Line > 0 {
			args = append(args, "line", d.Line)
		}
		if d.Text != "" {
			args = append(args, "text", strings.TrimSpace(d.Text))
		}
		if d.Severity == SeverityError {
			logger.Error(d.Message, args...)
		} else {
			logger.Warn(d.Message, args...)
		}
	}
}

func errorAt(kind Kind, pl ParsedLine, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Line:     pl.LineNumber,
		Text:     pl.Line,
		Message:  fmt.Sprintf(format, args...),
	}
}

func warningAt(pl ParsedLine, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Kind:     KindAdvisory,
		Line:     pl.LineNumber,
		Text:     pl.Line,
		Message:  fmt.Sprintf(format, args...),
	}
}

// DiagnosticsError is returned when a compilation found hard errors.
type DiagnosticsError struct {
	Source      string
	Diagnostics Diagnostics
}

func (e *DiagnosticsError) Error() string {
	errs := e.Diagnostics.Errors()
	switch len(errs) {
	case 0:
		return e.Source + ": compilation failed"
	case 1:
		return fmt.Sprintf("%s: %v", e.Source, errs[0])
	default:
		return fmt.Sprintf("%s: %d errors, first: %v", e.Source, len(errs), errs[0])
	}
}

func (e *DiagnosticsError) Unwrap() []error {
	errs := e.Diagnostics.Errors()
	out := make([]error, len(errs))
	for i, d := range errs {
		out[i] = d
	}
	return out
}

// dedupe drops repeated diagnostics, keeping the first of each
func (ds Diagnostics) dedupe() Diagnostics {
	if len(ds) < 2 {
		return ds
	}
	seen := make(map[string]struct{}, len(ds))
	out := ds[:0:0]
	for _, d := range ds {
		key := d.Severity.String() + d.Error()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
