package shadertpl

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const VERSION = "0.1.0"

type WriteMode int

const (
	// ModePretty writes the generated source with a header, template-only lines removed
	ModePretty WriteMode = iota
	// ModeShadow writes every kept line at its original line number, for diagnostics mapping
	ModeShadow
)

func (m WriteMode) String() string {
	switch m {
	case ModePretty:
		return "Pretty"
	case ModeShadow:
		return "Shadow"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type WriterMetadata struct {
	Version   string
	Source    string
	Generated string
}

type Writer struct {
	mode WriteMode
}

func NewWriter(mode WriteMode) *Writer {
	return &Writer{mode: mode}
}

// templateDirectives are the lines that only mean something to the template engine
var templateDirectives = []string{
	"#SG2", "#ID=", "#INFO=", "#WARNING=", "#CONFIG=", "#TEMPLATE_KEYWORDS=",
	"#PASS", "#VERTEX", "#FRAGMENT", "#LIGHTING",
	"#ENABLE_IMPL", "#DISABLE_IMPL", "#DISABLE_IMPL_ALL",
}

// templateBlocks are dropped from pretty output up to and including their #END
var templateBlocks = []string{"#KEYWORDS", "#PROPERTIES_NEW", "#INPUT_VARIABLES", "#FEATURES"}

func (w *Writer) WriteHeader(out io.Writer, md WriterMetadata) error {
	header := fmt.Sprintf("// Code generated by shadertpl v%s. DO NOT EDIT.\n// Source: %s\n// Generated: %s\n\n",
		md.Version, md.Source, md.Generated)
	if _, err := io.WriteString(out, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// WriteContent writes compiled lines in the writer mode
func (w *Writer) WriteContent(lines []ParsedLine, out io.Writer) error {
	switch w.mode {
	case ModeShadow:
		return w.writeShadow(lines, out)
	default:
		return w.writePretty(lines, out)
	}
}

func (w *Writer) writePretty(lines []ParsedLine, out io.Writer) error {
	inBlock := false
	for _, pl := range lines {
		trimmed := strings.TrimSpace(pl.Line)

		if inBlock {
			inBlock = trimmed != "#END"
			continue
		}
		if isTemplateBlock(trimmed) {
			inBlock = true
			continue
		}
		if isTemplateDirective(trimmed) {
			continue
		}

		if _, err := fmt.Fprintln(out, pl.Line); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	return nil
}

// writeShadow places every line at its original line number. Module lines
// spliced at the same number are folded into a trailing comment count.
func (w *Writer) writeShadow(lines []ParsedLine, out io.Writer) error {
	maxLine := 0
	for _, pl := range lines {
		maxLine = max(maxLine, pl.LineNumber)
	}

	slots := make([]string, maxLine)
	filled := make([]bool, maxLine)
	extra := make([]int, maxLine)
	for _, pl := range lines {
		if pl.LineNumber <= 0 {
			continue
		}
		idx := pl.LineNumber - 1 // lines are 1-indexed
		if filled[idx] {
			extra[idx]++
			continue
		}
		slots[idx], filled[idx] = pl.Line, true
	}

	slog.Debug("writing shadow file", "lines", len(lines), "last_line", maxLine)

	for i, line := range slots {
		if extra[i] > 0 {
			line = fmt.Sprintf("%s // +%d spliced", line, extra[i])
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	return nil
}

func isTemplateDirective(trimmed string) bool {
	if len(trimmed) == 0 || trimmed[0] != '#' {
		return false
	}
	for _, d := range templateDirectives {
		if strings.HasSuffix(d, "=") {
			if strings.HasPrefix(trimmed, d) {
				return true
			}
			continue
		}
		if directiveIs(trimmed, d) {
			return true
		}
	}
	return false
}

func isTemplateBlock(trimmed string) bool {
	for _, b := range templateBlocks {
		if directiveIs(trimmed, b) {
			return true
		}
	}
	return false
}
