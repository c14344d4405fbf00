package lsp

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jwtly10/shadertpl"
	"github.com/sourcegraph/go-lsp"
)

const diagnosticSource = "shadertpl"

// ToLSPDiagnostics converts template diagnostics, which use 1-based line
// numbers, to LSP diagnostics spanning the whole offending line.
// Diagnostics without a line are put on the first line.
func ToLSPDiagnostics(ds shadertpl.Diagnostics, lines []string) []lsp.Diagnostic {
	out := make([]lsp.Diagnostic, 0, len(ds))
	for _, d := range ds {
		line := max(d.Line-1, 0)
		width := 0
		if line < len(lines) {
			width = len(lines[line])
		}

		severity := lsp.DiagnosticSeverity(lsp.Warning)
		if d.Severity == shadertpl.SeverityError {
			severity = lsp.Error
		}

		out = append(out, lsp.Diagnostic{
			Range: lsp.Range{
				Start: lsp.Position{Line: line, Character: 0},
				End:   lsp.Position{Line: line, Character: width},
			},
			Severity: severity,
			Code:     d.Kind.String(),
			Source:   diagnosticSource,
			Message:  d.Message,
		})
	}
	return out
}

// Hover describes the property under pos: either a [[VALUE:...]] marker or
// the property's own declaration line. It returns nil when there is none.
func Hover(doc *shadertpl.Document, lines []string, pos lsp.Position) *lsp.Hover {
	if doc == nil || pos.Line < 0 || pos.Line >= len(lines) {
		return nil
	}

	for _, m := range shadertpl.PropertyMarkers(lines[pos.Line]) {
		if pos.Character < m.Start || pos.Character >= m.End {
			continue
		}
		p := doc.Property(m.Name)
		if p == nil {
			return nil
		}
		return &lsp.Hover{
			Contents: []lsp.MarkedString{lsp.RawMarkedString(describe(p))},
			Range: &lsp.Range{
				Start: lsp.Position{Line: pos.Line, Character: m.Start},
				End:   lsp.Position{Line: pos.Line, Character: m.End},
			},
		}
	}

	for _, p := range doc.Properties {
		if p.Line == pos.Line+1 {
			return &lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(describe(p))}}
		}
	}
	return nil
}

func describe(p *shadertpl.Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` (%s)", p.Name, p.Type, p.Program)
	if p.Label != "" {
		fmt.Fprintf(&b, "\n\n%s", p.Label)
	}

	kinds := make([]string, len(p.Implementations))
	for i, imp := range p.Implementations {
		kinds[i] = imp.Kind()
	}
	fmt.Fprintf(&b, "\n\nImplementations: %s", strings.Join(kinds, ", "))

	if needs := p.NeededFeatures(); len(needs) > 0 {
		fmt.Fprintf(&b, "\n\nNeeds: %s", strings.Join(needs, ", "))
	}
	if passes := p.Passes(); len(passes) > 0 {
		fmt.Fprintf(&b, "\n\nUsed in passes: %s", strings.Trim(fmt.Sprint(passes), "[]"))
	}
	return b.String()
}

var markerPrefix = regexp.MustCompile(`\[\[(?:VALUE|SAMPLE_VALUE_SHADER_PROPERTY):(\w*)$`)

// Complete lists the properties that can complete a property marker being
// typed at pos, or nil when the cursor is not inside one.
func Complete(doc *shadertpl.Document, lines []string, pos lsp.Position) *lsp.CompletionList {
	if doc == nil || pos.Line < 0 || pos.Line >= len(lines) {
		return nil
	}
	line := lines[pos.Line]
	if pos.Character > len(line) {
		return nil
	}

	m := markerPrefix.FindStringSubmatch(line[:pos.Character])
	if m == nil {
		return nil
	}
	partial := m[1]

	list := &lsp.CompletionList{Items: []lsp.CompletionItem{}}
	for _, p := range doc.Properties {
		if !strings.HasPrefix(p.Name, partial) {
			continue
		}
		list.Items = append(list.Items, lsp.CompletionItem{
			Label:  p.Name,
			Kind:   lsp.CIKProperty,
			Detail: fmt.Sprintf("%s %s", p.Type, p.Program),
		})
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Label < list.Items[j].Label })
	return list
}
