// Package injection loads code injection files: property declarations grouped
// by the injection point of the template they are inserted at.
//
//	#INJECT Vertex Offset
//	float	WindStrength	vertex	imp(material_float, variable = "_WindStrength")
//	#END
package injection

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jwtly10/shadertpl"
)

const injectDirective = "#INJECT"

// Manager holds the injected properties of every loaded file, by injection point.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	points map[string][]*shadertpl.Property
	order  []string
}

var _ shadertpl.InjectionSource = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{points: make(map[string][]*shadertpl.Property)}
}

// Load reads an injection file and adds its properties. References are linked
// across every block of the file. Nothing is added when the file has errors.
func (m *Manager) Load(r io.Reader, source string) (shadertpl.Diagnostics, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading injection file: %w", err)
	}
	lines := shadertpl.NumberLines(shadertpl.SplitLines(string(content)))

	var (
		diags  shadertpl.Diagnostics
		all    []*shadertpl.Property
		points = make(map[string][]*shadertpl.Property)
		order  []string
	)

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i].Line)
		point, ok := strings.CutPrefix(line, injectDirective)
		if !ok || (point != "" && point[0] != ' ' && point[0] != '\t') {
			i++
			continue
		}
		point = strings.TrimSpace(point)
		if point == "" {
			diags = append(diags, shadertpl.Diagnostic{
				Severity: shadertpl.SeverityError,
				Kind:     shadertpl.KindSyntax,
				Line:     lines[i].LineNumber,
				Text:     lines[i].Line,
				Message:  "#INJECT needs an injection point name",
			})
		}

		props, _, next, d := shadertpl.ParsePropertiesBlock(lines, i)
		diags = append(diags, d...)
		all = append(all, props...)
		if point != "" {
			if _, seen := points[point]; !seen {
				order = append(order, point)
			}
			points[point] = append(points[point], props...)
		}
		i = next
	}

	diags = append(diags, shadertpl.LinkProperties(all)...)
	diags = diags.WithDocument(source)
	if diags.HasErrors() {
		return diags, &shadertpl.DiagnosticsError{Source: source, Diagnostics: diags}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, point := range order {
		if _, seen := m.points[point]; !seen {
			m.order = append(m.order, point)
		}
		m.points[point] = append(m.points[point], points[point]...)
	}

	slog.Debug("Loaded injection file", "source", source, "points", len(order), "properties", len(all))
	return diags, nil
}

// PropertiesFor returns the properties injected at point, with the properties they reference
func (m *Manager) PropertiesFor(point string) []*shadertpl.Property {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.points[point])
}

// Points lists the injection points with injected code, in load order
func (m *Manager) Points() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Unmatched returns the loaded injection points the document has no marker for
func (m *Manager) Unmatched(doc *shadertpl.Document) []string {
	var missing []string
	for _, point := range m.Points() {
		if !slices.ContainsFunc(doc.InjectionPoints, func(ip shadertpl.InjectionPoint) bool { return ip.Name == point }) {
			missing = append(missing, point)
		}
	}
	return missing
}
