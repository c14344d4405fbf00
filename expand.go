package shadertpl

import (
	"errors"
	"strings"
)

const moduleMarker = "[[MODULE:"

// moduleCategory names the wildcard-able module sections
type moduleCategory int

const (
	catInput moduleCategory = iota
	catFunctions
	catVariables
	catVariablesOutsideCBuffer
)

// moduleRef is a parsed [[MODULE:...]] tag
type moduleRef struct {
	category string
	module   string
	key      string
	args     []string
}

// Expand runs the module expansion pass.
//
// It consumes the #MODULES declaration, loading every listed module from reg,
// and replaces every [[MODULE:...]] marker line with the lines of the requested
// module section. Spliced lines keep the line number of the marker that produced
// them and get the marker's indentation, except for generic implementation
// directives which must stay at column 0.
//
// References to undeclared modules are reported as errors and dropped, the rest
// of the document is still expanded so that every problem is reported at once.
func Expand(lines []ParsedLine, reg ModuleRegistry) ([]ParsedLine, Diagnostics) {
	var diags Diagnostics

	var (
		modules []*Module
		byName  = make(map[string]*Module)
		used    = map[moduleCategory]map[*Module]bool{
			catInput:                   {},
			catFunctions:               {},
			catVariables:               {},
			catVariablesOutsideCBuffer: {},
		}
	)

	out := make([]ParsedLine, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		pl := lines[i]

		if directiveIs(pl.Line, "#MODULES") {
			start := pl
			closed := false
			for i++; i < len(lines); i++ {
				name := strings.TrimSpace(lines[i].Line)
				if name == "#END" {
					closed = true
					break
				}
				if name == "" || strings.HasPrefix(name, "//") || strings.HasPrefix(name, "#") {
					continue
				}
				if _, dup := byName[name]; dup {
					diags = append(diags, warningAt(lines[i], "module '%s' is declared twice", name))
					continue
				}
				if reg == nil {
					diags = append(diags, errorAt(KindReference, lines[i], "no module registry to load module '%s'", name))
					continue
				}
				m, err := reg.Load(name)
				if err != nil {
					d := errorAt(KindReference, lines[i], "can't load module '%s': %v", name, err)
					d.Cause = err
					diags = append(diags, d)
					continue
				}
				modules = append(modules, m)
				byName[name] = m
			}
			if !closed {
				diags = append(diags, errorAt(KindStructural, start, "missing #END for #MODULES block"))
			}
			continue
		}

		trimmed := strings.TrimLeft(pl.Line, " \t")
		if !strings.HasPrefix(trimmed, moduleMarker) {
			out = append(out, pl)
			continue
		}

		indent := pl.Line[:len(pl.Line)-len(trimmed)]
		ref, err := parseModuleRef(trimmed)
		if err != nil {
			diags = append(diags, errorAt(KindSyntax, pl, "%v", err))
			continue
		}

		var m *Module
		if ref.module != "" {
			m = byName[ref.module]
			if m == nil {
				diags = append(diags, errorAt(KindReference, pl, "can't find module '%s'%s", ref.module, didYouMean(ref.module, moduleNames(modules))))
				continue
			}
		}

		emit := func(src []string) {
			out = appendIndented(out, src, indent, pl.LineNumber)
		}

		wildcard := func(cat moduleCategory, section func(*Module) []string, skip func(*Module) bool) {
			for _, mod := range modules {
				if used[cat][mod] || (skip != nil && skip(mod)) {
					continue
				}
				emit(section(mod))
				used[cat][mod] = true
			}
		}

		// a module's section is emitted at most once per category
		explicit := func(cat moduleCategory, section func(*Module) []string) {
			if used[cat][m] {
				diags = append(diags, warningAt(pl, "module '%s' was already emitted for %s, reference skipped", m.Name, ref.category))
				return
			}
			emit(section(m))
			used[cat][m] = true
		}

		switch {
		case ref.category == "INPUT" && m != nil:
			explicit(catInput, func(m *Module) []string { return m.InputStruct })
		case ref.category == "INPUT":
			wildcard(catInput, func(m *Module) []string { return m.InputStruct }, nil)
		case ref.category == "FUNCTIONS" && m != nil:
			explicit(catFunctions, func(m *Module) []string { return m.Functions })
		case ref.category == "FUNCTIONS":
			wildcard(catFunctions, func(m *Module) []string { return m.Functions }, func(m *Module) bool { return m.ExplicitFunctionsDeclaration })
		case ref.category == "VARIABLES" && m != nil:
			explicit(catVariables, func(m *Module) []string { return m.Variables })
		case ref.category == "VARIABLES":
			wildcard(catVariables, func(m *Module) []string { return m.Variables }, nil)
		case ref.category == "VARIABLES_OUTSIDE_CBUFFER" && m != nil:
			explicit(catVariablesOutsideCBuffer, func(m *Module) []string { return m.VariablesOutsideCBuffer })
		case ref.category == "VARIABLES_OUTSIDE_CBUFFER":
			wildcard(catVariablesOutsideCBuffer, func(m *Module) []string { return m.VariablesOutsideCBuffer }, nil)
		case ref.category == "KEYWORDS":
			for _, mod := range modules {
				emit(mod.Keywords)
			}
		case m == nil:
			diags = append(diags, errorAt(KindSyntax, pl, "module reference '%s' needs a module name", ref.category))
		case ref.category == "FEATURES":
			emit(m.Features)
		case ref.category == "PROPERTIES_NEW":
			emit(m.PropertiesNew)
		case ref.category == "PROPERTIES_BLOCK":
			emit(m.PropertiesBlock)
		case ref.category == "SHADER_FEATURES_BLOCK":
			emit(m.ShaderFeaturesBlock)
		case ref.category == "VERTEX":
			if _, ok := m.vertex[ref.key]; !ok {
				diags = append(diags, warningAt(pl, "module '%s' has no #VERTEX block for key '%s'", m.Name, ref.key))
			}
			emit(m.VertexLines(ref.args, ref.key))
		case ref.category == "FRAGMENT":
			if _, ok := m.fragment[ref.key]; !ok {
				diags = append(diags, warningAt(pl, "module '%s' has no #FRAGMENT block for key '%s'", m.Name, ref.key))
			}
			emit(m.FragmentLines(ref.args, ref.key))
		default:
			block, ok := m.GetArbitraryBlock(ref.category)
			if !ok {
				diags = append(diags, warningAt(pl, "module '%s' has no #%s block", m.Name, ref.category))
				continue
			}
			emit(block)
		}
	}

	for _, m := range modules {
		if m.ExplicitFunctionsDeclaration && !used[catFunctions][m] {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Kind:     KindAdvisory,
				Message:  "module has explicit functions declaration, but isn't used: " + m.Name,
			})
		}
	}

	return out, diags
}

// parseModuleRef parses "[[MODULE:CATEGORY:Module:key(a, b)]]"
func parseModuleRef(marker string) (moduleRef, error) {
	var ref moduleRef

	end := strings.LastIndex(marker, "]]")
	if end < len(moduleMarker) {
		return ref, errors.New("unterminated module reference, missing ']]'")
	}
	tag := marker[len(moduleMarker):end]

	if open := strings.IndexByte(tag, '('); open >= 0 {
		closeIdx := strings.LastIndexByte(tag, ')')
		if closeIdx < open {
			return ref, errors.New("unterminated argument list in module reference")
		}
		for _, a := range strings.Split(tag[open+1:closeIdx], ",") {
			ref.args = append(ref.args, strings.TrimSpace(a))
		}
		tag = tag[:open]
	}

	parts := strings.Split(tag, ":")
	ref.category = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		ref.module = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		ref.key = strings.TrimSpace(parts[2])
	}
	if ref.category == "" {
		return ref, errors.New("empty module reference")
	}
	return ref, nil
}

func appendIndented(out []ParsedLine, src []string, indent string, lineNumber int) []ParsedLine {
	for _, l := range src {
		if strings.HasPrefix(l, "#") && strings.Contains(l, "_IMPL") {
			out = append(out, ParsedLine{Line: l, LineNumber: lineNumber})
			continue
		}
		out = append(out, ParsedLine{Line: indent + l, LineNumber: lineNumber})
	}
	return out
}

func moduleNames(mods []*Module) []string {
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.Name
	}
	return names
}
