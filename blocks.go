package shadertpl

import "strings"

// PassIsSurfaceShader reports whether filtered pass declares a surface shader
func PassIsSurfaceShader(lines []ParsedLine, pass int) bool {
	current := -1
	for _, pl := range lines {
		line := strings.TrimSpace(pl.Line)
		if len(line) == 0 || line[0] != '#' {
			continue
		}
		if isPassMarker(line) {
			current++
			if current > pass {
				return false
			}
		}
		if current == pass && strings.Contains(line, "#pragma surface") {
			return true
		}
	}
	return false
}

// InputBlock returns the trimmed lines of the #INPUT_VARIABLES block of filtered pass.
// Condition lines are reported, the lines should have been filtered already.
func InputBlock(lines []ParsedLine, pass int) ([]string, Diagnostics) {
	var diags Diagnostics
	current := -1
	for i := 0; i < len(lines); i++ {
		line := lines[i].Line
		if isPassMarker(line) {
			current++
		}
		if current != pass || !directiveIs(line, "#INPUT_VARIABLES") {
			continue
		}

		vars := []string{}
		for i++; i < len(lines); i++ {
			pl := lines[i]
			trimmed := strings.TrimSpace(pl.Line)
			switch {
			case strings.HasPrefix(pl.Line, "#END"):
				return vars, diags
			case trimmed == "" || strings.HasPrefix(pl.Line, "#"):
			case IsConditionLine(pl.Line):
				diags = append(diags, errorAt(KindStructural, pl, "condition in #INPUT_VARIABLES, lines should be filtered first"))
			default:
				vars = append(vars, trimmed)
			}
		}
		diags = append(diags, errorAt(KindStructural, lines[len(lines)-1], "missing #END for #INPUT_VARIABLES block"))
		return vars, diags
	}
	return nil, diags
}

// VisibleProperties returns the declared properties whose declaration survived
// filtering, in declaration order, with the headers that precede them keyed by
// their position in the returned list. Only the last header at a position is kept.
func VisibleProperties(lines []ParsedLine, doc *Document) ([]*Property, map[int]Header, Diagnostics) {
	var (
		diags   Diagnostics
		visible []*Property
		headers = make(map[int]Header)
	)

	for i := 0; i < len(lines); i++ {
		if !directiveIs(lines[i].Line, "#PROPERTIES_NEW") {
			continue
		}
		for i++; i < len(lines); i++ {
			pl := lines[i]
			trimmed := strings.TrimSpace(pl.Line)
			switch {
			case trimmed == "#END":
				return visible, headers, diags
			case trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#"):
			case strings.HasPrefix(trimmed, "header"):
				if h, err := ParseHeader(trimmed); err == nil {
					headers[len(visible)] = h
				}
			default:
				fields := splitFields(pl.Line)
				if len(fields) < 2 {
					continue
				}
				p := doc.Property(fields[1])
				if p == nil {
					diags = append(diags, errorAt(KindReference, pl, "can't find property '%s' in template", fields[1]))
					continue
				}
				visible = append(visible, p)
			}
		}
	}
	return visible, headers, diags
}
