package shadertpl

import "strings"

// IsConditionLine reports whether line opens, continues or closes a condition block.
//
// A condition line has exactly three slashes after its leading spaces/tabs,
// followed by whitespace, any other character, or the end of the line. It runs once
// per line for every filter call, so it only looks at the first few bytes and
// never allocates.
func IsConditionLine(line string) bool {
	slashes := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t':
			if slashes == 3 {
				return true
			}
			if slashes > 0 {
				return false
			}
		case '/':
			slashes++
			if slashes > 3 {
				return false
			}
		default:
			return slashes == 3
		}
	}
	return slashes == 3
}

type conditionVerb int

const (
	verbClose conditionVerb = iota
	verbIf
	verbElif
	verbElse
	verbIfKeyword
)

// parseCondition splits a condition line into its verb and argument.
//
// "///" closes, "/// IF x", "/// ELIF x", "/// ELSE" and "/// IF_KEYWORD k" are
// explicit, and anything else after the slashes ("///FEATURE" or "/// A && B") is
// shorthand for IF.
func parseCondition(line string) (conditionVerb, string) {
	rest := strings.TrimSpace(line)
	rest = strings.TrimSpace(rest[3:])
	if rest == "" {
		return verbClose, ""
	}

	word, arg := rest, ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		word, arg = rest[:i], strings.TrimSpace(rest[i+1:])
	}
	switch word {
	case "IF":
		return verbIf, arg
	case "ELIF":
		return verbElif, arg
	case "ELSE":
		return verbElse, ""
	case "IF_KEYWORD":
		return verbIfKeyword, arg
	default:
		return verbIf, rest
	}
}

// isOpener reports whether a condition line pushes a new nesting level
func isOpener(v conditionVerb) bool {
	return v == verbIf || v == verbIfKeyword
}

// isPassMarker reports whether line is a #PASS marker. Indentation is allowed,
// spliced module lines keep the indentation of their reference.
func isPassMarker(line string) bool {
	return directiveIs(strings.TrimSpace(line), "#PASS")
}

// directiveIs reports whether trimmed line starts with the # directive name.
// The name must be followed by end of line, whitespace, ':' or '=' so that
// #PASS does not match #PASSTHROUGH.
func directiveIs(line, name string) bool {
	if !strings.HasPrefix(line, name) {
		return false
	}
	if len(line) == len(name) {
		return true
	}
	switch line[len(name)] {
	case ' ', '\t', ':', '=', '(':
		return true
	}
	return false
}
