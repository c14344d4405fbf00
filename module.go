package shadertpl

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const explicitFunctionsFlag = "#EXPLICIT_FUNCTIONS_DECLARATION"

// Module is a named bundle of reusable template fragments, inlined into
// templates through [[MODULE:...]] markup. It is immutable once parsed.
type Module struct {
	Name string

	// When set, the module functions are only emitted by an explicit [[MODULE:FUNCTIONS:Name]]
	ExplicitFunctionsDeclaration bool

	Features                []string
	PropertiesNew           []string
	PropertiesBlock         []string
	ShaderFeaturesBlock     []string
	Keywords                []string
	InputStruct             []string
	Variables               []string
	VariablesOutsideCBuffer []string
	Functions               []string

	vertex    map[string]*stageBlock
	fragment  map[string]*stageBlock
	arbitrary map[string][]string
}

// stageBlock is a #VERTEX or #FRAGMENT block with named parameters that get
// replaced by the arguments of the reference markup.
type stageBlock struct {
	params []string
	lines  []string
	re     *regexp.Regexp
}

// ModuleRegistry loads modules by name.
type ModuleRegistry interface {
	// Load returns the named module, or an error wrapping ErrModuleNotFound
	Load(name string) (*Module, error)
}

// MapRegistry is an in-memory ModuleRegistry.
type MapRegistry map[string]*Module

func (r MapRegistry) Load(name string) (*Module, error) {
	if m, ok := r[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
}

// VertexLines returns the vertex block for key with its parameters replaced by args
func (m *Module) VertexLines(args []string, key string) []string {
	return m.vertex[key].expand(args)
}

// FragmentLines returns the fragment block for key with its parameters replaced by args
func (m *Module) FragmentLines(args []string, key string) []string {
	return m.fragment[key].expand(args)
}

// GetArbitraryBlock returns a block that is not one of the known categories
func (m *Module) GetArbitraryBlock(name string) ([]string, bool) {
	lines, ok := m.arbitrary[name]
	return lines, ok
}

func (sb *stageBlock) expand(args []string) []string {
	if sb == nil {
		return nil
	}
	if sb.re == nil || len(args) == 0 {
		return sb.lines
	}

	replace := make(map[string]string, len(sb.params))
	for i, p := range sb.params {
		if i < len(args) && args[i] != "" {
			replace[p] = args[i]
		}
	}

	out := make([]string, len(sb.lines))
	for i, l := range sb.lines {
		out[i] = sb.re.ReplaceAllStringFunc(l, func(s string) string {
			if r, ok := replace[s]; ok {
				return r
			}
			return s
		})
	}
	return out
}

// ParseModule reads a module file.
//
// A module file is a list of #NAME ... #END blocks. #VERTEX and #FRAGMENT
// blocks can carry a key and a parameter list: "#VERTEX:outline(float4 pos)".
// Unknown block names are kept as arbitrary blocks. Anything outside a block
// is ignored, except for the #EXPLICIT_FUNCTIONS_DECLARATION flag.
func ParseModule(name string, r io.Reader) (*Module, error) {
	m := &Module{
		Name:      name,
		vertex:    make(map[string]*stageBlock),
		fragment:  make(map[string]*stageBlock),
		arbitrary: make(map[string][]string),
	}

	var (
		inBlock   bool
		blockName string
		blockKey  string
		params    []string
		lines     []string
		startLine int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if !inBlock {
			switch {
			case trimmed == explicitFunctionsFlag:
				m.ExplicitFunctionsDeclaration = true
			case strings.HasPrefix(trimmed, "#") && trimmed != "#END":
				var err error
				blockName, blockKey, params, err = parseBlockHeader(trimmed)
				if err != nil {
					return nil, fmt.Errorf("module %s line %d: %w", name, lineNo, err)
				}
				inBlock = true
				lines = nil
				startLine = lineNo
			}
			continue
		}

		if trimmed == "#END" {
			if err := m.setBlock(blockName, blockKey, params, lines); err != nil {
				return nil, fmt.Errorf("module %s line %d: %w", name, startLine, err)
			}
			inBlock = false
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading module %s: %w", name, err)
	}
	if inBlock {
		return nil, fmt.Errorf("module %s line %d: missing #END for #%s", name, startLine, blockName)
	}

	return m, nil
}

// parseBlockHeader splits "#VERTEX:key(float4 a, float3 b)" into its name, key and parameter names
func parseBlockHeader(header string) (name, key string, params []string, err error) {
	header = strings.TrimPrefix(header, "#")

	if open := strings.IndexByte(header, '('); open >= 0 {
		end := strings.LastIndexByte(header, ')')
		if end < open {
			return "", "", nil, fmt.Errorf("unterminated parameter list in #%s", header)
		}
		for _, p := range strings.Split(header[open+1:end], ",") {
			fields := strings.Fields(p)
			if len(fields) == 0 {
				continue
			}
			params = append(params, fields[len(fields)-1])
		}
		header = header[:open]
	}

	name, key, _ = strings.Cut(strings.TrimSpace(header), ":")
	return name, key, params, nil
}

func (m *Module) setBlock(name, key string, params, lines []string) error {
	switch name {
	case "FEATURES":
		m.Features = lines
	case "PROPERTIES_NEW":
		m.PropertiesNew = lines
	case "PROPERTIES_BLOCK":
		m.PropertiesBlock = lines
	case "SHADER_FEATURES_BLOCK":
		m.ShaderFeaturesBlock = lines
	case "KEYWORDS":
		m.Keywords = lines
	case "INPUT":
		m.InputStruct = lines
	case "VARIABLES":
		m.Variables = lines
	case "VARIABLES_OUTSIDE_CBUFFER":
		m.VariablesOutsideCBuffer = lines
	case "FUNCTIONS":
		m.Functions = lines
	case "VERTEX":
		if _, dup := m.vertex[key]; dup {
			return fmt.Errorf("duplicate #VERTEX block for key %q", key)
		}
		m.vertex[key] = newStageBlock(params, lines)
	case "FRAGMENT":
		if _, dup := m.fragment[key]; dup {
			return fmt.Errorf("duplicate #FRAGMENT block for key %q", key)
		}
		m.fragment[key] = newStageBlock(params, lines)
	default:
		m.arbitrary[name] = lines
	}
	return nil
}

func newStageBlock(params, lines []string) *stageBlock {
	sb := &stageBlock{params: params, lines: lines}
	if len(params) > 0 {
		quoted := make([]string, len(params))
		for i, p := range params {
			quoted[i] = regexp.QuoteMeta(p)
		}
		sb.re = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return sb
}
