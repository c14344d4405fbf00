package shadertpl

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Property is a declared, tunable value of a template, with one or more
// implementations that describe how its value is produced in generated code.
type Property struct {
	Name    string
	Type    string
	Program Program
	Label   string

	Implementations []Implementation

	// Line is the declaration line in the original document
	Line int

	needs  []string
	passes []int
}

var propertyTypes = []string{"float", "float2", "float3", "float4", "color", "color_rgba", "int"}

// NeededFeatures returns the features that must be enabled whenever the property is used
func (p *Property) NeededFeatures() []string {
	return p.needs
}

// Passes returns the passes the property is referenced in, from the static scan of the template
func (p *Property) Passes() []int {
	return p.passes
}

// UsedInPass reports whether the static scan found the property in pass
func (p *Property) UsedInPass(pass int) bool {
	_, found := slices.BinarySearch(p.passes, pass)
	return found
}

func (p *Property) addPass(pass int) {
	i, found := slices.BinarySearch(p.passes, pass)
	if !found {
		p.passes = slices.Insert(p.passes, i, pass)
	}
}

// References returns the properties this one delegates to after linking
func (p *Property) References() []*Property {
	var refs []*Property
	for _, imp := range p.Implementations {
		switch imp := imp.(type) {
		case *ImpReference:
			if imp.Linked != nil {
				refs = append(refs, imp.Linked)
			}
		case *ImpTexture:
			if imp.UVSource == UVOtherProperty && imp.Linked != nil {
				refs = append(refs, imp.Linked)
			}
		case *ImpConstant, *ImpMaterial, *ImpGeneric:
		}
	}
	return refs
}

// Implementation is one way of producing a property value. The set of
// implementations is closed: *ImpConstant, *ImpMaterial, *ImpTexture,
// *ImpReference and *ImpGeneric.
type Implementation interface {
	Kind() string
	implementation()
}

// ImpConstant is a literal value written directly into the code.
type ImpConstant struct {
	Value string
}

// ImpMaterial is a material field exposed to the user.
type ImpMaterial struct {
	// One of material_float, material_color, material_vector, material_range
	MaterialKind string
	Variable     string
	Default      string
	Label        string
}

type UVSource string

const (
	UVTexcoord0     UVSource = "texcoord0"
	UVTexcoord1     UVSource = "texcoord1"
	UVTexcoord2     UVSource = "texcoord2"
	UVTexcoord3     UVSource = "texcoord3"
	UVWorldPosition UVSource = "world_position"
	UVScreenSpace   UVSource = "screen_space"
	UVOtherProperty UVSource = "other_property"
)

var uvSources = []UVSource{UVTexcoord0, UVTexcoord1, UVTexcoord2, UVTexcoord3, UVWorldPosition, UVScreenSpace, UVOtherProperty}

// ImpTexture samples a texture. When UVSource is UVOtherProperty the
// coordinates come from the property named UVReference.
type ImpTexture struct {
	Variable    string
	Default     string
	Channels    string
	UVSource    UVSource
	UVChannels  string
	UVReference string

	Linked *Property
}

// ImpReference delegates to another property of the same template.
type ImpReference struct {
	Reference string
	Channels  string

	Linked *Property
}

// ImpGeneric is produced by a generic implementation shared across templates.
type ImpGeneric struct {
	Source string
}

func (*ImpConstant) Kind() string { return "constant" }
func (i *ImpMaterial) Kind() string { return i.MaterialKind }
func (*ImpTexture) Kind() string { return "texture" }
func (*ImpReference) Kind() string { return "shader_property_ref" }
func (*ImpGeneric) Kind() string { return "generic" }

func (*ImpConstant) implementation() {}
func (*ImpMaterial) implementation() {}
func (*ImpTexture) implementation() {}
func (*ImpReference) implementation() {}
func (*ImpGeneric) implementation() {}

// ParseProperty parses a single property declaration:
//
//	float4	Albedo	fragment	imp(texture, variable = "_MainTex", channels = rgba), imp(constant, value = 1)
func ParseProperty(line string) (*Property, error) {
	fields := splitFields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("expected '<type> <name> <program> <implementations>', got %d field(s)", len(fields))
	}

	p := &Property{Type: fields[0], Name: fields[1]}
	if !slices.Contains(propertyTypes, p.Type) {
		return nil, fmt.Errorf("unknown property type '%s'", p.Type)
	}
	if !isIdentifier(p.Name) {
		return nil, fmt.Errorf("invalid property name '%s'", p.Name)
	}
	prog, ok := ParseProgram(fields[2])
	if !ok {
		return nil, fmt.Errorf("unknown program '%s' for property '%s'", fields[2], p.Name)
	}
	p.Program = prog

	items, err := splitTopLevel(strings.Join(fields[3:], " "), ',')
	if err != nil {
		return nil, fmt.Errorf("property '%s': %w", p.Name, err)
	}
	for _, item := range items {
		imp, err := p.parseImplementation(item)
		if err != nil {
			return nil, fmt.Errorf("property '%s': %w", p.Name, err)
		}
		p.Implementations = append(p.Implementations, imp)
	}
	if len(p.Implementations) == 0 {
		return nil, fmt.Errorf("property '%s' has no implementation", p.Name)
	}

	return p, nil
}

func (p *Property) parseImplementation(item string) (Implementation, error) {
	item = strings.TrimSpace(item)
	if !strings.HasPrefix(item, "imp(") || !strings.HasSuffix(item, ")") {
		return nil, fmt.Errorf("expected imp(...), got '%s'", item)
	}

	args, err := splitTopLevel(item[len("imp("):len(item)-1], ',')
	if err != nil {
		return nil, err
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, errors.New("imp() without a kind")
	}
	kind := strings.TrimSpace(args[0])

	kv := make(map[string]string, len(args)-1)
	for _, a := range args[1:] {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("expected key = value in imp(%s), got '%s'", kind, strings.TrimSpace(a))
		}
		kv[strings.TrimSpace(k)] = unquote(strings.TrimSpace(v))
	}

	if l := kv["label"]; l != "" && p.Label == "" {
		p.Label = l
	}
	if n := kv["needs"]; n != "" {
		for _, f := range strings.Split(n, "|") {
			if f = strings.TrimSpace(f); f != "" && !slices.Contains(p.needs, f) {
				p.needs = append(p.needs, f)
			}
		}
	}

	switch kind {
	case "constant":
		return &ImpConstant{Value: kv["value"]}, nil
	case "material_float", "material_color", "material_vector", "material_range":
		return &ImpMaterial{MaterialKind: kind, Variable: kv["variable"], Default: kv["default"], Label: kv["label"]}, nil
	case "texture":
		t := &ImpTexture{
			Variable:    kv["variable"],
			Default:     kv["default"],
			Channels:    kv["channels"],
			UVSource:    UVTexcoord0,
			UVChannels:  kv["uv_channels"],
			UVReference: kv["uv_reference"],
		}
		if s, ok := kv["uv_source"]; ok {
			t.UVSource = UVSource(s)
			if !slices.Contains(uvSources, t.UVSource) {
				return nil, fmt.Errorf("unknown uv_source '%s'", s)
			}
		}
		if t.UVSource == UVOtherProperty && t.UVReference == "" {
			return nil, errors.New("uv_source other_property needs a uv_reference")
		}
		return t, nil
	case "shader_property_ref":
		ref := &ImpReference{Reference: kv["reference"], Channels: kv["channels"]}
		if ref.Reference == "" {
			return nil, errors.New("shader_property_ref needs a reference")
		}
		return ref, nil
	case "generic":
		return &ImpGeneric{Source: kv["source"]}, nil
	default:
		return nil, fmt.Errorf("unknown implementation kind '%s'", kind)
	}
}

// ParseHeader parses a header line: header<TAB>Label[<TAB>"tooltip"]
func ParseHeader(line string) (Header, error) {
	fields := splitFields(line)
	if len(fields) < 2 || fields[0] != "header" {
		return Header{}, fmt.Errorf("expected 'header <label>', got '%s'", strings.TrimSpace(line))
	}
	h := Header{Label: unquote(fields[1])}
	if len(fields) > 2 {
		h.Tooltip = unquote(strings.Join(fields[2:], " "))
	}
	return h, nil
}

// ParsePropertiesBlock parses the properties declared from the block opener at
// lines[start], usually #PROPERTIES_NEW, up to its #END. It returns the
// properties in declaration order, the headers keyed by the index of the
// property they precede, and the index of the line following #END.
//
// Properties are returned unlinked, see LinkProperties.
func ParsePropertiesBlock(lines []ParsedLine, start int) ([]*Property, map[int]Header, int, Diagnostics) {
	var (
		diags   Diagnostics
		props   []*Property
		headers = make(map[int]Header)
	)

	i := start + 1
	for ; i < len(lines); i++ {
		pl := lines[i]
		trimmed := strings.TrimSpace(pl.Line)

		if trimmed == "#END" {
			return props, headers, i + 1, diags
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "header") && (len(trimmed) == len("header") || trimmed[len("header")] == '\t' || trimmed[len("header")] == ' ') {
			h, err := ParseHeader(trimmed)
			if err != nil {
				diags = append(diags, errorAt(KindSyntax, pl, "%v", err))
				continue
			}
			// last header before a property wins
			headers[len(props)] = h
			continue
		}

		p, err := ParseProperty(pl.Line)
		if err != nil {
			d := errorAt(KindSyntax, pl, "parsing error in #PROPERTIES_NEW block: %v", err)
			d.Cause = err
			diags = append(diags, d)
			continue
		}
		p.Line = pl.LineNumber
		props = append(props, p)
	}

	opener := "#PROPERTIES_NEW"
	if f := strings.Fields(lines[start].Line); len(f) > 0 {
		opener = f[0]
	}
	diags = append(diags, errorAt(KindStructural, lines[start], "missing #END for %s block", opener))
	return props, headers, i, diags
}

// splitFields splits on tabs, dropping empty fields
func splitFields(line string) []string {
	var out []string
	for _, f := range strings.Split(line, "\t") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// splitTopLevel splits s on sep, ignoring separators nested in parentheses or quotes
func splitTopLevel(s string, sep byte) ([]string, error) {
	var (
		out   []string
		depth int
		quote byte
		last  int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')' at column %d", i+1)
			}
		case c == sep && depth == 0:
			out = append(out, strings.TrimSpace(s[last:i]))
			last = i + 1
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quoted value")
	}
	if depth != 0 {
		return nil, errors.New("unbalanced '('")
	}
	if rest := strings.TrimSpace(s[last:]); rest != "" || len(out) > 0 {
		out = append(out, rest)
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"') {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
