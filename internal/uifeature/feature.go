// Package uifeature parses the #FEATURES block of a template: the toggles,
// choices and keyword values shown to the user, and renders them for the
// terminal.
package uifeature

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwtly10/shadertpl"
	"github.com/mattn/go-shellwords"
)

type Kind string

const (
	KindSingle   Kind = "sngl"
	KindMultiple Kind = "mult"
	KindKeyword  Kind = "keyword"
	KindHeader   Kind = "header"
	KindSpace    Kind = "space"
	KindWarning  Kind = "warning"
	KindGroup    Kind = "dd_start"

	groupEnd = "dd_end"
)

var kinds = []Kind{KindSingle, KindMultiple, KindKeyword, KindHeader, KindSpace, KindWarning, KindGroup}

// Option is one choice of a mult feature. An empty keyword means the choice turns nothing on.
type Option struct {
	Label   string
	Keyword string
}

// Feature is a single line of a #FEATURES block.
//
//	sngl     lbl="Fur Shells" kw=FUR_SHELLS needs=FUR tt="Adds shell passes"
//	mult     lbl="Ramp" kw="Off:,Smooth Ramp:RAMP_SMOOTH,Texture:RAMP_TEXTURE" default=Texture
//	keyword  lbl="Render Type" kw=RENDER_TYPE values=Opaque,Transparent default=Opaque
//	header   lbl="Lighting"
//	warning  lbl="Needs a directional light"
//	dd_start lbl="Advanced" ... dd_end
type Feature struct {
	Kind    Kind
	Label   string
	Keyword string
	Tooltip string
	Needs   []string
	Force   bool
	Default string
	Values  []string
	Options []Option

	// Children of a dd_start group
	Children []*Feature

	// Line in the original template
	Line int
}

var _ shadertpl.UIFeature = (*Feature)(nil)

// ForceValue turns forced toggles on and sets default keyword values in cfg.
// Features whose needs are not enabled in cfg are left alone.
func (f *Feature) ForceValue(cfg *shadertpl.Config) {
	if !needsMet(f.Needs, cfg) {
		return
	}

	switch f.Kind {
	case KindSingle:
		if f.Force && f.Keyword != "" {
			cfg.Features.Add(f.Keyword)
		}
	case KindMultiple:
		if f.Force && len(f.Options) > 0 && !f.anyOptionSet(cfg) {
			cfg.Features.Add(f.defaultOption().Keyword)
		}
	case KindKeyword:
		if f.Keyword != "" && f.Default != "" && !cfg.HasKeyword(f.Keyword) {
			cfg.Keywords[f.Keyword] = f.Default
		}
	case KindGroup:
		for _, c := range f.Children {
			c.ForceValue(cfg)
		}
	}
}

func (f *Feature) defaultOption() Option {
	for _, o := range f.Options {
		if o.Label == f.Default {
			return o
		}
	}
	return f.Options[0]
}

func (f *Feature) anyOptionSet(cfg *shadertpl.Config) bool {
	return slices.ContainsFunc(f.Options, func(o Option) bool { return o.Keyword != "" && cfg.Features.Has(o.Keyword) })
}

func needsMet(needs []string, cfg *shadertpl.Config) bool {
	for _, n := range needs {
		if !cfg.Features.Has(n) {
			return false
		}
	}
	return true
}

// Parser implements shadertpl.FeatureParser.
type Parser struct{}

var _ shadertpl.FeatureParser = Parser{}

func (Parser) ParseFeatures(lines []shadertpl.ParsedLine, start int) ([]shadertpl.UIFeature, int, error) {
	var (
		top   []*Feature
		stack []*Feature
	)

	for i := start + 1; i < len(lines); i++ {
		pl := lines[i]
		line := strings.TrimSpace(pl.Line)

		switch {
		case line == "#END":
			if len(stack) > 0 {
				return nil, 0, fmt.Errorf("line %d: unterminated dd_start group '%s'", stack[len(stack)-1].Line, stack[len(stack)-1].Label)
			}
			out := make([]shadertpl.UIFeature, len(top))
			for j, f := range top {
				out[j] = f
			}
			return out, i, nil
		case line == "" || strings.HasPrefix(line, "//"):
			continue
		case line == groupEnd:
			if len(stack) == 0 {
				return nil, 0, fmt.Errorf("line %d: dd_end without dd_start", pl.LineNumber)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		f, err := ParseLine(line)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", pl.LineNumber, err)
		}
		f.Line = pl.LineNumber

		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, f)
		} else {
			top = append(top, f)
		}
		if f.Kind == KindGroup {
			stack = append(stack, f)
		}
	}

	return nil, 0, errors.New("missing #END for #FEATURES block")
}

// ParseLine parses a single feature line
func ParseLine(line string) (*Feature, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty feature line")
	}

	f := &Feature{Kind: Kind(args[0])}
	if !slices.Contains(kinds, f.Kind) {
		return nil, fmt.Errorf("unknown feature kind '%s'", args[0])
	}

	for _, a := range args[1:] {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got '%s'", a)
		}
		switch key {
		case "lbl":
			f.Label = value
		case "kw":
			f.Keyword = value
		case "tt":
			f.Tooltip = value
		case "needs":
			f.Needs = splitList(value)
		case "force":
			f.Force = value == "true" || value == "on"
		case "default":
			f.Default = value
		case "values":
			f.Values = splitList(value)
		default:
			return nil, fmt.Errorf("unknown attribute '%s'", key)
		}
	}

	if f.Kind == KindMultiple {
		for _, choice := range strings.Split(f.Keyword, ",") {
			label, kw, _ := strings.Cut(choice, ":")
			f.Options = append(f.Options, Option{Label: strings.TrimSpace(label), Keyword: strings.TrimSpace(kw)})
		}
		f.Keyword = ""
	}

	switch f.Kind {
	case KindSingle, KindKeyword, KindMultiple:
		if f.Kind != KindMultiple && f.Keyword == "" {
			return nil, fmt.Errorf("%s feature '%s' needs a kw attribute", f.Kind, f.Label)
		}
		if f.Kind == KindMultiple && len(f.Options) < 2 {
			return nil, fmt.Errorf("mult feature '%s' needs at least two choices", f.Label)
		}
	}

	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
