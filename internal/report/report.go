// Package report builds the YAML usage report of a compiled template.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/jwtly10/shadertpl"
	"gopkg.in/yaml.v3"
)

// Compatibility returns the properties each generic implementation collected in a pass.
// *generic.Registry implements it.
type Compatibility interface {
	Compatible(pass int) map[string][]*shadertpl.Property
}

type Report struct {
	Template        string              `yaml:"template"`
	ID              string              `yaml:"id,omitempty"`
	Type            string              `yaml:"type,omitempty"`
	Features        []string            `yaml:"features"`
	Flags           []string            `yaml:"flags,omitempty"`
	ExtraFlags      map[string][]string `yaml:"extra_flags,omitempty"`
	Properties      []Property          `yaml:"properties,omitempty"`
	Passes          []Pass              `yaml:"passes"`
	InjectionPoints []InjectionPoint    `yaml:"injection_points,omitempty"`
	Diagnostics     []Diagnostic        `yaml:"diagnostics,omitempty"`
}

type Property struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Header string   `yaml:"header,omitempty"`
	Needs  []string `yaml:"needs,omitempty"`
	Passes []int    `yaml:"passes,flow"`
}

type Pass struct {
	Index      int                 `yaml:"index"`
	Features   []string            `yaml:"features,flow"`
	Properties []string            `yaml:"properties"`
	Generic    map[string][]string `yaml:"generic,omitempty"`
	// Surface is set when the pass declares a #pragma surface shader
	Surface        bool     `yaml:"surface,omitempty"`
	InputVariables []string `yaml:"input_variables,omitempty"`
}

type InjectionPoint struct {
	Name    string `yaml:"name"`
	Program string `yaml:"program"`
	Line    int    `yaml:"line"`
}

type Diagnostic struct {
	Severity string `yaml:"severity"`
	Kind     string `yaml:"kind"`
	Line     int    `yaml:"line,omitempty"`
	Message  string `yaml:"message"`
}

// New builds the report of res, a compilation of doc. compat may be nil.
func New(doc *shadertpl.Document, res *shadertpl.Result, compat Compatibility) *Report {
	r := &Report{
		Template:   doc.Metadata.Source,
		ID:         doc.ID,
		Type:       doc.Type,
		Features:   res.Features.Sorted(),
		Flags:      res.Keywords.Flags,
		ExtraFlags: nonEmpty(res.Keywords.ExtraFlags),
	}

	header := ""
	for i, p := range res.Properties {
		if h, ok := res.Headers[i]; ok {
			header = h.Label
		}
		r.Properties = append(r.Properties, Property{
			Name:   p.Name,
			Type:   p.Type,
			Header: header,
			Needs:  p.NeededFeatures(),
			Passes: orEmpty(res.Usage.PassesOf(p)),
		})
	}

	diags := slices.Clone(res.Diagnostics)
	for pass := 0; pass < res.Usage.Passes(); pass++ {
		rp := Pass{Index: pass, Properties: []string{}}
		if pass < len(res.PassFeatures) {
			rp.Features = res.PassFeatures[pass].Sorted()
		}
		for _, p := range res.Usage.Properties(pass) {
			rp.Properties = append(rp.Properties, p.Name)
		}
		rp.Surface = shadertpl.PassIsSurfaceShader(res.Lines, pass)
		vars, inputDiags := shadertpl.InputBlock(res.Lines, pass)
		if len(vars) > 0 {
			rp.InputVariables = vars
		}
		diags = append(diags, inputDiags...)

		if compat != nil {
			for impl, props := range compat.Compatible(pass) {
				if rp.Generic == nil {
					rp.Generic = make(map[string][]string)
				}
				for _, p := range props {
					rp.Generic[impl] = append(rp.Generic[impl], p.Name)
				}
			}
		}
		r.Passes = append(r.Passes, rp)
	}

	for _, ip := range res.InjectionPoints {
		r.InjectionPoints = append(r.InjectionPoints, InjectionPoint{Name: ip.Name, Program: ip.Program.String(), Line: ip.Line})
	}

	for _, d := range diags {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Severity: d.Severity.String(),
			Kind:     d.Kind.String(),
			Line:     d.Line,
			Message:  d.Message,
		})
	}

	return r
}

// Write encodes r as a YAML document
func (r *Report) Write(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encoding report for %s: %w", r.Template, err)
	}
	return encoder.Close()
}

// Read decodes a report written by Write
func Read(rd io.Reader) (*Report, error) {
	var r Report
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}

// PassesUsing returns the passes the property called name is used in
func (r *Report) PassesUsing(name string) []int {
	for _, p := range r.Properties {
		if p.Name == name {
			return p.Passes
		}
	}
	return nil
}

func nonEmpty(m map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for k, v := range m {
		if len(v) > 0 {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func orEmpty(passes []int) []int {
	if passes == nil {
		return []int{}
	}
	return passes
}
