package shadertpl

import (
	"slices"
	"strings"
)

const injectionMarker = "INJECTION_POINT:"

// GenericRegistry receives the generic implementation directives found while
// tracking usage, to work out which properties each implementation applies to.
type GenericRegistry interface {
	Begin()
	Enable(directive string, pass int, program Program)
	Disable(directive string, pass int, program Program)
	DisableAll()
	AddCompatible(pass int, program Program, p *Property)
	Complete()
}

// InjectionSource returns the properties injected code uses at an injection point.
type InjectionSource interface {
	PropertiesFor(point string) []*Property
}

type UsageOptions struct {
	Generic    GenericRegistry
	Injections InjectionSource
}

// Usage is the list of properties used in each pass of one compilation.
type Usage struct {
	PerPass [][]*Property
}

// Passes returns the number of passes found
func (u *Usage) Passes() int {
	return len(u.PerPass)
}

// Properties returns the properties used in pass, in order of first use
func (u *Usage) Properties(pass int) []*Property {
	if pass < 0 || pass >= len(u.PerPass) {
		return nil
	}
	return u.PerPass[pass]
}

// Used reports whether the property called name is used in pass
func (u *Usage) Used(pass int, name string) bool {
	return slices.ContainsFunc(u.Properties(pass), func(p *Property) bool { return p.Name == name })
}

// PassesOf returns every pass p is used in
func (u *Usage) PassesOf(p *Property) []int {
	var passes []int
	for i, props := range u.PerPass {
		if slices.Contains(props, p) {
			passes = append(passes, i)
		}
	}
	return passes
}

func (u *Usage) add(pass int, p *Property) bool {
	if slices.Contains(u.PerPass[pass], p) {
		return false
	}
	u.PerPass[pass] = append(u.PerPass[pass], p)
	return true
}

// TrackUsage walks filtered lines and records which properties are used in which pass.
//
// Usage markers before the first #PASS are ignored. Generic implementation
// directives are forwarded to opts.Generic and the properties of every injection
// point are added to the pass the point is in. Finally every pass is closed over
// property references, so that a referenced property is used wherever its
// referrer is.
func TrackUsage(lines []ParsedLine, doc *Document, opts UsageOptions) (*Usage, Diagnostics) {
	var diags Diagnostics
	u := &Usage{}

	var names []string
	for _, p := range doc.Properties {
		names = append(names, p.Name)
	}

	if opts.Generic != nil {
		opts.Generic.Begin()
	}

	pass := -1
	program := ProgramUndefined
	for _, pl := range lines {
		line := strings.TrimSpace(pl.Line)

		if len(line) > 0 && line[0] == '#' {
			switch {
			case isPassMarker(line):
				pass++
				program = ProgramUndefined
				u.PerPass = append(u.PerPass, nil)
				continue
			case directiveIs(line, "#VERTEX"):
				program = ProgramVertex
				continue
			case directiveIs(line, "#FRAGMENT"):
				program = ProgramFragment
				continue
			case directiveIs(line, "#LIGHTING"):
				program = ProgramLighting
				continue
			}

			if pass < 0 {
				continue
			}

			switch {
			case directiveIs(line, "#ENABLE_IMPL"):
				if opts.Generic != nil {
					opts.Generic.Enable(line, pass, program)
				}
				continue
			case directiveIs(line, "#DISABLE_IMPL_ALL"):
				if opts.Generic != nil {
					opts.Generic.DisableAll()
				}
				continue
			case directiveIs(line, "#DISABLE_IMPL"):
				if opts.Generic != nil {
					opts.Generic.Disable(line, pass, program)
				}
				continue
			}
		}

		if pass < 0 {
			continue
		}

		eachPropertyMarker(line, func(name, tag string) {
			p := doc.Property(name)
			if p == nil {
				diags = append(diags, errorAt(KindReference, pl, "no match for used property in code: '%s'%s", tag, didYouMean(name, names)))
				return
			}
			u.add(pass, p)
			if opts.Generic != nil {
				opts.Generic.AddCompatible(pass, program, p)
			}
		})

		if opts.Injections != nil {
			if point, ok := injectionPointName(line); ok {
				for _, p := range opts.Injections.PropertiesFor(point) {
					u.add(pass, p)
				}
			}
		}
	}

	if opts.Generic != nil {
		opts.Generic.Complete()
	}

	for pass := range u.PerPass {
		for _, p := range slices.Clone(u.PerPass[pass]) {
			u.addReferences(pass, p)
		}
	}

	return u, diags
}

func (u *Usage) addReferences(pass int, p *Property) {
	for _, ref := range p.References() {
		if u.add(pass, ref) {
			u.addReferences(pass, ref)
		}
	}
}

// injectionPointName returns the name of the [[INJECTION_POINT:name]] marker of line, if any
func injectionPointName(line string) (string, bool) {
	start := strings.Index(line, "[["+injectionMarker)
	if start < 0 {
		return "", false
	}
	rest := line[start+2+len(injectionMarker):]
	end := strings.Index(rest, "]]")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// FindInjectionPoints lists the injection points of lines with the program they are in.
// #LIGHTING code is generated into the fragment program, so it is tagged as fragment.
func FindInjectionPoints(lines []ParsedLine) []InjectionPoint {
	var points []InjectionPoint
	program := ProgramUndefined
	for _, pl := range lines {
		line := strings.TrimSpace(pl.Line)
		if len(line) > 0 && line[0] == '#' {
			switch {
			case isPassMarker(line):
				program = ProgramUndefined
			case directiveIs(line, "#VERTEX"):
				program = ProgramVertex
			case directiveIs(line, "#FRAGMENT"), directiveIs(line, "#LIGHTING"):
				program = ProgramFragment
			}
			continue
		}
		if name, ok := injectionPointName(line); ok {
			points = append(points, InjectionPoint{Name: name, Program: program, Line: pl.LineNumber})
		}
	}
	return points
}
