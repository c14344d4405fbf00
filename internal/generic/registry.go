// Package generic tracks the generic implementations enabled with
// #ENABLE_IMPL directives and the properties each of them applies to.
package generic

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/jwtly10/shadertpl"
	"github.com/mattn/go-shellwords"
)

// Impl is an enabled generic implementation.
//
//	#ENABLE_IMPL <name> [program=<vertex|fragment|lighting>] [types=float,color]
//
// Without a program option the implementation is bound to the program the
// directive appears in. Without types it accepts any property type.
type Impl struct {
	Name    string
	Program shadertpl.Program
	Types   []string
	Pass    int
}

func (i Impl) accepts(program shadertpl.Program, p *shadertpl.Property) bool {
	if i.Program != shadertpl.ProgramUndefined && i.Program != program {
		return false
	}
	return len(i.Types) == 0 || slices.Contains(i.Types, p.Type)
}

// Registry implements shadertpl.GenericRegistry. It holds the state of a single
// usage tracking run and must not be shared between compilations running at once.
type Registry struct {
	enabled []Impl
	compat  map[int]map[string][]*shadertpl.Property
	errs    []error
	done    bool
}

var _ shadertpl.GenericRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{compat: make(map[int]map[string][]*shadertpl.Property)}
}

func (r *Registry) Begin() {
	r.enabled = r.enabled[:0]
	r.compat = make(map[int]map[string][]*shadertpl.Property)
	r.errs = nil
	r.done = false
}

func (r *Registry) Enable(directive string, pass int, program shadertpl.Program) {
	impl, err := parseDirective(directive)
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	if impl.Program == shadertpl.ProgramUndefined {
		impl.Program = program
	}
	impl.Pass = pass

	r.enabled = slices.DeleteFunc(r.enabled, func(i Impl) bool { return i.Name == impl.Name })
	r.enabled = append(r.enabled, impl)
}

func (r *Registry) Disable(directive string, pass int, program shadertpl.Program) {
	impl, err := parseDirective(directive)
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	before := len(r.enabled)
	r.enabled = slices.DeleteFunc(r.enabled, func(i Impl) bool { return i.Name == impl.Name })
	if len(r.enabled) == before {
		slog.Debug("disabling generic implementation that isn't enabled", "name", impl.Name, "pass", pass, "program", program.String())
	}
}

func (r *Registry) DisableAll() {
	r.enabled = r.enabled[:0]
}

func (r *Registry) AddCompatible(pass int, program shadertpl.Program, p *shadertpl.Property) {
	for _, impl := range r.enabled {
		if !impl.accepts(program, p) {
			continue
		}
		byImpl := r.compat[pass]
		if byImpl == nil {
			byImpl = make(map[string][]*shadertpl.Property)
			r.compat[pass] = byImpl
		}
		if !slices.Contains(byImpl[impl.Name], p) {
			byImpl[impl.Name] = append(byImpl[impl.Name], p)
		}
	}
}

func (r *Registry) Complete() {
	r.done = true
	slog.Debug("generic implementations resolved", "passes", len(r.compat), "errors", len(r.errs))
}

// Compatible returns the properties recorded under each implementation name in pass
func (r *Registry) Compatible(pass int) map[string][]*shadertpl.Property {
	return r.compat[pass]
}

// Enabled returns the implementations still enabled at the end of the run
func (r *Registry) Enabled() []Impl {
	return slices.Clone(r.enabled)
}

// Names lists every implementation that collected a property, in any pass
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	for _, byImpl := range r.compat {
		for name := range byImpl {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Err returns the directive parse errors of the last run
func (r *Registry) Err() error {
	return errors.Join(r.errs...)
}

func parseDirective(directive string) (Impl, error) {
	args, err := shellwords.Parse(directive)
	if err != nil {
		return Impl{}, fmt.Errorf("parsing %q: %w", directive, err)
	}
	if len(args) < 2 {
		return Impl{}, fmt.Errorf("%q: missing implementation name", directive)
	}

	impl := Impl{Name: args[1]}
	for _, opt := range args[2:] {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return Impl{}, fmt.Errorf("%q: expected key=value, got %q", directive, opt)
		}
		switch key {
		case "program":
			prog, ok := shadertpl.ParseProgram(value)
			if !ok {
				return Impl{}, fmt.Errorf("%q: unknown program %q", directive, value)
			}
			impl.Program = prog
		case "types":
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					impl.Types = append(impl.Types, t)
				}
			}
		default:
			return Impl{}, fmt.Errorf("%q: unknown option %q", directive, key)
		}
	}
	return impl, nil
}
