package shadertpl

import (
	"errors"
	"fmt"
	"strings"
)

var errNoEvaluator = errors.New("no condition evaluator configured")

// frame is one open condition block.
type frame struct {
	// active is true when the lines of the current branch are kept
	active bool
	// matched is true once any branch of the block was taken
	matched bool
	// opener is the /// IF line that opened the block
	opener ParsedLine
}

// condStack is the nesting state shared by the line filter and the keyword loop.
type condStack struct {
	frames []frame
}

func (s *condStack) reset() {
	s.frames = s.frames[:0]
}

func (s *condStack) depth() int {
	return len(s.frames)
}

// active reports whether lines at the current position are kept
func (s *condStack) active() bool {
	return len(s.frames) == 0 || s.frames[len(s.frames)-1].active
}

func (s *condStack) parentActive() bool {
	return len(s.frames) < 2 || s.frames[len(s.frames)-2].active
}

// process applies condition line pl and returns any problem found with it
func (s *condStack) process(pl ParsedLine, features FeatureSet, eval ConditionEvaluator, kw KeywordLookup) *Diagnostic {
	verb, arg := parseCondition(pl.Line)

	test := func() (bool, *Diagnostic) {
		if eval == nil {
			d := errorAt(KindSyntax, pl, "can't evaluate condition '%s'", arg)
			d.Cause = errNoEvaluator
			return false, &d
		}
		ok, err := eval.Evaluate(arg, features)
		if err != nil {
			d := errorAt(KindSyntax, pl, "invalid condition '%s': %v", arg, err)
			d.Cause = err
			return false, &d
		}
		return ok, nil
	}

	switch verb {
	case verbIf, verbIfKeyword:
		if !s.active() {
			// nothing below an inactive block can be kept, don't evaluate
			s.frames = append(s.frames, frame{active: false, matched: true, opener: pl})
			return nil
		}
		var (
			ok   bool
			diag *Diagnostic
		)
		if verb == verbIfKeyword {
			ok = kw != nil && kw.KeywordSet(arg)
		} else {
			ok, diag = test()
		}
		s.frames = append(s.frames, frame{active: ok, matched: ok, opener: pl})
		return diag

	case verbElif, verbElse:
		if len(s.frames) == 0 {
			d := errorAt(KindStructural, pl, "'%s' without an opening condition", strings.TrimSpace(pl.Line))
			return &d
		}
		top := &s.frames[len(s.frames)-1]
		if top.matched || !s.parentActive() {
			top.active = false
			return nil
		}
		if verb == verbElse {
			top.active, top.matched = true, true
			return nil
		}
		ok, diag := test()
		top.active, top.matched = ok, ok
		return diag

	default:
		if len(s.frames) == 0 {
			d := errorAt(KindStructural, pl, "closing '///' without an opening condition")
			return &d
		}
		s.frames = s.frames[:len(s.frames)-1]
		return nil
	}
}

// unclosed reports the innermost block still open at the end of the stream
func (s *condStack) unclosed() Diagnostic {
	n := len(s.frames)
	plural := ""
	if n > 1 {
		plural = "s"
	}

	opener := s.frames[n-1].opener
	if opener.LineNumber == 0 {
		return Diagnostic{
			Severity: SeverityError,
			Kind:     KindStructural,
			Message:  fmt.Sprintf("missing %d ending '///' tag%s", n, plural),
		}
	}
	return errorAt(KindStructural, opener, "missing %d ending '///' tag%s at line %d", n, plural, opener.LineNumber)
}

// FilterRequest is a single run of the conditional line filter.
type FilterRequest struct {
	Lines []ParsedLine

	// Features the conditions are evaluated against
	Features FeatureSet
	// PassFeatures, when set, replaces Features at every #PASS line
	PassFeatures func(pass int) FeatureSet

	Keywords  KeywordLookup
	Evaluator ConditionEvaluator

	// Document names the source in diagnostics
	Document string
}

// LineFilter keeps the lines of satisfied condition blocks.
//
// A LineFilter reuses its output buffer between runs, so it is meant to be
// held by a single compiler and not shared between goroutines.
type LineFilter struct {
	out   []ParsedLine
	stack condStack
}

func NewLineFilter() *LineFilter {
	return &LineFilter{}
}

// Filter returns the lines of req that are inside all-true condition blocks,
// with their original line numbers. Condition lines are never part of the
// output and #FEATURES blocks are dropped entirely.
//
// The returned slice is only valid until the next call to Filter.
func (f *LineFilter) Filter(req FilterRequest) ([]ParsedLine, Diagnostics) {
	var diags Diagnostics

	f.out = f.out[:0]
	f.stack.reset()

	features := req.Features
	pass := -1

	lines := req.Lines
	for i := 0; i < len(lines); i++ {
		pl := lines[i]
		line := pl.Line

		if isPassMarker(line) {
			pass++
			if req.PassFeatures != nil {
				features = req.PassFeatures(pass)
			}
		}

		if directiveIs(line, "#FEATURES") {
			end := skipBlock(lines, i)
			if end == len(lines) {
				diags = append(diags, errorAt(KindStructural, pl, "missing #END for #FEATURES block"))
			}
			i = end
			continue
		}

		if IsConditionLine(line) {
			if d := f.stack.process(pl, features, req.Evaluator, req.Keywords); d != nil {
				diags = append(diags, *d)
			}
			continue
		}

		if f.stack.active() {
			f.out = append(f.out, pl)
		}
	}

	if f.stack.depth() > 0 {
		diags = append(diags, f.stack.unclosed())
	}

	if req.Document != "" {
		diags = diags.WithDocument(req.Document)
	}

	return f.out, diags
}

// skipBlock returns the index of the #END closing the block opened at lines[start],
// or len(lines) when there is none.
func skipBlock(lines []ParsedLine, start int) int {
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i].Line) == "#END" {
			return i
		}
	}
	return len(lines)
}
