package shadertpl

import "strings"

// KeywordResult is the output of the #KEYWORDS rules for one feature set.
type KeywordResult struct {
	// Features turned on by the rules, not including the input features
	Features   FeatureSet
	Flags      []string
	ExtraFlags map[string][]string

	// Iterations is the number of walks over the block, 1 when no rule restarted it
	Iterations int
}

// ResolveKeywords runs the first #KEYWORDS block of lines to a fixed point.
//
// Rule lines are gated by condition blocks evaluated against features plus the
// features the rules turned on so far. Whenever a rule turns on a new feature
// the walk starts over from the top of the block, so that the order of the
// rules does not matter. The feature set only grows between walks and the
// number of restarts is capped at the number of rules plus one; rules that
// keep toggling a feature on and off are reported as a structural error.
func ResolveKeywords(lines []ParsedLine, cfg *Config, features FeatureSet, eval ConditionEvaluator) (KeywordResult, Diagnostics) {
	state := newKeywordState()
	res := KeywordResult{Features: state.Features, ExtraFlags: state.ExtraFlags}

	start := -1
	for i, pl := range lines {
		if directiveIs(pl.Line, "#KEYWORDS") {
			start = i
			break
		}
	}
	if start < 0 {
		return res, nil
	}

	var diags Diagnostics
	end := start + 1
	for ; end < len(lines); end++ {
		if strings.HasPrefix(lines[end].Line, "#END") {
			break
		}
	}
	if end == len(lines) {
		diags = append(diags, errorAt(KindStructural, lines[start], "missing #END for #KEYWORDS block"))
	}

	rules := 0
	for _, pl := range lines[start+1 : end] {
		if !IsConditionLine(pl.Line) && strings.TrimSpace(pl.Line) != "" {
			rules++
		}
	}

	if cfg == nil {
		cfg = NewConfig()
	}
	conditional := features.Clone()

	seen := make(map[string]struct{})
	report := func(d *Diagnostic) {
		if d == nil {
			return
		}
		key := d.Error()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		diags = append(diags, *d)
	}

	var st condStack
	maxRestarts := rules + 1
	restarts := 0

walk:
	for {
		res.Iterations++
		st.reset()

		for i := start + 1; i < end; i++ {
			pl := lines[i]

			if IsConditionLine(pl.Line) {
				report(st.process(pl, conditional, eval, cfg))
				continue
			}
			if !st.active() {
				continue
			}

			if cfg.ProcessKeywords(pl.Line, state) {
				conditional.Add(state.Features.Sorted()...)
				restarts++
				if restarts > maxRestarts {
					d := errorAt(KindStructural, lines[start], "keyword rules did not converge after %d restarts", maxRestarts)
					report(&d)
					break walk
				}
				continue walk
			}
		}

		if st.depth() > 0 {
			d := st.unclosed()
			report(&d)
		}
		break
	}

	res.Flags = state.Flags
	return res, diags
}
