package shadertpl

import "log/slog"

// Compiler runs the per-config passes over a parsed Document: keyword
// resolution, conditional filtering and usage tracking.
//
// A Compiler reuses its filter buffer between compilations, so it must not be
// used from several goroutines at once. Use one Compiler per worker.
type Compiler struct {
	eval       ConditionEvaluator
	filter     *LineFilter
	generic    GenericRegistry
	injections InjectionSource
	logger     *slog.Logger
}

type CompilerOption func(*Compiler)

// WithGenericRegistry forwards generic implementation directives to r during usage tracking
func WithGenericRegistry(r GenericRegistry) CompilerOption {
	return func(c *Compiler) {
		c.generic = r
	}
}

// WithInjectionSource merges the properties of injected code into the pass of each injection point
func WithInjectionSource(s InjectionSource) CompilerOption {
	return func(c *Compiler) {
		c.injections = s
	}
}

func WithCompilerLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = l
	}
}

func NewCompiler(eval ConditionEvaluator, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		eval:   eval,
		filter: NewLineFilter(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is one compiled variant of a template.
type Result struct {
	// Lines are the kept lines with their original line numbers.
	// They are only valid until the next call to Compile on the same Compiler.
	Lines []ParsedLine

	// Features the lines before the first #PASS were filtered with
	Features FeatureSet
	// PassFeatures are the features each pass was filtered with
	PassFeatures []FeatureSet

	// Keywords is the keyword resolution for the whole template,
	// Flags and ExtraFlags accumulate the flags of every pass
	Keywords KeywordResult

	Usage *Usage

	// Properties visible for this config, with their headers
	Properties []*Property
	Headers    map[int]Header

	InjectionPoints []InjectionPoint

	Diagnostics Diagnostics
}

// Compile compiles doc for cfg. cfg is not modified: forced UI values and
// template keywords are applied to a copy.
//
// The features the conditions see are built the same way for every pass:
// the config features, the features needed by the properties used in the pass
// and what the #KEYWORDS rules turn on for those. Lines before the first #PASS
// see the features needed by every pass at once.
//
// Warnings are returned in the result. Hard errors return a *DiagnosticsError
// and no result.
func (c *Compiler) Compile(doc *Document, cfg *Config) (*Result, error) {
	var diags Diagnostics
	name := sourceName(doc.Metadata)

	if cfg == nil {
		cfg = NewConfig()
	}
	cfg = cfg.Clone()
	doc.ApplyForcedValues(cfg)
	doc.ApplyKeywords(cfg)

	neededAll := NewFeatureSet()
	for _, p := range doc.Properties {
		if len(p.Passes()) > 0 {
			neededAll.Add(p.NeededFeatures()...)
		}
	}

	res := &Result{}

	flags := newKeywordState()
	resolve := func(features FeatureSet) KeywordResult {
		kw, d := ResolveKeywords(doc.Lines, cfg, features, c.eval)
		diags = append(diags, d...)
		flags.Flags = appendMissing(flags.Flags, kw.Flags...)
		for block, f := range kw.ExtraFlags {
			flags.ExtraFlags[block] = appendMissing(flags.ExtraFlags[block], f...)
		}
		return kw
	}

	conditionFeatures := neededAll.Union(cfg.Features, cfg.ExtraTempFeatures)
	res.Keywords = resolve(conditionFeatures)
	res.Features = cfg.Features.Union(res.Keywords.Features, neededAll)

	passFeatures := func(pass int) FeatureSet {
		features := cfg.Features.Clone()
		for _, p := range doc.Properties {
			if p.UsedInPass(pass) {
				features.Add(p.NeededFeatures()...)
			}
		}
		kw := resolve(features)
		features = features.Union(kw.Features)
		res.PassFeatures = append(res.PassFeatures, features)
		return features
	}

	lines, filterDiags := c.filter.Filter(FilterRequest{
		Lines:        doc.Lines,
		Features:     res.Features,
		PassFeatures: passFeatures,
		Keywords:     cfg,
		Evaluator:    c.eval,
	})
	diags = append(diags, filterDiags...)
	res.Lines = lines
	res.Keywords.Flags = flags.Flags
	res.Keywords.ExtraFlags = flags.ExtraFlags

	usage, usageDiags := TrackUsage(lines, doc, UsageOptions{Generic: c.generic, Injections: c.injections})
	diags = append(diags, usageDiags...)
	res.Usage = usage

	props, headers, visibleDiags := VisibleProperties(lines, doc)
	diags = append(diags, visibleDiags...)
	res.Properties, res.Headers = props, headers

	res.InjectionPoints = FindInjectionPoints(lines)

	diags = diags.dedupe().WithDocument(name)
	if diags.HasErrors() {
		return nil, &DiagnosticsError{Source: name, Diagnostics: diags}
	}
	res.Diagnostics = diags

	c.logger.Debug("Compiled template",
		"source", name,
		"features", res.Features.Sorted(),
		"lines", len(res.Lines),
		"passes", res.Usage.Passes(),
		"keywordIterations", res.Keywords.Iterations)

	return res, nil
}
