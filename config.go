package shadertpl

import (
	"maps"
	"slices"
	"strings"
)

const templateKeywordPrefix = "TEMPLATE_"

// Config is one compilation request: the features, flags and keywords selected
// for a template, before the template's own keyword rules are applied.
type Config struct {
	// The template file this config was made for, informational only
	TemplateFile string

	Features FeatureSet
	// Features added for a single compilation, never persisted
	ExtraTempFeatures FeatureSet

	Flags []string
	// Flags keyed by the block they belong to, eg "pragma"
	ExtraFlags map[string][]string

	// Named keyword values, tested with /// IF_KEYWORD
	Keywords map[string]string
}

func NewConfig(features ...string) *Config {
	return &Config{
		Features:          NewFeatureSet(features...),
		ExtraTempFeatures: NewFeatureSet(),
		ExtraFlags:        make(map[string][]string),
		Keywords:          make(map[string]string),
	}
}

// Clone returns a deep copy of c
func (c *Config) Clone() *Config {
	out := &Config{
		TemplateFile:      c.TemplateFile,
		Features:          c.Features.Clone(),
		ExtraTempFeatures: c.ExtraTempFeatures.Clone(),
		Flags:             slices.Clone(c.Flags),
		ExtraFlags:        make(map[string][]string, len(c.ExtraFlags)),
		Keywords:          maps.Clone(c.Keywords),
	}
	for block, flags := range c.ExtraFlags {
		out.ExtraFlags[block] = slices.Clone(flags)
	}
	if out.Keywords == nil {
		out.Keywords = make(map[string]string)
	}
	return out
}

func (c *Config) HasKeyword(name string) bool {
	_, ok := c.Keywords[name]
	return ok
}

func (c *Config) Keyword(name string) string {
	return c.Keywords[name]
}

// KeywordSet reports whether keyword name has a non-empty value
func (c *Config) KeywordSet(name string) bool {
	return c.HasKeyword(name) && c.Keyword(name) != ""
}

// ApplyTemplateKeywords removes every TEMPLATE_ feature and adds keywords instead
func (c *Config) ApplyTemplateKeywords(keywords []string) {
	if c.Features == nil {
		c.Features = NewFeatureSet()
	}
	for f := range c.Features {
		if strings.HasPrefix(f, templateKeywordPrefix) {
			delete(c.Features, f)
		}
	}
	c.Features.Add(keywords...)
}

// KeywordState accumulates the output of the #KEYWORDS rules for one resolution.
type KeywordState struct {
	Features   FeatureSet
	Flags      []string
	ExtraFlags map[string][]string
}

func newKeywordState() *KeywordState {
	return &KeywordState{
		Features:   NewFeatureSet(),
		ExtraFlags: make(map[string][]string),
	}
}

// ProcessKeywords executes a single #KEYWORDS rule line against state.
//
// Supported rules:
//
//	feature_on  A B    add features
//	feature_off A B    remove features
//	flag_on     X      add flags
//	flag_on:pragma X   add flags to the "pragma" block
//	flag_off[:block] X remove flags
//
// It returns true only when a feature was added that was not there before, which
// is the event that makes the keyword loop start over. Unknown rules are ignored.
func (c *Config) ProcessKeywords(line string, state *KeywordState) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return false
	}

	rule, block, _ := strings.Cut(fields[0], ":")
	args := fields[1:]

	switch rule {
	case "feature_on":
		return state.Features.Add(args...) > 0
	case "feature_off":
		state.Features.Remove(args...)
	case "flag_on":
		if block == "" {
			state.Flags = appendMissing(state.Flags, args...)
		} else {
			state.ExtraFlags[block] = appendMissing(state.ExtraFlags[block], args...)
		}
	case "flag_off":
		if block == "" {
			state.Flags = removeAll(state.Flags, args...)
		} else {
			state.ExtraFlags[block] = removeAll(state.ExtraFlags[block], args...)
		}
	}

	return false
}

func appendMissing(list []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}

func removeAll(list []string, items ...string) []string {
	return slices.DeleteFunc(list, func(s string) bool {
		return slices.Contains(items, s)
	})
}
