// Package condition evaluates template condition expressions with the HCL
// expression syntax: feature names are boolean variables combined with
// &&, || and !, eg "FEATURE_A && !(FEATURE_B || FEATURE_C)".
//
// Every word of an expression is a feature name, including words HCL would
// read as literals or numbers: "true" and "2SIDED" are features. Names are
// bound to placeholder variables before the expression is parsed.
package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jwtly10/shadertpl"
	"github.com/zclconf/go-cty/cty"
)

var ErrNotBool = errors.New("condition is not a boolean expression")

var featureWord = regexp.MustCompile(`\w+`)

// compiled is a parsed expression with the feature names it reads, the
// variable of names[i] is placeholder(i)
type compiled struct {
	expr  hclsyntax.Expression
	names []string
}

func placeholder(i int) string {
	return "f" + strconv.Itoa(i)
}

// HCLEvaluator implements shadertpl.ConditionEvaluator. Parsed expressions are
// cached, it is safe for concurrent use.
type HCLEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*compiled
}

func NewHCLEvaluator() *HCLEvaluator {
	return &HCLEvaluator{cache: make(map[string]*compiled)}
}

var _ shadertpl.ConditionEvaluator = (*HCLEvaluator)(nil)

func (e *HCLEvaluator) Evaluate(expr string, features shadertpl.FeatureSet) (bool, error) {
	c, err := e.compile(expr)
	if err != nil {
		return false, err
	}

	vars := make(map[string]cty.Value, len(c.names))
	for i, name := range c.names {
		vars[placeholder(i)] = cty.BoolVal(features.Has(name))
	}

	val, diags := c.expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating %q: %w", expr, diags)
	}
	if val.IsNull() || !val.IsKnown() || !val.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("%w: %q evaluates to %s", ErrNotBool, expr, val.Type().FriendlyName())
	}

	return val.True(), nil
}

func (e *HCLEvaluator) compile(expr string) (*compiled, error) {
	e.mu.RLock()
	c, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c = &compiled{}
	index := make(map[string]int)
	bound := featureWord.ReplaceAllStringFunc(expr, func(name string) string {
		i, ok := index[name]
		if !ok {
			i = len(c.names)
			index[name] = i
			c.names = append(c.names, name)
		}
		return placeholder(i)
	})

	parsed, diags := hclsyntax.ParseExpression([]byte(bound), "condition", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %q: %w", expr, diags)
	}
	for _, t := range parsed.Variables() {
		if len(t) > 1 {
			return nil, fmt.Errorf("%q: feature names can't have attributes or indexes", expr)
		}
	}
	c.expr = parsed

	e.mu.Lock()
	e.cache[expr] = c
	e.mu.Unlock()

	return c, nil
}
