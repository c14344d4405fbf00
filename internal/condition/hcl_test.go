package condition_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/condition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHCLEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		features []string
		want     bool
	}{
		{name: "single feature on", expr: "FEATURE_A", features: []string{"FEATURE_A"}, want: true},
		{name: "single feature off", expr: "FEATURE_A", want: false},
		{name: "negation", expr: "!FEATURE_A", want: true},
		{name: "and", expr: "A && B", features: []string{"A", "B"}, want: true},
		{name: "and with one missing", expr: "A && B", features: []string{"A"}, want: false},
		{name: "or", expr: "A || B", features: []string{"B"}, want: true},
		{name: "grouping", expr: "(A || B) && !C", features: []string{"A", "C"}, want: false},
		{name: "nested grouping", expr: "!(A && (B || C))", features: []string{"A"}, want: true},
		{name: "literal words are feature names", expr: "true", want: false},
		{name: "feature named true", expr: "true && !false", features: []string{"true"}, want: true},
		{name: "leading digit", expr: "2SIDED && !null", features: []string{"2SIDED"}, want: true},
		{name: "leading digit off", expr: "2SIDED", want: false},
	}

	eval := condition.NewHCLEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expr, shadertpl.NewFeatureSet(tt.features...))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHCLEvaluator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantNot bool
	}{
		{name: "syntax error", expr: "A &&"},
		{name: "attribute traversal", expr: "A.b"},
		{name: "arithmetic on features", expr: "A + B"},
		{name: "string result", expr: `"A"`, wantNot: true},
	}

	eval := condition.NewHCLEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval.Evaluate(tt.expr, shadertpl.NewFeatureSet("A"))
			require.Error(t, err)
			require.Equal(t, tt.wantNot, errors.Is(err, condition.ErrNotBool))
		})
	}
}

func TestHCLEvaluator_CacheIsSafeForConcurrentUse(t *testing.T) {
	eval := condition.NewHCLEvaluator()
	features := shadertpl.NewFeatureSet("A")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := eval.Evaluate("A && !B", features)
			assert.NoError(t, err)
			assert.True(t, got)
		}()
	}
	wg.Wait()
}
