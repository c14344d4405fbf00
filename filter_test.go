package shadertpl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineFilter_Filter(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		features  []string
		keywords  map[string]string
		wantLines []string
		wantNums  []int
	}{
		{
			name:      "block skipped without feature",
			src:       "///FEATURE_A\nline1\n///\nline2",
			wantLines: []string{"line2"},
			wantNums:  []int{4},
		},
		{
			name:      "block kept with feature",
			src:       "///FEATURE_A\nline1\n///\nline2",
			features:  []string{"FEATURE_A"},
			wantLines: []string{"line1", "line2"},
			wantNums:  []int{2, 4},
		},
		{
			name:      "explicit IF and negation",
			src:       "/// IF !FEATURE_A\nno a\n///\n/// IF FEATURE_A\na\n///",
			wantLines: []string{"no a"},
			wantNums:  []int{2},
		},
		{
			name: "nested blocks need every parent",
			src: `///A
outer
	///B
	inner
	///
///`,
			features:  []string{"B"},
			wantLines: []string{},
			wantNums:  []int{},
		},
		{
			name: "nested blocks all true",
			src: `///A
outer
	///B
	inner
	///
after
///`,
			features:  []string{"A", "B"},
			wantLines: []string{"outer", "\tinner", "after"},
			wantNums:  []int{2, 4, 6},
		},
		{
			name: "elif taken",
			src: `/// IF A
a
/// ELIF B
b
/// ELSE
other
///`,
			features:  []string{"B"},
			wantLines: []string{"b"},
			wantNums:  []int{4},
		},
		{
			name: "first matching branch wins",
			src: `/// IF A
a
/// ELIF B
b
/// ELSE
other
///`,
			features:  []string{"A", "B"},
			wantLines: []string{"a"},
			wantNums:  []int{2},
		},
		{
			name: "else taken",
			src: `/// IF A
a
/// ELIF B
b
/// ELSE
other
///`,
			wantLines: []string{"other"},
			wantNums:  []int{6},
		},
		{
			name: "else under inactive parent",
			src: `///A
/// IF B
b
/// ELSE
not b
///
///
tail`,
			wantLines: []string{"tail"},
			wantNums:  []int{8},
		},
		{
			name:      "keyword condition",
			src:       "/// IF_KEYWORD RENDER_TYPE\ntyped\n///\n/// IF_KEYWORD QUEUE\nqueued\n///",
			keywords:  map[string]string{"RENDER_TYPE": "Opaque", "QUEUE": ""},
			wantLines: []string{"typed"},
			wantNums:  []int{2},
		},
		{
			name:      "features block dropped",
			src:       "#FEATURES\ntoggle X\n#END\nkept",
			wantLines: []string{"kept"},
			wantNums:  []int{4},
		},
		{
			name:      "four slashes are not a condition",
			src:       "//// comment\n// plain",
			wantLines: []string{"//// comment", "// plain"},
			wantNums:  []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			for k, v := range tt.keywords {
				cfg.Keywords[k] = v
			}

			out, diags := NewLineFilter().Filter(FilterRequest{
				Lines:     numbered(tt.src),
				Features:  NewFeatureSet(tt.features...),
				Keywords:  cfg,
				Evaluator: featureEval,
			})
			require.Empty(t, diags)
			require.Equal(t, tt.wantLines, texts(out))
			require.Equal(t, tt.wantNums, lineNumbers(out))
		})
	}
}

func TestLineFilter_PassFeatures(t *testing.T) {
	src := numbered(`///GLOBAL
global
///
#PASS
///P
pass0
///
#PASS
///P
pass1
///`)

	var calls []int
	out, diags := NewLineFilter().Filter(FilterRequest{
		Lines:    src,
		Features: NewFeatureSet("GLOBAL"),
		PassFeatures: func(pass int) FeatureSet {
			calls = append(calls, pass)
			if pass == 1 {
				return NewFeatureSet("P")
			}
			return NewFeatureSet()
		},
		Evaluator: featureEval,
	})

	require.Empty(t, diags)
	require.Equal(t, []int{0, 1}, calls)
	require.Equal(t, []string{"global", "#PASS", "#PASS", "pass1"}, texts(out))
}

func TestLineFilter_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind Kind
		wantLine int
		wantMsg  string
	}{
		{
			name:     "unclosed block reports innermost opener",
			src:      "///A\nx\n///B\ny\n///",
			wantKind: KindStructural,
			wantLine: 1,
			wantMsg:  "missing 1 ending '///' tag at line 1",
		},
		{
			name:     "two unclosed blocks",
			src:      "line\n///A\n///B\ny",
			wantKind: KindStructural,
			wantLine: 3,
			wantMsg:  "missing 2 ending '///' tags at line 3",
		},
		{
			name:     "stray close",
			src:      "x\n///",
			wantKind: KindStructural,
			wantLine: 2,
			wantMsg:  "closing '///' without an opening condition",
		},
		{
			name:     "else without if",
			src:      "/// ELSE\nx",
			wantKind: KindStructural,
			wantLine: 1,
			wantMsg:  "'/// ELSE' without an opening condition",
		},
		{
			name:     "invalid expression",
			src:      "/// IF A &&\nx\n///",
			wantKind: KindSyntax,
			wantLine: 1,
			wantMsg:  "invalid condition 'A &&'",
		},
		{
			name:     "unterminated features block",
			src:      "#FEATURES\ntoggle",
			wantKind: KindStructural,
			wantLine: 1,
			wantMsg:  "missing #END for #FEATURES block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := NewLineFilter().Filter(FilterRequest{
				Lines:     numbered(tt.src),
				Features:  NewFeatureSet(),
				Evaluator: featureEval,
				Document:  "test.sg2.txt",
			})
			require.Len(t, diags, 1)
			require.Equal(t, tt.wantKind, diags[0].Kind)
			require.Equal(t, tt.wantLine, diags[0].Line)
			require.Equal(t, "test.sg2.txt", diags[0].Document)
			require.Contains(t, diags[0].Message, tt.wantMsg)
		})
	}
}

func TestLineFilter_ConditionsUnderInactiveParentAreNotEvaluated(t *testing.T) {
	evaluated := map[string]int{}
	eval := EvaluatorFunc(func(expr string, features FeatureSet) (bool, error) {
		evaluated[expr]++
		return features.Has(expr), nil
	})

	_, diags := NewLineFilter().Filter(FilterRequest{
		Lines:     numbered("///A\n///B\nx\n/// ELIF C\n///\n///"),
		Features:  NewFeatureSet(),
		Evaluator: eval,
	})
	require.Empty(t, diags)
	require.Equal(t, map[string]int{"A": 1}, evaluated)
}

func TestLineFilter_MissingEvaluator(t *testing.T) {
	_, diags := NewLineFilter().Filter(FilterRequest{
		Lines:    numbered("///A\nx\n///"),
		Features: NewFeatureSet(),
	})
	require.Len(t, diags, 1)
	require.True(t, errors.Is(diags[0], errNoEvaluator))
	require.ErrorIs(t, diags.Err(), ErrSyntax)
}

func TestLineFilter_ReusesBuffer(t *testing.T) {
	f := NewLineFilter()
	src := numbered("///A\na\n///\nb")

	first, _ := f.Filter(FilterRequest{Lines: src, Features: NewFeatureSet("A"), Evaluator: featureEval})
	require.Equal(t, []string{"a", "b"}, texts(first))

	second, _ := f.Filter(FilterRequest{Lines: src, Features: NewFeatureSet(), Evaluator: featureEval})
	require.Equal(t, []string{"b"}, texts(second))
	require.Equal(t, "b", first[0].Line, "output shares the filter buffer")
}

func TestIndentedPassMarkersCountEverywhere(t *testing.T) {
	doc := mustParse(t,
		"#SG2",
		"#ID=indented",
		"#PROPERTIES_NEW",
		"float\tA\tfragment\timp(constant, value = 1)",
		"float\tB\tfragment\timp(constant, value = 1)",
		"#END",
		`Shader "indented" {`,
		"\t#PASS",
		"a = [[VALUE:A]];",
		"  #PASS",
		"///P",
		"b = [[VALUE:B]];",
		"///",
		"}",
	)
	require.Equal(t, []int{0}, doc.Property("A").Passes())
	require.Equal(t, []int{1}, doc.Property("B").Passes())

	var calls []int
	out, diags := NewLineFilter().Filter(FilterRequest{
		Lines:    doc.Lines,
		Features: NewFeatureSet(),
		PassFeatures: func(pass int) FeatureSet {
			calls = append(calls, pass)
			if pass == 1 {
				return NewFeatureSet("P")
			}
			return NewFeatureSet()
		},
		Evaluator: featureEval,
	})
	require.Empty(t, diags)
	require.Equal(t, []int{0, 1}, calls)
	require.Contains(t, texts(out), "b = [[VALUE:B]];")

	u, diags := TrackUsage(out, doc, UsageOptions{})
	require.Empty(t, diags)
	require.Equal(t, 2, u.Passes())
	require.Equal(t, []int{0}, u.PassesOf(doc.Property("A")))
	require.Equal(t, []int{1}, u.PassesOf(doc.Property("B")))
}
