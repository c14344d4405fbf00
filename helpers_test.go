package shadertpl

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// featureEval understands a single feature name, optionally negated with '!'
var featureEval = EvaluatorFunc(func(expr string, features FeatureSet) (bool, error) {
	name, neg := strings.CutPrefix(strings.TrimSpace(expr), "!")
	if name == "" || strings.ContainsAny(name, " &|()") {
		return false, fmt.Errorf("unsupported expression %q", expr)
	}
	return features.Has(name) != neg, nil
})

func numbered(text string) []ParsedLine {
	return NumberLines(SplitLines(text))
}

func texts(lines []ParsedLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Line
	}
	return out
}

func lineNumbers(lines []ParsedLine) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.LineNumber
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mustParse parses tab-separated template lines with no module registry
func mustParse(t *testing.T, lines ...string) *Document {
	t.Helper()
	doc, diags, err := NewParser(WithLogger(quietLogger())).Parse(strings.NewReader(strings.Join(lines, "\n")), MetaData{Source: "test.sg2.txt"})
	require.NoError(t, err, "diagnostics: %v", diags)
	return doc
}
