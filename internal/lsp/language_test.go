package lsp

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/require"
)

var lspTemplate = []string{
	"#SG2",
	"#ID=lsp",
	"#PROPERTIES_NEW",
	"float4\tAlbedo\tfragment\timp(constant, value = 1)",
	"float\tAlpha\tfragment\timp(constant, value = 0.5, needs = FADE)",
	"#END",
	"Shader \"lsp\" {",
	"#PASS",
	"#FRAGMENT",
	"o.Albedo = [[VALUE:Albedo]];",
	"}",
}

func parseTemplate(t *testing.T) *shadertpl.Document {
	t.Helper()
	p := shadertpl.NewParser(shadertpl.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	doc, _, err := p.Parse(strings.NewReader(strings.Join(lspTemplate, "\n")), shadertpl.MetaData{Source: "lsp.sg2.txt"})
	require.NoError(t, err)
	return doc
}

func TestHover(t *testing.T) {
	doc := parseTemplate(t)

	tests := []struct {
		name      string
		pos       lsp.Position
		want      []string
		wantRange *lsp.Range
	}{
		{
			name: "value marker",
			pos:  lsp.Position{Line: 9, Character: 15},
			want: []string{"**Albedo** `float4` (fragment)", "Implementations: constant", "Used in passes: 0"},
			wantRange: &lsp.Range{
				Start: lsp.Position{Line: 9, Character: 11},
				End:   lsp.Position{Line: 9, Character: 27},
			},
		},
		{
			name: "declaration line",
			pos:  lsp.Position{Line: 4, Character: 2},
			want: []string{"**Alpha** `float` (fragment)", "Needs: FADE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Hover(doc, lspTemplate, tt.pos)
			require.NotNil(t, h)
			require.Len(t, h.Contents, 1)
			for _, w := range tt.want {
				require.Contains(t, h.Contents[0].Value, w)
			}
			require.Equal(t, tt.wantRange, h.Range)
		})
	}

	t.Run("nothing under cursor", func(t *testing.T) {
		require.Nil(t, Hover(doc, lspTemplate, lsp.Position{Line: 9, Character: 2}))
		require.Nil(t, Hover(doc, lspTemplate, lsp.Position{Line: 40}))
		require.Nil(t, Hover(nil, lspTemplate, lsp.Position{Line: 9, Character: 15}))
	})
}

func TestComplete(t *testing.T) {
	doc := parseTemplate(t)

	labels := func(l *lsp.CompletionList) []string {
		var out []string
		for _, it := range l.Items {
			out = append(out, it.Label)
		}
		return out
	}

	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "empty prefix", line: "x = [[VALUE:", want: []string{"Albedo", "Alpha"}},
		{name: "partial name", line: "x = [[VALUE:Alp", want: []string{"Alpha"}},
		{name: "sampled marker", line: "[[SAMPLE_VALUE_SHADER_PROPERTY:Alb", want: []string{"Albedo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Complete(doc, []string{tt.line}, lsp.Position{Line: 0, Character: len(tt.line)})
			require.NotNil(t, l)
			require.Equal(t, tt.want, labels(l))
			require.Equal(t, lsp.CIKProperty, l.Items[0].Kind)
		})
	}

	t.Run("no match", func(t *testing.T) {
		l := Complete(doc, []string{"x = [[VALUE:Zz"}, lsp.Position{Line: 0, Character: 14})
		require.NotNil(t, l)
		require.Empty(t, l.Items)
	})

	t.Run("outside a marker", func(t *testing.T) {
		require.Nil(t, Complete(doc, []string{"x = 1;"}, lsp.Position{Line: 0, Character: 5}))
		require.Nil(t, Complete(doc, []string{"x"}, lsp.Position{Line: 0, Character: 9}))
	})
}

func TestToLSPDiagnostics(t *testing.T) {
	lines := []string{"#SG2", "#PASS", "///A"}
	got := ToLSPDiagnostics(shadertpl.Diagnostics{
		{Severity: shadertpl.SeverityError, Kind: shadertpl.KindStructural, Line: 3, Message: "unclosed /// block"},
		{Severity: shadertpl.SeverityWarning, Message: "template has no #ID"},
	}, lines)

	require.Equal(t, []lsp.Diagnostic{
		{
			Range:    lsp.Range{Start: lsp.Position{Line: 2}, End: lsp.Position{Line: 2, Character: 4}},
			Severity: lsp.Error,
			Code:     shadertpl.KindStructural.String(),
			Source:   "shadertpl",
			Message:  "unclosed /// block",
		},
		{
			Range:    lsp.Range{Start: lsp.Position{Line: 0}, End: lsp.Position{Line: 0, Character: 4}},
			Severity: lsp.Warning,
			Code:     shadertpl.Kind(0).String(),
			Source:   "shadertpl",
			Message:  "template has no #ID",
		},
	}, got)
}
