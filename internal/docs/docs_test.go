package docs

import (
	"bytes"
	"os"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/uifeature"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func loadDoc(t *testing.T) *shadertpl.Document {
	t.Helper()
	f, err := os.Open("testdata/fur.sg2.txt")
	require.NoError(t, err)
	defer f.Close()

	doc, _, err := shadertpl.NewParser(shadertpl.WithFeatureParser(uifeature.Parser{})).Parse(f, shadertpl.MetaData{Source: "testdata/fur.sg2.txt"})
	require.NoError(t, err)
	return doc
}

func TestGenerator_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator().Markdown(loadDoc(t), &buf))
	golden.Assert(t, buf.String(), "fur.golden.md")
}

func TestGenerator_HTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator().HTML(loadDoc(t), &buf))

	html := buf.String()
	require.Contains(t, html, "<h1>Fur Shells</h1>")
	require.Contains(t, html, "<blockquote>")
	require.Contains(t, html, "<table>")
	require.Contains(t, html, "<td>FurLength (Fur Length)</td>")
}

func TestGenerator_Outline(t *testing.T) {
	g := NewGenerator()
	var buf bytes.Buffer
	require.NoError(t, g.Markdown(loadDoc(t), &buf))

	require.Equal(t, []string{
		"Fur Shells",
		"  Features",
		"  Properties",
		"    Main",
		"    Rim",
	}, g.Outline(buf.Bytes()))
}
