package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/transformer"
	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, compileOnSave bool) (*DocumentService, string) {
	t.Helper()

	opts := DefaultDocumentServiceOptions
	opts.ShadowRoot = t.TempDir()
	opts.CompileOnSave = compileOnSave
	opts.FinalTransformerOpts.NoBackup = true

	s, err := NewDocumentService(opts)
	require.NoError(t, err)
	return s, opts.ShadowRoot
}

func TestDocumentServiceOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    DocumentServiceOptions
		wantErr string
	}{
		{name: "defaults", opts: DefaultDocumentServiceOptions},
		{name: "no shadow root", opts: DocumentServiceOptions{}, wantErr: "shadow root directory is required"},
		{
			name: "pretty shadow transformer",
			opts: DocumentServiceOptions{
				ShadowRoot:            "/tmp/x",
				ShadowTransformerOpts: transformer.TransformOptions{WriterMode: shadertpl.ModePretty},
			},
			wantErr: "shadow transformer must use shadow mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDocumentService_Update(t *testing.T) {
	s, shadowRoot := newTestService(t, false)
	src := filepath.Join(t.TempDir(), "lsp.sg2.txt")
	uri := lsp.DocumentURI(s.PathToURI(src))

	t.Run("valid template writes shadow file", func(t *testing.T) {
		u, err := s.Update(uri, strings.Join(lspTemplate, "\n"))
		require.NoError(t, err)
		require.False(t, u.Diagnostics.HasErrors())

		shadowPath := filepath.Join(shadowRoot, filepath.Dir(src), "lsp.shader")
		assert.Equal(t, s.PathToURI(shadowPath), u.ShadowURI)
		require.FileExists(t, shadowPath)

		original, ok := s.OriginalURI(u.ShadowURI)
		require.True(t, ok)
		assert.Equal(t, string(uri), original)

		shadow, ok := s.ShadowURI(string(uri))
		require.True(t, ok)
		assert.Equal(t, u.ShadowURI, shadow)

		// shadow lines stay at their template line numbers
		content, err := os.ReadFile(shadowPath)
		require.NoError(t, err)
		assert.Equal(t, "o.Albedo = [[VALUE:Albedo]];", strings.Split(string(content), "\n")[9])
	})

	t.Run("broken template keeps last valid document", func(t *testing.T) {
		broken := strings.Join(lspTemplate[:len(lspTemplate)-1], "\n") + "\n///FADE\n"
		u, err := s.Update(uri, broken)
		require.NoError(t, err)
		require.Empty(t, u.ShadowURI)
		require.Len(t, u.Diagnostics.Errors(), 1)
		assert.Equal(t, 11, u.Diagnostics.Errors()[0].Line)

		doc, lines, ok := s.Document(uri)
		require.True(t, ok)
		require.NotNil(t, doc)
		assert.Equal(t, "lsp", doc.ID)
		assert.Equal(t, "///FADE", lines[len(lines)-1])
	})

	t.Run("empty template", func(t *testing.T) {
		u, err := s.Update(uri, "")
		require.NoError(t, err)
		require.Len(t, u.Diagnostics.Errors(), 1)
		assert.Contains(t, u.Diagnostics.Errors()[0].Message, "is empty")
	})

	t.Run("close forgets the document", func(t *testing.T) {
		s.Close(uri)
		_, _, ok := s.Document(uri)
		assert.False(t, ok)
		_, ok = s.ShadowURI(string(uri))
		assert.False(t, ok)
	})

	t.Run("non file uri", func(t *testing.T) {
		_, err := s.Update("untitled:Untitled-1", "#SG2")
		require.ErrorContains(t, err, "unsupported URI scheme")
	})
}

func TestDocumentService_Save(t *testing.T) {
	text := strings.Join(lspTemplate, "\n")
	dir := t.TempDir()
	src := filepath.Join(dir, "lsp.sg2.txt")

	s, _ := newTestService(t, false)
	out, err := s.Save(lsp.DocumentURI(s.PathToURI(src)), text)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "lsp.shader"))

	s, _ = newTestService(t, true)
	out, err = s.Save(lsp.DocumentURI(s.PathToURI(src)), text)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lsp.shader"), out)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "// Code generated by shadertpl")
	assert.Contains(t, string(content), "o.Albedo = [[VALUE:Albedo]];")
}
