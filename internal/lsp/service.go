package lsp

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/transformer"
	"github.com/sourcegraph/go-lsp"
)

type DocumentServiceOptions struct {
	ShadowTransformerOpts transformer.TransformOptions
	FinalTransformerOpts  transformer.TransformOptions

	// Root directory for shadow files
	ShadowRoot string
	// If true, the shader is generated every time a template is saved
	CompileOnSave bool
}

var DefaultDocumentServiceOptions = DocumentServiceOptions{
	ShadowRoot: filepath.Join(os.TempDir(), "shadertpl-workspace"),
	ShadowTransformerOpts: transformer.TransformOptions{
		WriterMode: shadertpl.ModeShadow,
		NoBackup:   true,
	},
	FinalTransformerOpts: transformer.TransformOptions{
		WriterMode: shadertpl.ModePretty,
		NoBackup:   false,
	},
}

func (o DocumentServiceOptions) Validate() error {
	if o.ShadowRoot == "" {
		return fmt.Errorf("shadow root directory is required")
	}
	if o.ShadowTransformerOpts.WriterMode != shadertpl.ModeShadow {
		return fmt.Errorf("shadow transformer must use shadow mode, got %s", o.ShadowTransformerOpts.WriterMode)
	}
	return nil
}

// openDocument is the state of a template open in the editor
type openDocument struct {
	lines []string
	// the last document that parsed, kept while the text has errors
	doc *shadertpl.Document
}

// Update is the outcome of processing a new version of a template
type Update struct {
	// Empty when the template has errors
	ShadowURI   string
	Diagnostics shadertpl.Diagnostics
}

// DocumentService handles all document transformations and path mappings.
// It is safe for concurrent use.
type DocumentService struct {
	mu sync.Mutex

	docs map[lsp.DocumentURI]*openDocument

	// Maps shadow URIs to original URIs, which include a mirror of the source file structure
	//
	// shadow_file = file:///tmp/shadertpl-workspace/home/me/shaders/fur.shader
	// original    = file:///home/me/shaders/fur.sg2.txt
	shadowMap         map[string]string
	shadowTransformer *transformer.Transformer
	// The root directory for shadow files eg /tmp/shadertpl-workspace
	shadowRoot string

	// The transformer used for 'final' transformation
	finalTransformer *transformer.Transformer
	compileOnSave    bool
}

func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document service options: %w", err)
	}

	return &DocumentService{
		docs:              make(map[lsp.DocumentURI]*openDocument),
		shadowMap:         make(map[string]string),
		shadowTransformer: transformer.NewTransformer(opts.ShadowTransformerOpts),
		shadowRoot:        opts.ShadowRoot,
		finalTransformer:  transformer.NewTransformer(opts.FinalTransformerOpts),
		compileOnSave:     opts.CompileOnSave,
	}, nil
}

// Update compiles a new version of the template at documentURI and writes its
// shadow file. Problems in the template are returned as diagnostics, the error
// is only for failures outside of it.
func (s *DocumentService) Update(documentURI lsp.DocumentURI, text string) (*Update, error) {
	fsPath, err := s.URIToPath(documentURI)
	if err != nil {
		return nil, fmt.Errorf("invalid document URI: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	od := s.docs[documentURI]
	if od == nil {
		od = &openDocument{}
		s.docs[documentURI] = od
	}
	od.lines = shadertpl.SplitLines(text)

	md := shadertpl.MetaData{Source: fsPath}
	compiled, err := s.shadowTransformer.Compile(transformer.TemplateSource{Content: strings.NewReader(text), Metadata: md})
	if compiled.Document != nil {
		od.doc = compiled.Document
	}
	if err != nil {
		diags := compiled.Diagnostics
		var de *shadertpl.DiagnosticsError
		if !errors.As(err, &de) {
			// eg an empty template, reported on the first line
			diags = append(diags, shadertpl.Diagnostic{Severity: shadertpl.SeverityError, Document: fsPath, Message: err.Error()})
		}
		slog.Debug("template has errors", "path", fsPath, "errors", len(diags.Errors()))
		return &Update{Diagnostics: diags}, nil
	}

	// Mirror the source tree under the shadow root
	shadowPath := shadertpl.ResolveOutputPath(filepath.Join(s.shadowRoot, fsPath), "")
	if err := os.MkdirAll(filepath.Dir(shadowPath), 0755); err != nil {
		return nil, err
	}

	out, err := s.shadowTransformer.TransformToPath(transformer.TemplateSource{Content: strings.NewReader(text), Metadata: md}, shadowPath)
	if err != nil {
		return nil, fmt.Errorf("transform error: %w", err)
	}

	shadowURI := s.PathToURI(out.Path)
	s.shadowMap[shadowURI] = string(documentURI)

	slog.Debug("transformed document",
		"original", documentURI,
		"shadow", shadowURI,
		"warnings", len(compiled.Diagnostics),
	)

	return &Update{ShadowURI: shadowURI, Diagnostics: compiled.Diagnostics}, nil
}

// Save generates the final shader of the template when compile on save is
// enabled, returning the path written or "" when it is disabled.
func (s *DocumentService) Save(documentURI lsp.DocumentURI, text string) (string, error) {
	if !s.compileOnSave {
		return "", nil
	}
	fsPath, err := s.URIToPath(documentURI)
	if err != nil {
		return "", fmt.Errorf("invalid document URI: %w", err)
	}
	return s.TransformFinalDoc(text, fsPath)
}

// TransformFinalDoc transforms a document for final 'compilation' output, returning the absolute path of the output file
func (s *DocumentService) TransformFinalDoc(text string, sourcePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := transformer.TemplateSource{
		Content: strings.NewReader(text),
		Metadata: shadertpl.MetaData{
			Source: sourcePath,
		},
	}

	out, err := s.finalTransformer.Transform(source)
	if err != nil {
		return "", fmt.Errorf("transform error: %w", err)
	}

	return out.Path, nil
}

// Close forgets an open template
func (s *DocumentService) Close(documentURI lsp.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, documentURI)
	for shadow, original := range s.shadowMap {
		if original == string(documentURI) {
			delete(s.shadowMap, shadow)
		}
	}
}

// Document returns the last valid parse of an open template and its current text
func (s *DocumentService) Document(documentURI lsp.DocumentURI) (*shadertpl.Document, []string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	od, ok := s.docs[documentURI]
	if !ok {
		return nil, nil, false
	}
	return od.doc, od.lines, true
}

// ShadowRoot returns the root directory for shadow files
func (s *DocumentService) ShadowRoot() string {
	return s.shadowRoot
}

// OriginalURI returns the original document URI for a shadow file
func (s *DocumentService) OriginalURI(shadowURI string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri, exists := s.shadowMap[shadowURI]
	return uri, exists
}

// ShadowURI returns the shadow URI for an original document URI
func (s *DocumentService) ShadowURI(originalURI string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for shadow, original := range s.shadowMap {
		if original == originalURI {
			return shadow, true
		}
	}
	return "", false
}

// URIToPath converts an LSP URI to a filesystem path
func (s *DocumentService) URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// PathToURI converts a filesystem path to an LSP URI
func (s *DocumentService) PathToURI(path string) string {
	return "file://" + path
}

// CleanupShadowFiles removes all shadow files
func (s *DocumentService) CleanupShadowFiles() error {
	if s.shadowRoot != DefaultDocumentServiceOptions.ShadowRoot {
		slog.Info("skipping shadow file cleanup due to user specified", "path", s.shadowRoot)
		return nil
	}

	return filepath.WalkDir(s.shadowRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("error accessing path", "path", path, "error", err)
			return nil
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), shadertpl.ShaderExt) {
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove shadow file", "path", path, "error", err)
			} else {
				slog.Debug("removed shadow file", "path", path)
			}
		}
		return nil
	})
}
