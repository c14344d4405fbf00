package shadertpl

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Parser turns template source text into a Document.
type Parser struct {
	registry ModuleRegistry
	features FeatureParser
	logger   *slog.Logger
}

type ParserOption func(*Parser)

// WithModuleRegistry sets where the modules listed in #MODULES are loaded from
func WithModuleRegistry(r ModuleRegistry) ParserOption {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithFeatureParser sets the parser for #FEATURES blocks. Without one the blocks are skipped.
func WithFeatureParser(fp FeatureParser) ParserOption {
	return func(p *Parser) {
		p.features = fp
	}
}

func WithLogger(l *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = l
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a template and runs the module expansion and metadata passes.
//
// Warnings are logged and returned with the document. If any hard error is
// found, no document is returned: the error wraps every error diagnostic, which
// are also returned in full.
func (p *Parser) Parse(r io.Reader, md MetaData) (doc *Document, diags Diagnostics, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d := Diagnostic{
				Severity: SeverityError,
				Kind:     KindStructural,
				Document: md.Source,
				Message:  fmt.Sprintf("internal error while parsing template: %v", rec),
			}
			p.logger.Error("recovered from panic while parsing template", "source", md.Source, "panic", rec)
			doc, diags, err = nil, append(diags, d), d
		}
	}()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading template: %w", err)
	}

	raw := SplitLines(string(content))
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrInvalidTemplate, sourceName(md))
	}

	p.logger.Debug("Parsing template", "source", md.Source, "lines", len(raw))

	expanded, expandDiags := Expand(NumberLines(raw), p.registry)
	diags = append(diags, expandDiags...)

	meta, metaDiags := ExtractMetadata(expanded, p.features)
	diags = append(diags, metaDiags...)

	diags = diags.WithDocument(sourceName(md))
	diags.Warnings().Log(p.logger)

	if diags.HasErrors() {
		return nil, diags, &DiagnosticsError{Source: sourceName(md), Diagnostics: diags}
	}

	doc = &Document{
		Metadata:        md,
		RawLines:        raw,
		Lines:           expanded,
		Valid:           meta.Valid,
		ID:              meta.ID,
		Info:            meta.Info,
		Warning:         meta.Warning,
		Type:            meta.Type,
		Keywords:        meta.Keywords,
		UIFeatures:      meta.UIFeatures,
		Properties:      meta.Properties,
		Headers:         meta.Headers,
		InjectionPoints: FindInjectionPoints(expanded),
	}
	doc.index()

	p.logger.Debug("Parsed template",
		"source", md.Source,
		"id", doc.ID,
		"expandedLines", len(doc.Lines),
		"properties", len(doc.Properties),
		"injectionPoints", len(doc.InjectionPoints))

	return doc, diags, nil
}

// Reload parses r again into d. On error d keeps its last valid state.
func (d *Document) Reload(p *Parser, r io.Reader) (Diagnostics, error) {
	next, diags, err := p.Parse(r, d.Metadata)
	if err != nil {
		return diags, err
	}
	*d = *next
	return diags, nil
}

// SplitLines splits text into lines, accepting both \n and \r\n endings
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func sourceName(md MetaData) string {
	if md.Source == "" {
		return "<template>"
	}
	return md.Source
}
