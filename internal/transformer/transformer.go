package transformer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/condition"
	"github.com/jwtly10/shadertpl/internal/generic"
	"github.com/jwtly10/shadertpl/internal/report"
	"github.com/jwtly10/shadertpl/internal/uifeature"
)

// ReportExt is appended to the output path of a shader to name its usage report
const ReportExt = ".report.yaml"

type TransformOptions struct {
	// The mode for the writer instance
	WriterMode shadertpl.WriteMode
	// If true, no backup will be created
	NoBackup bool
	// Where generated shaders are written, next to the template when empty
	OutputDir string
	// If true, a usage report is written next to each shader
	Report bool

	// The features and keywords templates are compiled with, may be nil
	Config *shadertpl.Config
	// Where #MODULES are loaded from, may be nil
	Modules shadertpl.ModuleRegistry
	// Code injected at [[INJECTION_POINT]] markers, may be nil
	Injections shadertpl.InjectionSource
	// Logger for the parser and compiler, slog.Default when nil
	Logger *slog.Logger
}

func (t *TransformOptions) Pretty() string {
	out := t.OutputDir
	if out == "" {
		out = "<template dir>"
	}
	return fmt.Sprintf("mode=%s backup=%s report=%s output_dir=%s",
		t.WriterMode,
		boolToText(!t.NoBackup),
		boolToText(t.Report),
		out)
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Transformer parses, compiles and writes templates.
//
// A Transformer holds compilation state, it must not be used from several
// goroutines at once. Create one per worker.
type Transformer struct {
	parser   *shadertpl.Parser
	compiler *shadertpl.Compiler
	generic  *generic.Registry
	writer   *shadertpl.Writer
	backup   *shadertpl.BackupManager

	opts TransformOptions
	now  func() time.Time
}

// NewTransformer creates a new Transformer instance with the specified options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	reg := generic.NewRegistry()

	parserOpts := []shadertpl.ParserOption{shadertpl.WithFeatureParser(uifeature.Parser{})}
	if opts.Modules != nil {
		parserOpts = append(parserOpts, shadertpl.WithModuleRegistry(opts.Modules))
	}

	compilerOpts := []shadertpl.CompilerOption{shadertpl.WithGenericRegistry(reg)}
	if opts.Injections != nil {
		compilerOpts = append(compilerOpts, shadertpl.WithInjectionSource(opts.Injections))
	}

	if opts.Logger != nil {
		parserOpts = append(parserOpts, shadertpl.WithLogger(opts.Logger))
		compilerOpts = append(compilerOpts, shadertpl.WithCompilerLogger(opts.Logger))
	}

	return &Transformer{
		parser:   shadertpl.NewParser(parserOpts...),
		compiler: shadertpl.NewCompiler(condition.NewHCLEvaluator(), compilerOpts...),
		generic:  reg,
		writer:   shadertpl.NewWriter(opts.WriterMode),
		backup:   shadertpl.NewBackupManager(),
		opts:     opts,
		now:      time.Now,
	}
}

type TemplateSource struct {
	Content  io.Reader
	Metadata shadertpl.MetaData
}

// Output describes what a transformation wrote
type Output struct {
	Path       string
	ReportPath string
	BackupPath string
	// Warnings found while parsing and compiling
	Diagnostics shadertpl.Diagnostics
}

// Transform handles standard transformation, writing to the resolved output path
func (t *Transformer) Transform(input TemplateSource) (*Output, error) {
	if t.opts.WriterMode == shadertpl.ModeShadow {
		return nil, fmt.Errorf("cannot use Transform() for shadow mode, use TransformToPath() instead")
	}

	return t.transform(input, "")
}

// TransformToPath forces output to a specific path (for lsp shadow files)
func (t *Transformer) TransformToPath(input TemplateSource, outputPath string) (*Output, error) {
	if t.opts.WriterMode != shadertpl.ModeShadow {
		return nil, fmt.Errorf("TransformToPath() can only be used with shadow mode")
	}
	if outputPath == "" {
		return nil, fmt.Errorf("output path is required for shadow transformation")
	}

	return t.transform(input, outputPath)
}

// Compiled is a template compiled for the transformer config
type Compiled struct {
	Document *shadertpl.Document
	Result   *shadertpl.Result
	// Every diagnostic of both passes, errors included
	Diagnostics shadertpl.Diagnostics
}

// Compile parses and compiles input without writing anything. When either pass
// finds errors the returned error is a *shadertpl.DiagnosticsError and the
// diagnostics found so far are still returned.
func (t *Transformer) Compile(input TemplateSource) (*Compiled, error) {
	doc, diags, err := t.parser.Parse(input.Content, input.Metadata)
	if err != nil {
		return &Compiled{Diagnostics: diags}, fmt.Errorf("parse error: %w", err)
	}

	res, err := t.compiler.Compile(doc, t.opts.Config)
	if err != nil {
		var de *shadertpl.DiagnosticsError
		if errors.As(err, &de) {
			diags = append(diags, de.Diagnostics...)
		}
		return &Compiled{Document: doc, Diagnostics: diags}, fmt.Errorf("compile error: %w", err)
	}

	if err := t.generic.Err(); err != nil {
		slog.Warn("ignoring malformed generic implementation directives", "source", input.Metadata.Source, "error", err)
	}

	return &Compiled{Document: doc, Result: res, Diagnostics: append(diags, res.Diagnostics...)}, nil
}

func (t *Transformer) transform(input TemplateSource, forcedPath string) (*Output, error) {
	slog.Debug("transforming template", "path", input.Metadata.Source)
	if input.Metadata.Source == "" {
		return nil, fmt.Errorf("source metadata is required for transformation")
	}

	compiled, err := t.Compile(input)
	if err != nil {
		return nil, err
	}

	out := &Output{Diagnostics: compiled.Diagnostics}
	if forcedPath != "" {
		out.Path = forcedPath
	} else {
		out.Path = shadertpl.ResolveOutputPath(input.Metadata.Source, t.opts.OutputDir)
	}

	// Only support creating backups for pretty mode
	if !t.opts.NoBackup && t.opts.WriterMode == shadertpl.ModePretty {
		out.BackupPath, err = t.backup.CreateBackupOf(out.Path)
		if err != nil {
			return nil, fmt.Errorf("backup error: %w", err)
		}
	}

	if out.BackupPath != "" {
		slog.Info("file already existed. Created backup", "backup", out.BackupPath, "original", out.Path)
	}

	if err := os.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := t.writeShader(out.Path, input.Metadata.Source, compiled.Result); err != nil {
		return nil, err
	}

	if t.opts.Report {
		out.ReportPath = reportPath(out.Path)
		if err := t.writeReport(out.ReportPath, compiled); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *Transformer) writeShader(path, source string, res *shadertpl.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if t.opts.WriterMode == shadertpl.ModePretty {
		metadata := shadertpl.WriterMetadata{
			Version:   shadertpl.VERSION,
			Source:    source,
			Generated: t.now().Format(time.RFC3339),
		}
		if err := t.writer.WriteHeader(f, metadata); err != nil {
			return fmt.Errorf("write header error: %w", err)
		}
	}

	if err := t.writer.WriteContent(res.Lines, f); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

func (t *Transformer) writeReport(path string, c *Compiled) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := t.Report(c).Write(f); err != nil {
		return fmt.Errorf("write report error: %w", err)
	}
	return nil
}

// Report builds the usage report of a successful compilation, with the generic
// implementations enabled while it ran
func (t *Transformer) Report(c *Compiled) *report.Report {
	return report.New(c.Document, c.Result, t.generic)
}

func reportPath(shaderPath string) string {
	return strings.TrimSuffix(shaderPath, shadertpl.ShaderExt) + ReportExt
}
