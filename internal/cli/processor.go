package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/transformer"
)

const (
	maxFiles   = 500
	maxWorkers = 4
)

type TranspileResult struct {
	Path       string
	OutPath    string
	ReportPath string
	// Warnings reported for the template
	Diagnostics shadertpl.Diagnostics
	Duration    time.Duration
}

type ProcessResult struct {
	Path    string
	OutPath string
	Output  *transformer.Output
	// Diagnostics of a failed template, when the failure was in the template itself
	Diagnostics shadertpl.Diagnostics
	Error       error
	Duration    time.Duration
}

// BatchError is returned when some templates of a directory failed to compile.
// The templates that did compile are still written and returned.
type BatchError struct {
	Failures []ProcessResult
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("encountered %d errors during compilation. Please rerun with --verbose to see trace", len(e.Failures))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Error
	}
	return errs
}

// Processor compiles templates with a pool of workers, one transformer each
type Processor struct {
	newTransformer func() *transformer.Transformer
	opts           transformer.TransformOptions
	workers        int
}

func NewProcessor(opts transformer.TransformOptions, workers int) *Processor {
	if workers <= 0 {
		workers = maxWorkers
	}
	return &Processor{
		newTransformer: func() *transformer.Transformer { return transformer.NewTransformer(opts) },
		opts:           opts,
		workers:        workers,
	}
}

func (p *Processor) ProcessPath(path string) ([]TranspileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() {
		return p.processDirectory(path)
	}

	result := p.processFile(p.newTransformer(), path)
	if result.Error != nil {
		return nil, result.Error
	}

	return []TranspileResult{toTranspileResult(result)}, nil
}

// FindTemplates walks the directory tree starting at root and returns every template in it, sorted.
//
// If a .git directory is found, it will be used to load .gitignore patterns.
func FindTemplates(root string) ([]string, error) {
	var files []string
	var patterns []gitignore.Pattern

	// If .git exists, set up gitignore patterns
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		patterns = append(patterns, gitignore.ParsePattern(".git/", nil))

		if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
			for _, p := range strings.Split(string(data), "\n") {
				if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
					patterns = append(patterns, gitignore.ParsePattern(p, nil))
				}
			}
		}
	}

	matcher := gitignore.NewMatcher(patterns)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		pathComponents := strings.Split(relPath, string(os.PathSeparator))

		if len(patterns) > 0 && relPath != "." {
			if matcher.Match(pathComponents, info.IsDir()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !info.IsDir() && shadertpl.IsTemplatePath(path) {
			if len(files) >= maxFiles {
				return fmt.Errorf("max files limit reached (%d)", maxFiles)
			}
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found", shadertpl.TemplateExt)
	}

	sort.Strings(files)
	return files, nil
}

func (p *Processor) processDirectory(root string) ([]TranspileResult, error) {
	startTime := time.Now()
	slog.Debug("starting directory processing", "path", root)
	files, err := FindTemplates(root)
	if err != nil {
		return nil, err
	}

	slog.Debug("found files to process", "count", len(files), "duration", time.Since(startTime))

	results := p.ProcessFiles(files)

	var failures []ProcessResult
	var transpileResults []TranspileResult

	absRoot := shadertpl.MustAbs(root)
	for _, result := range results {
		if result.Error != nil {
			failures = append(failures, result)
			slog.Debug("failed to process file", "path", result.Path, "error", result.Error)
			continue
		}

		tr := toTranspileResult(result)
		tr.Path = relativeTo(absRoot, tr.Path)
		tr.OutPath = relativeTo(absRoot, tr.OutPath)
		if tr.ReportPath != "" {
			tr.ReportPath = relativeTo(absRoot, tr.ReportPath)
		}
		transpileResults = append(transpileResults, tr)

		slog.Debug("file transpiled",
			"source", tr.Path,
			"output", tr.OutPath,
		)
	}

	slog.Debug("compilation completed", "duration", time.Since(startTime), "processed", len(transpileResults), "failed", len(failures))

	if len(failures) > 0 {
		return transpileResults, &BatchError{Failures: failures}
	}
	return transpileResults, nil
}

// ProcessFiles compiles files with the worker pool. Results are in the order of files.
func (p *Processor) ProcessFiles(files []string) []ProcessResult {
	type job struct {
		idx  int
		path string
	}

	jobs := make(chan job, len(files))
	results := make([]ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, len(files)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// the compiler reuses its buffers, so each worker gets its own
			t := p.newTransformer()
			for j := range jobs {
				results[j.idx] = p.processFile(t, j.path)
			}
		}()
	}

	for i, file := range files {
		jobs <- job{idx: i, path: file}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (p *Processor) processFile(t *transformer.Transformer, path string) ProcessResult {
	startTime := time.Now()
	var result ProcessResult

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve absolute path: %w", err)
		return result
	}

	result.Path = absPath

	slog.Debug("processing file", "path", absPath)

	if !shadertpl.IsTemplatePath(absPath) {
		result.Error = fmt.Errorf("invalid file extension, expected %s", shadertpl.TemplateExt)
		return result
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		result.Error = fmt.Errorf("error reading file: %w", err)
		return result
	}

	src := transformer.TemplateSource{
		Content: bytes.NewReader(content),
		Metadata: shadertpl.MetaData{
			Source: absPath,
		},
	}

	out, err := t.Transform(src)
	if err != nil {
		var de *shadertpl.DiagnosticsError
		if errors.As(err, &de) {
			result.Diagnostics = de.Diagnostics
		}
		result.Error = err
		return result
	}

	result.Output = out
	result.OutPath = out.Path
	result.Duration = time.Since(startTime)
	slog.Debug("file processed",
		"path", absPath,
		"duration", result.Duration)

	return result
}

func toTranspileResult(r ProcessResult) TranspileResult {
	return TranspileResult{
		Path:        r.Path,
		OutPath:     r.OutPath,
		ReportPath:  r.Output.ReportPath,
		Diagnostics: r.Output.Diagnostics,
		Duration:    r.Duration,
	}
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
