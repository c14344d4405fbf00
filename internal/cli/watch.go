package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jwtly10/shadertpl"
)

const defaultDebounce = 150 * time.Millisecond

type WatchOptions struct {
	// Directories searched for templates, watched recursively
	Roots []string
	// Module directories. A change in one of them recompiles every template.
	ModuleDirs []string
	// Called before recompiling after a module changed, eg to drop cached modules
	OnModulesChanged func()
	// Called with the results of every recompilation
	OnResults func([]ProcessResult)
	// Events arriving within this window are compiled together
	Debounce time.Duration
}

// Watcher recompiles templates when they, or the modules they use, change on disk.
type Watcher struct {
	processor *Processor
	opts      WatchOptions
	fsw       *fsnotify.Watcher
}

// NewWatcher starts watching opts.Roots and opts.ModuleDirs. Nothing is
// compiled until Run is called.
func (p *Processor) NewWatcher(opts WatchOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.OnResults == nil {
		opts.OnResults = func([]ProcessResult) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{processor: p, opts: opts, fsw: fsw}
	for _, root := range opts.Roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	for _, dir := range opts.ModuleDirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching module dir %s: %w", dir, err)
		}
	}

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run handles file events until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	modulesChanged := false

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			switch {
			case w.isModuleFile(ev.Name):
				slog.Debug("module changed", "path", ev.Name)
				modulesChanged = true
			case shadertpl.IsTemplatePath(ev.Name):
				slog.Debug("template changed", "path", ev.Name)
				pending[ev.Name] = struct{}{}
			case ev.Has(fsnotify.Create) && isDir(ev.Name):
				// new subdirectories of a root need their own watch
				if err := w.fsw.Add(ev.Name); err == nil {
					slog.Debug("watching new directory", "path", ev.Name)
				}
				continue
			default:
				continue
			}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)

		case <-timer.C:
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			slices.Sort(files)
			if modulesChanged {
				if w.opts.OnModulesChanged != nil {
					w.opts.OnModulesChanged()
				}
				files = w.allTemplates()
			}
			clear(pending)
			modulesChanged = false

			if len(files) == 0 {
				continue
			}
			slog.Debug("recompiling templates", "count", len(files))
			w.opts.OnResults(w.processor.ProcessFiles(files))
		}
	}
}

func (w *Watcher) isModuleFile(path string) bool {
	if shadertpl.IsTemplatePath(path) || filepath.Ext(path) != ".txt" {
		return false
	}
	dir := filepath.Dir(path)
	for _, md := range w.opts.ModuleDirs {
		if filepath.Clean(md) == dir {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) allTemplates() []string {
	var files []string
	for _, root := range w.opts.Roots {
		found, err := FindTemplates(root)
		if err != nil {
			slog.Warn("can't list templates", "root", root, "error", err)
			continue
		}
		files = append(files, found...)
	}
	slices.Sort(files)
	return slices.Compact(files)
}

// HasFailures reports whether any of results failed
func HasFailures(results []ProcessResult) bool {
	return slices.ContainsFunc(results, func(r ProcessResult) bool { return r.Error != nil })
}
