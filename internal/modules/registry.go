// Package modules loads template modules from disk.
package modules

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jwtly10/shadertpl"
)

const (
	modulePrefix = "Module_"
	moduleExt    = ".txt"
)

// FSRegistry finds modules in a list of directories, in order. A module called
// Name is read from Module_Name.txt, or Name.txt when that does not exist.
// Parsed modules are cached, FSRegistry is safe for concurrent use.
type FSRegistry struct {
	dirs []fs.FS

	mu    sync.Mutex
	cache map[string]*shadertpl.Module
}

func NewFSRegistry(dirs ...fs.FS) *FSRegistry {
	return &FSRegistry{
		dirs:  dirs,
		cache: make(map[string]*shadertpl.Module),
	}
}

var _ shadertpl.ModuleRegistry = (*FSRegistry)(nil)

func (r *FSRegistry) Load(name string) (*shadertpl.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache[name]; ok {
		return m, nil
	}

	for _, dir := range r.dirs {
		for _, file := range []string{modulePrefix + name + moduleExt, name + moduleExt} {
			f, err := dir.Open(file)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("opening module %s: %w", file, err)
			}

			m, err := shadertpl.ParseModule(name, f)
			f.Close()
			if err != nil {
				return nil, err
			}

			slog.Debug("Loaded module", "name", name, "file", file)
			r.cache[name] = m
			return m, nil
		}
	}

	if s := shadertpl.Suggest(name, r.available()); s != "" {
		return nil, fmt.Errorf("%w: '%s' (did you mean '%s'?)", shadertpl.ErrModuleNotFound, name, s)
	}
	return nil, fmt.Errorf("%w: '%s'", shadertpl.ErrModuleNotFound, name)
}

// Reset drops the cached modules, so that edited module files are read again
func (r *FSRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
}

// Available lists the module names found in the registry directories
func (r *FSRegistry) Available() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available()
}

func (r *FSRegistry) available() []string {
	seen := make(map[string]struct{})
	for _, dir := range r.dirs {
		entries, err := fs.ReadDir(dir, ".")
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != moduleExt {
				continue
			}
			name := strings.TrimSuffix(e.Name(), moduleExt)
			name = strings.TrimPrefix(name, modulePrefix)
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
