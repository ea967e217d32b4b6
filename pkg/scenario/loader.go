// Package scenario resolves mission IDs to validated definitions
// stored as YAML files under a content root.
package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"digital.vasic.missions/pkg/matcher"
	"digital.vasic.missions/pkg/mission"
)

// ErrNotFound is wrapped by Resolve when no definition file exists
// for the requested mission ID.
var ErrNotFound = errors.New("mission not found")

// Loader maps hierarchical mission IDs to definition files: the ID
// "linux/basics/navigation" resolves to
// <root>/linux/basics/navigation.yml. Definitions are fully
// validated at load time, including matcher resolution against the
// registry, so a bad file never reaches an active session. Loaded
// definitions are cached by ID.
type Loader struct {
	root     string
	registry *matcher.Registry

	mu    sync.RWMutex
	cache map[mission.ID]*mission.Definition
}

// NewLoader creates a Loader serving definitions from root.
func NewLoader(root string, registry *matcher.Registry) *Loader {
	return &Loader{
		root:     root,
		registry: registry,
		cache:    make(map[mission.ID]*mission.Definition),
	}
}

// Resolve returns the definition for id, loading and validating the
// backing file on first use.
func (l *Loader) Resolve(id mission.ID) (*mission.Definition, error) {
	l.mu.RLock()
	def, ok := l.cache[id]
	l.mu.RUnlock()
	if ok {
		return def, nil
	}

	path, err := l.pathFor(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read mission file %s: %w", path, err)
	}

	def, err = l.load(path, data)
	if err != nil {
		return nil, err
	}
	if def.Mission.ID != id {
		return nil, fmt.Errorf(
			"mission file %s declares ID %q, expected %q",
			path, def.Mission.ID, id,
		)
	}

	l.mu.Lock()
	l.cache[id] = def
	l.mu.Unlock()
	return def, nil
}

// load parses and validates one definition file.
func (l *Loader) load(path string, data []byte) (*mission.Definition, error) {
	def, err := mission.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("mission file %s: %w", path, err)
	}

	if errs := def.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf(
			"mission file %s is invalid: %s", path, strings.Join(msgs, "; "),
		)
	}

	for i, step := range def.Steps {
		if err := l.registry.ValidateSpec(step.Validation); err != nil {
			return nil, fmt.Errorf(
				"mission file %s: steps[%d]: %w", path, i, err,
			)
		}
	}
	return def, nil
}

// pathFor maps an ID to its file, rejecting IDs that would escape
// the content root.
func (l *Loader) pathFor(id mission.ID) (string, error) {
	rel := filepath.FromSlash(string(id)) + ".yml"
	if id == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: invalid mission ID %q", ErrNotFound, id)
	}
	return filepath.Join(l.root, rel), nil
}

// ClearCache drops the cached definition for id, forcing a reload
// on next Resolve. Clearing an uncached ID is a no-op.
func (l *Loader) ClearCache(id mission.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, id)
}

// List walks the content root and returns the IDs of all definition
// files, sorted. IDs come from file paths alone; a broken file still
// lists, and its problems surface when it is resolved.
func (l *Loader) List() ([]mission.ID, error) {
	var ids []mission.ID
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yml" {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		id := mission.ID(filepath.ToSlash(strings.TrimSuffix(rel, ".yml")))
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk mission root %s: %w", l.root, err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
