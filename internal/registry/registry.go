// Package registry keeps the ordered set of monitored targets and mirrors it
// to a line-delimited store file.
package registry

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// DefaultTargets seed a store file that does not exist yet.
var DefaultTargets = []string{
	"5.200.200.200",
	"8.8.8.8",
	"4.2.2.4",
	"ac-client-ws.faceit.com",
	"104.19.156.82",
}

var ErrEmptyTarget = errors.New("registry: empty target")

// Registry is an insertion-ordered, duplicate-free list of targets. Every
// mutation rewrites the store file before returning.
type Registry struct {
	path string

	mu      sync.RWMutex
	targets []string
}

// Open loads the store at path. A missing file is created with defaults.
// An existing empty file yields an empty registry.
func Open(path string, defaults []string) (*Registry, error) {
	r := &Registry{path: path}

	targets, err := ReadFile(path)
	switch {
	case err == nil:
		r.targets = targets
	case isNotExist(err):
		r.targets = parse([]byte(strings.Join(defaults, "\n")))
		if err := WriteFile(path, r.targets); err != nil {
			return nil, &PersistenceError{Op: "create", Path: path, Err: err}
		}
	default:
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	return r, nil
}

// Path returns the store file location.
func (r *Registry) Path() string { return r.path }

// Targets returns a copy of the current list in insertion order.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.targets)
}

func (r *Registry) Contains(target string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.targets, strings.TrimSpace(target))
}

// Add appends target if it is not already present and persists the list.
// It reports whether the list changed. On a write failure the in-memory list
// keeps the new target and a *PersistenceError is returned.
func (r *Registry) Add(target string) (bool, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return false, ErrEmptyTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.targets, target) {
		return false, nil
	}
	r.targets = append(r.targets, target)
	return true, r.persistLocked()
}

// Remove deletes target and persists the list. Removing an absent target is
// a no-op that leaves the file untouched.
func (r *Registry) Remove(target string) (bool, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return false, ErrEmptyTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.targets, target)
	if i < 0 {
		return false, nil
	}
	r.targets = slices.Delete(r.targets, i, i+1)
	return true, r.persistLocked()
}

// Reload re-reads the store file and reports whether the list differs from
// memory. The read and the swap happen under the write lock so a concurrent
// Add or Remove is never overwritten by a stale read. On a read error memory
// is left as it was.
func (r *Registry) Reload() ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, err := ReadFile(r.path)
	if err != nil {
		return slices.Clone(r.targets), false, &PersistenceError{Op: "read", Path: r.path, Err: err}
	}
	if slices.Equal(targets, r.targets) {
		return slices.Clone(r.targets), false, nil
	}
	r.targets = targets
	return slices.Clone(targets), true, nil
}

func (r *Registry) persistLocked() error {
	if err := WriteFile(r.path, r.targets); err != nil {
		return &PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	return nil
}
