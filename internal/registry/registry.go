// Package registry maps provider identifiers to factories.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds named factories of type F. Names are case-insensitive.
type Registry[F any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]F
}

// New returns an empty registry; kind names what it builds ("embedding provider").
func New[F any](kind string) *Registry[F] {
	return &Registry[F]{kind: kind, factories: make(map[string]F)}
}

// Register adds or replaces the factory for name.
func (r *Registry[F]) Register(name string, factory F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Lookup returns the factory for name or an *UnknownError.
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		var zero F
		return zero, &UnknownError{Kind: r.kind, Name: name, Known: r.namesLocked()}
	}
	return f, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry[F]) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UnknownError is returned by Lookup for an unregistered identifier.
type UnknownError struct {
	Kind  string
	Name  string
	Known []string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown %s %q (available: %s)", e.Kind, e.Name, strings.Join(e.Known, ", "))
}
