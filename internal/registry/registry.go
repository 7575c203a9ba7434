// Package registry provides an ordered plugin container shared by metadata
// sources and upload destinations.
package registry

import (
	"sort"
	"strings"
	"sync"
)

// Named is anything registered by name.
type Named interface {
	Name() string
}

type entry[T Named] struct {
	item     T
	priority int
	seq      int
}

// Registry holds plugins with a priority. Lower priority values take
// precedence; equal priorities keep registration order. The order is the
// only thing that decides merge precedence, so it must not depend on map
// iteration or anything else that varies between runs.
type Registry[T Named] struct {
	mu      sync.RWMutex
	entries []entry[T]
}

// New creates an empty registry.
func New[T Named]() *Registry[T] {
	return &Registry[T]{}
}

// Register appends an item. Names and priorities need not be unique.
func (r *Registry[T]) Register(item T, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry[T]{item: item, priority: priority, seq: len(r.entries)})
}

// List returns every item sorted by priority, ties by registration order.
func (r *Registry[T]) List() []T {
	return r.Filter(nil)
}

// Filter returns the List order restricted to the items keep accepts. A nil
// keep accepts everything.
func (r *Registry[T]) Filter(keep func(T) bool) []T {
	r.mu.RLock()
	sorted := make([]entry[T], len(r.entries))
	copy(sorted, r.entries)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority < sorted[j].priority
		}
		return sorted[i].seq < sorted[j].seq
	})

	out := make([]T, 0, len(sorted))
	for _, e := range sorted {
		if keep == nil || keep(e.item) {
			out = append(out, e.item)
		}
	}
	return out
}

// Get returns the first registered item with the given name.
func (r *Registry[T]) Get(name string) (T, bool) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.item.Name() == name {
			return e.item, true
		}
	}
	var zero T
	return zero, false
}

// Priority returns the priority an item was registered with.
func (r *Registry[T]) Priority(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.item.Name() == name {
			return e.priority, true
		}
	}
	return 0, false
}

// Names returns the names in List order, for diagnostics.
func (r *Registry[T]) Names() []string {
	items := r.List()
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name())
	}
	return out
}

// Len returns the number of registered items.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
