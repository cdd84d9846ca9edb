// Package registry maps task names to stable, process-wide numeric ids.
package registry

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Registry maps a human-readable name to a stable id.
type Registry interface {
	Register(name string) uint64
}

// NameRegistry derives ids by hashing names, so registering the same name
// twice yields the same id. It is safe for concurrent use.
type NameRegistry struct {
	mu    sync.RWMutex
	names map[uint64]string
}

// New creates an empty registry.
func New() *NameRegistry {
	return &NameRegistry{names: make(map[uint64]string)}
}

// Register returns the id for name, recording it for reverse lookup.
func (r *NameRegistry) Register(name string) uint64 {
	id := Hash(name)

	r.mu.RLock()
	_, ok := r.names[id]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	r.names[id] = name
	r.mu.Unlock()
	return id
}

// Name returns the name registered for id.
func (r *NameRegistry) Name(id uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Len returns the number of distinct registered names.
func (r *NameRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Hash is the id function used by NameRegistry.
func Hash(name string) uint64 {
	return xxhash.Sum64String(name)
}
