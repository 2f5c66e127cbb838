package compiler

import (
	"sync"
)

// Registry holds compilers in registration order and dispatches on file
// extension, first match wins. It replaces runtime duck-typing with one
// explicit capability-tagged list.
type Registry struct {
	mu        sync.RWMutex
	compilers []Compiler
}

// NewRegistry creates an empty compiler registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends c to the dispatch order.
func (r *Registry) Register(c Compiler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compilers = append(r.compilers, c)
}

// ForPath returns the first registered compiler claiming path, or nil.
func (r *Registry) ForPath(path string) Compiler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.compilers {
		if c.CanHandle(path) {
			return c
		}
	}
	return nil
}

// Compilers returns the registered compilers in dispatch order.
func (r *Registry) Compilers() []Compiler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Compiler, len(r.compilers))
	copy(out, r.compilers)
	return out
}
