package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]*Definition)
)

// Register adds a definition to the built-in catalog.
// Called by entity implementations in their init() functions.
// Register panics on an invalid definition since that is a programming error.
func Register(def *Definition) {
	if err := def.Validate(); err != nil {
		panic(err)
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog[def.Name] = def
}

// Catalog returns the names of all built-in definitions (sorted).
func Catalog() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default creates a registry holding every built-in definition.
func Default() *Registry {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	r := NewRegistry()
	for name, def := range catalog {
		r.defs[name] = def
	}
	return r
}

// Registry maps entity type names to definitions. Each dispatcher owns its own
// registry; definitions themselves are immutable once registered.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Registering a name twice is an error.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("nil entity definition")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("entity %s already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Lookup retrieves the definition for an operation. It fails with
// UnsupportedEntityTypeError for unknown names and UnsupportedOperationError
// when the entity does not support the operation kind.
func (r *Registry) Lookup(name string, kind core.OperationKind) (*Definition, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, &core.UnsupportedEntityTypeError{
			EntityType: name,
			Operation:  kind,
			Available:  r.Names(),
		}
	}
	if !def.Supports(kind) {
		return nil, &core.UnsupportedOperationError{EntityType: name, Operation: kind}
	}
	return def, nil
}

// Names returns all registered entity names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all registered definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.defs[name])
	}
	return defs
}
