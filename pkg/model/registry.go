package model

import (
	"fmt"
	"sync"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// Adapter is the common surface of client and server model adapters.
type Adapter interface {
	// Model returns the SIG model identifier.
	Model() mesh.ModelID

	// ElementID returns the owning element.
	ElementID() uint8

	// Init registers the adapter on the bus. Idempotent.
	Init() error

	// Close removes the bus registration.
	Close() error
}

// Registry tracks the created model instances of a node. Creation and
// deletion are explicit; nothing is collected implicitly.
type Registry struct {
	mu     sync.RWMutex
	models map[mesh.ModelID]Adapter
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[mesh.ModelID]Adapter)}
}

// Create adds an adapter. A second instance of the same model is an
// invalid-state error.
func (r *Registry) Create(a Adapter) error {
	if a == nil {
		return fmt.Errorf("registry: nil adapter: %w", mesh.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.Model()
	if _, ok := r.models[id]; ok {
		return fmt.Errorf("registry: model %s already created: %w", id, mesh.ErrInvalidState)
	}
	r.models[id] = a
	return nil
}

// Delete closes and removes the adapter for a model.
func (r *Registry) Delete(id mesh.ModelID) error {
	r.mu.Lock()
	a, ok := r.models[id]
	if ok {
		delete(r.models, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("registry: model %s: %w", id, mesh.ErrNotFound)
	}
	return a.Close()
}

// Get returns the adapter for a model.
func (r *Registry) Get(id mesh.ModelID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.models[id]
	return a, ok
}

// Models lists the created model identifiers.
func (r *Registry) Models() []mesh.ModelID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]mesh.ModelID, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}

// InitAll initializes every created adapter, stopping on the first
// failure.
func (r *Registry) InitAll() error {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.models))
	for _, a := range r.models {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	for _, a := range adapters {
		if err := a.Init(); err != nil {
			return fmt.Errorf("registry: init %s: %w", a.Model(), err)
		}
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Adapter = (*Client)(nil)
	_ Adapter = (*Server)(nil)
)
