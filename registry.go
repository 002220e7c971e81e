package consent

import (
	"context"
	"sync"
)

// Registry hands out named Manager instances so embedding hosts share one
// engine per storage name instead of racing several against the same record.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Manager
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: map[string]*Manager{}}
}

// Manager returns the instance registered under name, constructing and
// initializing one from raw configuration on first use. A Manager removes
// itself from the registry when destroyed.
func (r *Registry) Manager(ctx context.Context, name string, raw any, opts ...ManagerOption) (*Manager, error) {
	r.mu.Lock()
	if existing, ok := r.instances[name]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.mu.Unlock()

	manager := NewManager(opts...)
	manager.release = func() { r.Release(name) }
	if err := manager.Init(ctx, raw); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.instances[name]; ok {
		return existing, nil
	}
	r.instances[name] = manager
	return manager, nil
}

// Release detaches the named instance without destroying it.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}
