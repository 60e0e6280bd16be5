package plugin

import (
	"fmt"
	"sync"

	"github.com/kiosk404/ferry/pkg/logger"
)

// Registry indexes every known plugin instance by id and keeps the order
// in which they were registered.
//
// Thread-safe: all mutations are guarded by a mutex.
type Registry struct {
	mu sync.RWMutex

	plugins map[string]*Instance
	order   []string
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*Instance)}
}

// Register adds inst. An id already present keeps the existing instance;
// the newcomer is dropped and ErrPluginExists is returned.
func (r *Registry) Register(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := inst.ID()
	if existing, ok := r.plugins[id]; ok {
		logger.Warn("[Plugin] duplicate plugin %q at %s ignored, keeping %s (%s)",
			id, inst.Path(), existing.Path(), existing.Source())
		return fmt.Errorf("%w: %s", ErrPluginExists, id)
	}
	r.plugins[id] = inst
	r.order = append(r.order, id)
	return nil
}

// Get returns the instance with id.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.plugins[id]
	return inst, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Remove drops id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[id]; !ok {
		return false
	}
	delete(r.plugins, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns every instance in registration order.
func (r *Registry) All() []*Instance {
	return r.filter(func(*Instance) bool { return true })
}

// ByType returns the instances of type t.
func (r *Registry) ByType(t Type) []*Instance {
	return r.filter(func(i *Instance) bool { return i.Manifest().Type == t })
}

// Enabled returns the instances on the enabled list.
func (r *Registry) Enabled() []*Instance {
	return r.filter((*Instance).Enabled)
}

// Started returns the instances currently in state started.
func (r *Registry) Started() []*Instance {
	return r.filter(func(i *Instance) bool { return i.State() == StateStarted })
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

func (r *Registry) filter(keep func(*Instance) bool) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Instance, 0, len(r.order))
	for _, id := range r.order {
		if inst := r.plugins[id]; keep(inst) {
			result = append(result, inst)
		}
	}
	return result
}
