package plugin

import (
	"fmt"
	"sort"
)

// SchemeBuiltin is the entry reference scheme resolved by InTreeRegistry.
const SchemeBuiltin = "builtin"

// InTreeRegistry holds the entry points compiled into the binary, keyed by
// the name used in "builtin:<name>" references.
type InTreeRegistry struct {
	entries map[string]EntryFunc
}

// NewInTreeRegistry creates an empty in-tree registry.
func NewInTreeRegistry() *InTreeRegistry {
	return &InTreeRegistry{entries: make(map[string]EntryFunc)}
}

// Register adds an entry point. A name registered twice panics, since it
// can only be a programming error.
func (r *InTreeRegistry) Register(name string, entry EntryFunc) {
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("builtin plugin %q registered twice", name))
	}
	r.entries[name] = entry
}

// Names returns the registered names, sorted.
func (r *InTreeRegistry) Names() []string {
	result := make([]string, 0, len(r.entries))
	for name := range r.entries {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of registered entry points.
func (r *InTreeRegistry) Len() int {
	return len(r.entries)
}

// Resolve implements Loader.
func (r *InTreeRegistry) Resolve(name string, _ *Instance) (EntryFunc, error) {
	entry, ok := r.entries[name]
	if !ok || entry == nil {
		return nil, fmt.Errorf("builtin plugin %q is not compiled in", name)
	}
	return entry, nil
}
