package plugin

import (
	"sync"
)

// Instance is one discovered plugin and its runtime state. Only the
// lifecycle and the manager mutate it.
type Instance struct {
	mu sync.RWMutex

	manifest *Manifest
	path     string
	source   Source

	state      State
	enabled    bool
	entry      EntryFunc
	capability interface{}
	err        string
}

// NewInstance creates an instance in state discovered.
func NewInstance(m *Manifest, path string, source Source) *Instance {
	return &Instance{
		manifest: m,
		path:     path,
		source:   source,
		state:    StateDiscovered,
	}
}

func (i *Instance) ID() string          { return i.manifest.ID }
func (i *Instance) Manifest() *Manifest { return i.manifest }
func (i *Instance) Path() string        { return i.path }
func (i *Instance) Source() Source      { return i.source }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Enabled reports whether the plugin is on the persisted enabled list.
func (i *Instance) Enabled() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.enabled
}

// Capability returns the object registered by the plugin, or nil before
// registration.
func (i *Instance) Capability() interface{} {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.capability
}

// Error returns the last failure reason.
func (i *Instance) Error() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

func (i *Instance) setEnabled(enabled bool) {
	i.mu.Lock()
	i.enabled = enabled
	i.mu.Unlock()
}

// transition moves from one of want to next. It reports the state found
// when the move is refused.
func (i *Instance) transition(next State, want ...State) (State, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, s := range want {
		if i.state == s {
			i.state = next
			i.err = ""
			return s, true
		}
	}
	return i.state, false
}

func (i *Instance) fail(err error) {
	i.mu.Lock()
	i.state = StateError
	i.err = err.Error()
	i.mu.Unlock()
}

func (i *Instance) setError(err error) {
	i.mu.Lock()
	i.err = err.Error()
	i.mu.Unlock()
}

func (i *Instance) loaded(entry EntryFunc) {
	i.mu.Lock()
	i.entry = entry
	i.capability = nil
	i.mu.Unlock()
}

func (i *Instance) entryFunc() EntryFunc {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.entry
}

func (i *Instance) setCapability(obj interface{}) {
	i.mu.Lock()
	i.capability = obj
	i.mu.Unlock()
}

// Info is a point-in-time snapshot of an instance.
type Info struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	Description  string        `json:"description"`
	Type         Type          `json:"type"`
	Source       Source        `json:"source"`
	State        State         `json:"state"`
	Enabled      bool          `json:"enabled"`
	Error        string        `json:"error,omitempty"`
	ConfigSchema *ConfigSchema `json:"configSchema,omitempty"`
	Path         string        `json:"path"`
}

// Info returns a snapshot of the instance.
func (i *Instance) Info() Info {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Info{
		ID:           i.manifest.ID,
		Name:         i.manifest.Name,
		Version:      i.manifest.Version,
		Description:  i.manifest.Description,
		Type:         i.manifest.Type,
		Source:       i.source,
		State:        i.state,
		Enabled:      i.enabled,
		Error:        i.err,
		ConfigSchema: i.manifest.ConfigSchema,
		Path:         i.path,
	}
}
