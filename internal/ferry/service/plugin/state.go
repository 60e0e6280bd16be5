package plugin

import (
	"fmt"
)

// State is the lifecycle state of a plugin instance.
//
//	Discovered -> Loaded -> Registered -> Started -> Stopped
//
// Error is reached from any failed transition.
type State int

const (
	// StateDiscovered means the manifest was found and validated.
	StateDiscovered State = iota
	// StateLoaded means the entry point was resolved and is callable.
	StateLoaded
	// StateRegistered means the entry point ran against a capability handle.
	StateRegistered
	// StateStarted means the plugin is serving.
	StateStarted
	// StateStopped means the plugin was stopped after running.
	StateStopped
	// StateError means a transition failed; see Instance.Error.
	StateError
)

var stateNames = map[State]string{
	StateDiscovered: "discovered",
	StateLoaded:     "loaded",
	StateRegistered: "registered",
	StateStarted:    "started",
	StateStopped:    "stopped",
	StateError:      "error",
}

// String returns the lowercase name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// loadable reports whether load may run from s. Stopped and Error are
// accepted so a disabled or failed plugin can be activated again.
func (s State) loadable() bool {
	return s == StateDiscovered || s == StateStopped || s == StateError
}
