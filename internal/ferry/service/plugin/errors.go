package plugin

import (
	"errors"
)

var (
	// ErrPluginNotFound is returned when an id is not in the registry.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrPluginExists is returned when installing over a known id or directory.
	ErrPluginExists = errors.New("plugin already exists")
	// ErrInvalidPlugin is returned for a missing directory or a bad manifest.
	ErrInvalidPlugin = errors.New("invalid plugin")
	// ErrInvalidConfig is returned when a config does not satisfy the schema.
	ErrInvalidConfig = errors.New("invalid plugin config")
	// ErrInvalidTransition is returned when a lifecycle step runs from the wrong state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrActivation wraps any failure of the load, register, mount, start sequence.
	ErrActivation = errors.New("plugin activation failed")
)
