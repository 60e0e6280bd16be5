package plugin

import (
	"context"
)

// EntryFunc is the registration entry point a plugin exposes. It receives
// a fresh capability handle and may return the object that serves as the
// plugin from then on. A nil object keeps the entry itself.
type EntryFunc func(api PluginAPI) (interface{}, error)

// Starter is implemented by capability objects that need to run when the
// plugin starts.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by capability objects that hold resources.
type Stopper interface {
	Stop(ctx context.Context) error
}
