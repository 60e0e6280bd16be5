package plugin

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/kiosk404/ferry/pkg/logger"
)

// Lifecycle drives instances through their state machine. Failures inside a
// transition are recorded on the instance and returned; they never panic.
type Lifecycle struct {
	loader Loader
}

// NewLifecycle creates a lifecycle. loader receives the whole entry
// reference, usually through a SchemeLoader.
func NewLifecycle(loader Loader) *Lifecycle {
	return &Lifecycle{loader: loader}
}

// Load resolves the entry point. It runs from discovered, stopped or error.
func (l *Lifecycle) Load(inst *Instance) error {
	if s := inst.State(); !s.loadable() {
		return refuse(inst, "load", s)
	}

	entry, err := protect(func() (EntryFunc, error) {
		return l.loader.Resolve(inst.Manifest().EntryRef, inst)
	})
	if err == nil && entry == nil {
		err = fmt.Errorf("entry point %q is not callable", inst.Manifest().EntryRef)
	}
	if err != nil {
		return l.failed(inst, "load", err)
	}

	inst.loaded(entry)
	if _, ok := inst.transition(StateLoaded, StateDiscovered, StateStopped, StateError); !ok {
		return refuse(inst, "load", inst.State())
	}
	logger.Info("[Plugin] loaded %q from %s", inst.ID(), inst.Manifest().EntryRef)
	return nil
}

// Register runs the entry point against api. It requires state loaded.
func (l *Lifecycle) Register(inst *Instance, api PluginAPI) error {
	if s := inst.State(); s != StateLoaded {
		return refuse(inst, "register", s)
	}

	entry := inst.entryFunc()
	obj, err := protect(func() (interface{}, error) { return entry(api) })
	if err != nil {
		return l.failed(inst, "register", err)
	}
	if obj == nil {
		obj = entry
	}
	inst.setCapability(obj)
	if from, ok := inst.transition(StateRegistered, StateLoaded); !ok {
		return refuse(inst, "register", from)
	}
	return nil
}

// Start runs the optional Start of the capability object. It requires state
// registered.
func (l *Lifecycle) Start(ctx context.Context, inst *Instance) error {
	if s := inst.State(); s != StateRegistered {
		return refuse(inst, "start", s)
	}

	if s, ok := inst.Capability().(Starter); ok {
		if _, err := protect(func() (struct{}, error) { return struct{}{}, s.Start(ctx) }); err != nil {
			return l.failed(inst, "start", err)
		}
	}
	if from, ok := inst.transition(StateStarted, StateRegistered); !ok {
		return refuse(inst, "start", from)
	}
	logger.Info("[Plugin] started %q", inst.ID())
	return nil
}

// Stop runs the optional Stop of the capability object. On an instance that
// is not started it does nothing. A failing Stop records the reason and
// leaves the state as it was.
func (l *Lifecycle) Stop(ctx context.Context, inst *Instance) error {
	if inst.State() != StateStarted {
		return nil
	}

	if s, ok := inst.Capability().(Stopper); ok {
		if _, err := protect(func() (struct{}, error) { return struct{}{}, s.Stop(ctx) }); err != nil {
			inst.setError(err)
			logger.Warn("[Plugin] stop %q failed: %v", inst.ID(), err)
			return fmt.Errorf("stop %q: %w", inst.ID(), err)
		}
	}
	inst.transition(StateStopped, StateStarted)
	logger.Info("[Plugin] stopped %q", inst.ID())
	return nil
}

// Release frees the capability object of an activation that failed after
// Register. An io.Closer is closed; otherwise a Stopper is stopped. The
// state is left as it was.
func (l *Lifecycle) Release(ctx context.Context, inst *Instance) {
	var err error
	switch c := inst.Capability().(type) {
	case io.Closer:
		_, err = protect(func() (struct{}, error) { return struct{}{}, c.Close() })
	case Stopper:
		_, err = protect(func() (struct{}, error) { return struct{}{}, c.Stop(ctx) })
	}
	if err != nil {
		logger.Warn("[Plugin] release %q failed: %v", inst.ID(), err)
	}
	inst.setCapability(nil)
}

// Fail pins inst in state error with err as the reason.
func (l *Lifecycle) Fail(inst *Instance, err error) {
	inst.fail(err)
	logger.Warn("[Plugin] %q failed: %v", inst.ID(), err)
}

func (l *Lifecycle) failed(inst *Instance, step string, err error) error {
	err = fmt.Errorf("%s %q: %w", step, inst.ID(), err)
	l.Fail(inst, err)
	return err
}

func refuse(inst *Instance, step string, from State) error {
	logger.Warn("[Plugin] cannot %s %q from state %s", step, inst.ID(), from)
	return fmt.Errorf("%w: %s %q from %s", ErrInvalidTransition, step, inst.ID(), from)
}

// protect calls fn and turns a panic into an error.
func protect[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Plugin] recovered panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
