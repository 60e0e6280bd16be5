package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstance(t *testing.T, entry string) *Instance {
	t.Helper()
	m, err := ParseManifest([]byte(manifestJSON("demo", entry)))
	require.NoError(t, err)
	return NewInstance(m, t.TempDir(), SourceBundled)
}

func builtinLoader(entries map[string]EntryFunc) Loader {
	reg := NewInTreeRegistry()
	for name, e := range entries {
		reg.Register(name, e)
	}
	return NewSchemeLoader().Handle(SchemeBuiltin, reg)
}

func TestLifecycle_FullCycle(t *testing.T) {
	rec := &recorder{}
	lc := NewLifecycle(builtinLoader(map[string]EntryFunc{"demo": returning(rec)}))
	inst := newTestInstance(t, "builtin:demo")
	ctx := context.Background()

	require.NoError(t, lc.Load(inst))
	assert.Equal(t, StateLoaded, inst.State())
	require.NoError(t, lc.Register(inst, nil))
	assert.Equal(t, StateRegistered, inst.State())
	assert.Same(t, rec, inst.Capability())
	require.NoError(t, lc.Start(ctx, inst))
	assert.Equal(t, StateStarted, inst.State())
	require.NoError(t, lc.Stop(ctx, inst))
	assert.Equal(t, StateStopped, inst.State())
	assert.Equal(t, 1, rec.starts)
	assert.Equal(t, 1, rec.stops)

	// A stopped plugin can be activated again.
	require.NoError(t, lc.Load(inst))
	assert.Equal(t, StateLoaded, inst.State())
}

func TestLifecycle_StartFromDiscoveredIsRefused(t *testing.T) {
	lc := NewLifecycle(builtinLoader(nil))
	inst := newTestInstance(t, "builtin:demo")

	err := lc.Start(context.Background(), inst)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateDiscovered, inst.State())
}

func TestLifecycle_StopWhenNotStartedIsNoop(t *testing.T) {
	lc := NewLifecycle(builtinLoader(nil))
	inst := newTestInstance(t, "builtin:demo")

	assert.NoError(t, lc.Stop(context.Background(), inst))
	assert.Equal(t, StateDiscovered, inst.State())
}

func TestLifecycle_FailuresLandInError(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]EntryFunc
		want    string
	}{
		{"unknown builtin", nil, "not compiled in"},
		{"entry fails", map[string]EntryFunc{"demo": failing("no token")}, "no token"},
		{"entry panics", map[string]EntryFunc{"demo": func(PluginAPI) (interface{}, error) { panic("kaboom") }}, "panic: kaboom"},
		{"start fails", map[string]EntryFunc{"demo": returning(&recorder{startErr: errors.New("port busy")})}, "port busy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle(builtinLoader(tt.entries))
			inst := newTestInstance(t, "builtin:demo")

			err := lc.Load(inst)
			if err == nil {
				err = lc.Register(inst, nil)
			}
			if err == nil {
				err = lc.Start(context.Background(), inst)
			}
			require.Error(t, err)
			assert.Equal(t, StateError, inst.State())
			assert.Contains(t, inst.Error(), tt.want)
		})
	}
}

func TestLifecycle_ReloadClearsError(t *testing.T) {
	calls := 0
	entry := func(PluginAPI) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("first try")
		}
		return nil, nil
	}
	lc := NewLifecycle(builtinLoader(map[string]EntryFunc{"demo": entry}))
	inst := newTestInstance(t, "builtin:demo")

	require.NoError(t, lc.Load(inst))
	require.Error(t, lc.Register(inst, nil))
	assert.Equal(t, StateError, inst.State())
	assert.NotEmpty(t, inst.Error())

	require.NoError(t, lc.Load(inst))
	assert.Empty(t, inst.Error())
	require.NoError(t, lc.Register(inst, nil))
	require.NoError(t, lc.Start(context.Background(), inst))
	assert.Equal(t, StateStarted, inst.State())
	assert.NotNil(t, inst.Capability(), "a nil object keeps the entry itself")
}

func TestInTreeRegistry_DuplicatePanics(t *testing.T) {
	reg := NewInTreeRegistry()
	reg.Register("a", returning(nil))
	assert.Panics(t, func() { reg.Register("a", returning(nil)) })
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestSchemeLoader_UnknownScheme(t *testing.T) {
	l := NewSchemeLoader().Handle(SchemeBuiltin, NewInTreeRegistry())
	_, err := l.Resolve("wasm:x", nil)
	assert.ErrorContains(t, err, `no loader for scheme "wasm"`)
}
