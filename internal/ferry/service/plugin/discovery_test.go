package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_PrecedenceAndSkips(t *testing.T) {
	bundled, installed, external := t.TempDir(), t.TempDir(), t.TempDir()

	writePlugin(t, bundled, "alpha", manifestJSON("alpha", "builtin:alpha"))
	writePlugin(t, installed, "alpha-copy", manifestJSON("alpha", "builtin:other"))
	writePlugin(t, installed, "beta", manifestJSON("beta", "lua:main.lua:register"))
	writePlugin(t, external, "broken", `{"id": "broken"}`)
	writePlugin(t, external, ".hidden", manifestJSON("hidden", "builtin:x"))
	require.NoError(t, os.MkdirAll(filepath.Join(external, "empty"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(external, "README"), []byte("x"), 0644))

	roots := SearchRoots(bundled, installed, []string{external, filepath.Join(external, "missing")})
	require.Len(t, roots, 4)

	found := Discover(roots)
	require.Len(t, found, 2)
	assert.Equal(t, "alpha", found[0].ID())
	assert.Equal(t, SourceBundled, found[0].Source())
	assert.Equal(t, "builtin:alpha", found[0].Manifest().EntryRef)
	assert.Equal(t, "beta", found[1].ID())
	assert.Equal(t, SourceInstalled, found[1].Source())
	assert.Equal(t, StateDiscovered, found[1].State())
}

func TestDiscoverSingle_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := DiscoverSingle(filepath.Join(dir, "nope"), SourceExternal)
	assert.ErrorIs(t, err, ErrInvalidPlugin)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = DiscoverSingle(file, SourceExternal)
	assert.ErrorIs(t, err, ErrInvalidPlugin)

	_, err = DiscoverSingle(dir, SourceExternal)
	assert.ErrorIs(t, err, ErrInvalidPlugin, "no manifest")
}

func TestInstallTree(t *testing.T) {
	src := writePlugin(t, t.TempDir(), "anything", manifestJSON("gamma", "lua:main.lua:register"))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.lua"), []byte("function register(api) end"), 0644))
	installed := filepath.Join(t.TempDir(), "installed")

	inst, err := InstallTree(src, installed)
	require.NoError(t, err)
	assert.Equal(t, "gamma", inst.ID())
	assert.Equal(t, filepath.Join(installed, "gamma"), inst.Path())
	assert.FileExists(t, filepath.Join(installed, "gamma", "main.lua"))

	_, err = InstallTree(src, installed)
	assert.ErrorIs(t, err, ErrPluginExists)
}

func TestRegistry_KeepsFirst(t *testing.T) {
	r := NewRegistry()
	first := newTestInstance(t, "builtin:demo")
	second := newTestInstance(t, "builtin:demo")

	require.NoError(t, r.Register(first))
	assert.ErrorIs(t, r.Register(second), ErrPluginExists)
	got, ok := r.Get("demo")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, r.ByType(TypeHook), 1)
	assert.True(t, r.Remove("demo"))
	assert.False(t, r.Remove("demo"))
	assert.Equal(t, 0, r.Len())
}
