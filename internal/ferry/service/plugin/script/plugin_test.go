package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMounter struct{}

func (nopMounter) Mount(string, []server.Route) error { return nil }

const prefixManifest = `{
	"id": "prefix", "name": "Prefix", "type": "hook",
	"entryRef": "lua:main.lua:register",
	"configSchema": {"properties": {"prefix": {"type": "string", "default": ""}}}
}`

const prefixScript = `
started = false

function register(api)
  local prefix = api.config.prefix
  api.register_hook("pre_query", function(q)
    if prefix == "" then
      return nil
    end
    return prefix .. " " .. q.prompt .. " (" .. q.channel .. ")"
  end)
  api.log("debug", "registered " .. api.id)
end

function on_start()
  started = true
end
`

func writeScriptPlugin(t *testing.T, root, manifest, script string) {
	t.Helper()
	dir := filepath.Join(root, "prefix")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, plugin.ManifestFile), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0644))
}

func newManager(t *testing.T, root string, pluginCfg map[string]interface{}) *plugin.Manager {
	t.Helper()
	store := plugin.NewFileConfigStore(filepath.Join(t.TempDir(), "plugins.json"))
	cfg := plugin.NewPluginsConfig()
	cfg.SetEnabled("prefix", true)
	cfg.Plugins["prefix"] = pluginCfg
	require.NoError(t, store.Save(cfg))

	c := &plugin.Config{
		Roots:   plugin.SearchRoots(root, "", nil),
		Store:   store,
		Loader:  plugin.NewSchemeLoader().Handle(Scheme, NewLoader()),
		Mounter: nopMounter{},
	}
	m, err := c.Complete().New()
	require.NoError(t, err)
	require.NoError(t, m.LoadAll(context.Background()))
	t.Cleanup(func() { m.StopAll(context.Background()) })
	return m
}

func TestScript_PreQueryRewritesPrompt(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, prefixManifest, prefixScript)
	m := newManager(t, root, map[string]interface{}{"prefix": "[ops]"})

	info, err := m.GetPluginInfo("prefix")
	require.NoError(t, err)
	require.Equal(t, plugin.StateStarted, info.State, info.Error)

	payload := &plugin.QueryHookPayload{Channel: "yunzhijia", Prompt: "restart the node"}
	require.NoError(t, m.Hooks().Fire(context.Background(), plugin.HookPreQuery, payload))
	assert.Equal(t, "[ops] restart the node (yunzhijia)", payload.Prompt)
}

func TestScript_NilReturnKeepsPrompt(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, prefixManifest, prefixScript)
	m := newManager(t, root, nil)

	payload := &plugin.QueryHookPayload{Prompt: "hello"}
	require.NoError(t, m.Hooks().Fire(context.Background(), plugin.HookPreQuery, payload))
	assert.Equal(t, "hello", payload.Prompt)
}

func TestScript_RuntimeErrorIsReported(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, prefixManifest, `
function register(api)
  api.register_hook("pre_query", function(q) error("boom") end)
end`)
	m := newManager(t, root, nil)

	payload := &plugin.QueryHookPayload{Prompt: "hello"}
	err := m.Hooks().Fire(context.Background(), plugin.HookPreQuery, payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "hello", payload.Prompt)
}

func TestScript_ActivationFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"syntax error", "function register(", "main.lua"},
		{"missing entry", "function other() end", `does not define function "register"`},
		{"unknown hook", `function register(api) api.register_hook("on_boot", function() end) end`, "unknown hook event"},
		{"sandboxed", `function register(api) require("os") end`, "register"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeScriptPlugin(t, root, prefixManifest, tt.script)
			m := newManager(t, root, nil)

			info, err := m.GetPluginInfo("prefix")
			require.NoError(t, err)
			assert.Equal(t, plugin.StateError, info.State)
			assert.Contains(t, info.Error, tt.want)
		})
	}
}

func TestScript_FailedStartReleasesState(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, prefixManifest, `
function register(api) end
function on_start() error("no backend") end`)
	m := newManager(t, root, nil)

	info, err := m.GetPluginInfo("prefix")
	require.NoError(t, err)
	assert.Equal(t, plugin.StateError, info.State)
	assert.Contains(t, info.Error, "no backend")

	inst, ok := m.Registry().Get("prefix")
	require.True(t, ok)
	assert.Nil(t, inst.Capability())
}

func TestScript_CloseReleasesState(t *testing.T) {
	s := &Script{id: "prefix", state: newState()}
	require.NoError(t, s.Close())
	assert.True(t, s.state.closed)

	_, ok := s.state.function("on_start")
	assert.False(t, ok)
	assert.ErrorIs(t, s.state.doFile("main.lua"), ErrStateClosed)
}

func TestScriptPath_StaysInsideDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := scriptPath(dir, "../evil.lua")
	assert.ErrorContains(t, err, "escapes")
	_, err = scriptPath(dir, "/etc/passwd")
	assert.ErrorContains(t, err, "relative")
}

func TestLuaConversion(t *testing.T) {
	s := newState()
	defer s.close()

	v := map[string]interface{}{"list": []interface{}{"a", float64(2)}, "flag": true}
	got := fromLua(toLua(s.L, v))
	assert.Equal(t, v, got)
}
