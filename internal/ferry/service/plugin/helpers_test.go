package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, root, dir, manifest string) string {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ManifestFile), []byte(manifest), 0644))
	return path
}

func manifestJSON(id, entry string) string {
	return fmt.Sprintf(`{"id": %q, "name": %q, "version": "1.0.0", "type": "hook", "entryRef": %q}`, id, id, entry)
}

// recorder is a capability object that counts its lifecycle calls.
type recorder struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
}

func (r *recorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return r.startErr
}

func (r *recorder) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func returning(obj interface{}) EntryFunc {
	return func(PluginAPI) (interface{}, error) { return obj, nil }
}

func failing(msg string) EntryFunc {
	return func(PluginAPI) (interface{}, error) { return nil, errors.New(msg) }
}

type fakeMounter struct {
	mu     sync.Mutex
	mounts map[string][]server.Route
	err    error
}

func (m *fakeMounter) Mount(owner string, routes []server.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.mounts == nil {
		m.mounts = map[string][]server.Route{}
	}
	m.mounts[owner] = routes
	return nil
}
