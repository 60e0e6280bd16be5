package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/kiosk404/ferry/pkg/utils/json"
	"github.com/tidwall/jsonc"
)

// PluginsConfig is the persisted enablement state.
type PluginsConfig struct {
	Enabled []string                          `json:"enabled"`
	Plugins map[string]map[string]interface{} `json:"plugins"`
}

// NewPluginsConfig returns empty defaults.
func NewPluginsConfig() *PluginsConfig {
	return &PluginsConfig{
		Enabled: []string{},
		Plugins: map[string]map[string]interface{}{},
	}
}

// IsEnabled reports whether id is on the enabled list.
func (c *PluginsConfig) IsEnabled(id string) bool {
	return slices.Contains(c.Enabled, id)
}

// SetEnabled adds or removes id and reports whether the list changed.
func (c *PluginsConfig) SetEnabled(id string, enabled bool) bool {
	idx := slices.Index(c.Enabled, id)
	switch {
	case enabled && idx < 0:
		c.Enabled = append(c.Enabled, id)
		return true
	case !enabled && idx >= 0:
		c.Enabled = slices.Delete(c.Enabled, idx, idx+1)
		return true
	}
	return false
}

// PluginConfig returns the stored config of id, never nil.
func (c *PluginsConfig) PluginConfig(id string) map[string]interface{} {
	if cfg, ok := c.Plugins[id]; ok && cfg != nil {
		return cfg
	}
	return map[string]interface{}{}
}

func (c *PluginsConfig) normalize() *PluginsConfig {
	if c.Enabled == nil {
		c.Enabled = []string{}
	}
	if c.Plugins == nil {
		c.Plugins = map[string]map[string]interface{}{}
	}
	return c
}

// ConfigStore persists PluginsConfig. Load never fails on bad content: a
// missing or corrupt source yields defaults.
type ConfigStore interface {
	Load() (*PluginsConfig, error)
	Save(cfg *PluginsConfig) error
	Close() error
}

// FileConfigStore keeps the config in a JSON file. Comments and trailing
// commas are accepted on read.
type FileConfigStore struct {
	mu   sync.Mutex
	path string
}

var _ ConfigStore = (*FileConfigStore)(nil)

// NewFileConfigStore returns a store backed by path. The file is created on
// the first Save.
func NewFileConfigStore(path string) *FileConfigStore {
	return &FileConfigStore{path: path}
}

// Path returns the backing file.
func (s *FileConfigStore) Path() string { return s.path }

func (s *FileConfigStore) Load() (*PluginsConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewPluginsConfig(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodePluginsConfig(data, s.path), nil
}

func (s *FileConfigStore) Save(cfg *PluginsConfig) error {
	data, err := json.MarshalIndent(cfg.normalize(), "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileConfigStore) Close() error { return nil }

func decodePluginsConfig(data []byte, origin string) *PluginsConfig {
	cfg := NewPluginsConfig()
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		logger.Warn("[ConfigStore] %s is corrupt, using defaults: %v", origin, err)
		return NewPluginsConfig()
	}
	return cfg.normalize()
}
