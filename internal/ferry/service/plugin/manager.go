package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/kiosk404/ferry/pkg/logger"
)

// Mounter mounts a plugin's endpoint groups on the host, all or none.
type Mounter interface {
	Mount(owner string, routes []server.Route) error
}

// Config holds the configuration for creating a Manager.
// Follows the Config → Complete() → New() pattern.
type Config struct {
	// Roots are scanned in order; earlier roots win on duplicate ids.
	Roots []Root

	// InstalledDir receives plugins copied by InstallPlugin.
	InstalledDir string

	Store      ConfigStore
	Loader     Loader
	Mounter    Mounter
	Processor  service.Processor
	Interrupts *session.InterruptRegistry
}

// CompletedConfig is the validated and completed manager configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults.
func (c *Config) Complete() CompletedConfig {
	if c.InstalledDir == "" {
		for _, r := range c.Roots {
			if r.Source == SourceInstalled {
				c.InstalledDir = r.Dir
				break
			}
		}
	}
	if c.Interrupts == nil {
		c.Interrupts = session.NewInterruptRegistry(nil)
	}
	return CompletedConfig{c}
}

// New creates a Manager from the completed configuration.
func (c CompletedConfig) New() (*Manager, error) {
	if c.Store == nil {
		return nil, errors.New("plugin manager: config store is required")
	}
	if c.Loader == nil {
		return nil, errors.New("plugin manager: loader is required")
	}
	if c.Mounter == nil {
		return nil, errors.New("plugin manager: mounter is required")
	}
	return &Manager{
		roots:        c.Roots,
		installedDir: c.InstalledDir,
		store:        c.Store,
		mounter:      c.Mounter,
		processor:    c.Processor,
		interrupts:   c.Interrupts,
		registry:     NewRegistry(),
		lifecycle:    NewLifecycle(c.Loader),
		hooks:        NewHookBus(),
	}, nil
}

// Manager composes discovery, the registry, the lifecycle and the persisted
// enablement config. Activation and admin operations are serialized.
type Manager struct {
	mu sync.Mutex

	roots        []Root
	installedDir string
	store        ConfigStore
	mounter      Mounter
	processor    service.Processor
	interrupts   *session.InterruptRegistry

	registry  *Registry
	lifecycle *Lifecycle
	hooks     *HookBus
}

// Detail is Info plus the persisted config.
type Detail struct {
	Info
	Config map[string]interface{} `json:"config"`
}

// Registry returns the underlying plugin registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Hooks returns the hook bus of started plugins.
func (m *Manager) Hooks() *HookBus { return m.hooks }

// LoadAll discovers every plugin and activates the enabled ones one by one.
// A plugin that fails to activate is left in state error; the others go on.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inst := range Discover(m.roots) {
		_ = m.registry.Register(inst)
	}

	cfg, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load plugin config: %w", err)
	}

	started := 0
	for _, inst := range m.registry.All() {
		inst.setEnabled(cfg.IsEnabled(inst.ID()))
		if !inst.Enabled() || inst.State() == StateStarted {
			continue
		}
		if err := m.activate(ctx, inst, cfg); err != nil {
			logger.Error("[Manager] %v", err)
			continue
		}
		started++
	}
	logger.Info("[Manager] %d plugins discovered, %d started", m.registry.Len(), started)
	return nil
}

// StopAll stops started plugins in reverse registration order.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.registry.All()
	for i := len(all) - 1; i >= 0; i-- {
		m.deactivate(ctx, all[i])
	}
}

// EnablePlugin puts id on the enabled list and activates it unless it is
// already started. The returned error wraps ErrActivation when the change
// was persisted but activation failed.
func (m *Manager) EnablePlugin(ctx context.Context, id string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.registry.Get(id)
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}

	cfg, err := m.store.Load()
	if err != nil {
		return inst.Info(), err
	}
	if cfg.SetEnabled(id, true) {
		if err := m.store.Save(cfg); err != nil {
			return inst.Info(), fmt.Errorf("save plugin config: %w", err)
		}
	}
	inst.setEnabled(true)

	if inst.State() != StateStarted {
		if err := m.activate(ctx, inst, cfg); err != nil {
			return inst.Info(), err
		}
	}
	logger.Info("[Manager] enabled %q", id)
	return inst.Info(), nil
}

// DisablePlugin removes id from the enabled list and stops it. Endpoints it
// mounted stay in place until the process restarts.
func (m *Manager) DisablePlugin(ctx context.Context, id string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.registry.Get(id)
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}

	cfg, err := m.store.Load()
	if err != nil {
		return inst.Info(), err
	}
	if cfg.SetEnabled(id, false) {
		if err := m.store.Save(cfg); err != nil {
			return inst.Info(), fmt.Errorf("save plugin config: %w", err)
		}
	}
	inst.setEnabled(false)

	if err := m.deactivate(ctx, inst); err != nil {
		return inst.Info(), err
	}
	logger.Info("[Manager] disabled %q", id)
	return inst.Info(), nil
}

// UpdatePluginConfig validates cfg against the plugin's schema and replaces
// the stored config. It applies on the next activation.
func (m *Manager) UpdatePluginConfig(id string, pluginCfg map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if pluginCfg == nil {
		pluginCfg = map[string]interface{}{}
	}
	if schema := inst.Manifest().ConfigSchema; schema != nil {
		if _, err := schema.Resolve(pluginCfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	cfg, err := m.store.Load()
	if err != nil {
		return err
	}
	cfg.Plugins[id] = pluginCfg
	if err := m.store.Save(cfg); err != nil {
		return fmt.Errorf("save plugin config: %w", err)
	}
	logger.Info("[Manager] updated config of %q, applies on next activation", id)
	return nil
}

// InstallPlugin copies the plugin at srcPath into the installed root and
// registers it. It is not enabled.
func (m *Manager) InstallPlugin(ctx context.Context, srcPath string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.installedDir == "" {
		return Info{}, errors.New("no installed plugin directory configured")
	}

	candidate, err := DiscoverSingle(srcPath, SourceInstalled)
	if err != nil {
		return Info{}, err
	}
	id := candidate.ID()
	if m.registry.Has(id) {
		return Info{}, fmt.Errorf("%w: %s", ErrPluginExists, id)
	}

	inst, err := InstallTree(candidate.Path(), m.installedDir)
	if err != nil {
		return Info{}, err
	}
	if err := m.registry.Register(inst); err != nil {
		return Info{}, err
	}
	logger.Info("[Manager] installed %q into %s", id, inst.Path())
	return inst.Info(), nil
}

// GetPluginInfo returns the snapshot and the stored config of id.
func (m *Manager) GetPluginInfo(id string) (Detail, error) {
	inst, ok := m.registry.Get(id)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	cfg, err := m.store.Load()
	if err != nil {
		return Detail{}, err
	}
	return Detail{Info: inst.Info(), Config: cfg.PluginConfig(id)}, nil
}

// ListPlugins returns a snapshot of every plugin in registration order.
func (m *Manager) ListPlugins() []Info {
	all := m.registry.All()
	result := make([]Info, 0, len(all))
	for _, inst := range all {
		result = append(result, inst.Info())
	}
	return result
}

// Reconcile re-reads the store and applies enablement changes made outside
// the manager.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.store.Load()
	if err != nil {
		return err
	}

	for _, inst := range m.registry.All() {
		want := cfg.IsEnabled(inst.ID())
		if want == inst.Enabled() {
			continue
		}
		inst.setEnabled(want)
		if want {
			logger.Info("[Manager] %q enabled externally", inst.ID())
			if inst.State() != StateStarted {
				if err := m.activate(ctx, inst, cfg); err != nil {
					logger.Error("[Manager] %v", err)
				}
			}
			continue
		}
		logger.Info("[Manager] %q disabled externally", inst.ID())
		if err := m.deactivate(ctx, inst); err != nil {
			logger.Error("[Manager] %v", err)
		}
	}
	return nil
}

// activate runs load, config resolution, register, mount, hook attach and
// start. The first failure leaves the instance in state error. Must be
// called with m.mu held.
func (m *Manager) activate(ctx context.Context, inst *Instance, cfg *PluginsConfig) error {
	id := inst.ID()
	wrap := func(err error) error {
		return fmt.Errorf("%w: %s: %v", ErrActivation, id, err)
	}

	if err := m.lifecycle.Load(inst); err != nil {
		return wrap(err)
	}

	resolved := cfg.PluginConfig(id)
	if schema := inst.Manifest().ConfigSchema; schema != nil {
		var err error
		if resolved, err = schema.Resolve(resolved); err != nil {
			m.lifecycle.Fail(inst, err)
			return wrap(err)
		}
	}

	api := newPluginAPI(id, resolved, m.hooks, m.processor, m.interrupts)
	if err := m.lifecycle.Register(inst, api); err != nil {
		return wrap(err)
	}

	if routes := api.endpoints(); len(routes) > 0 {
		if err := m.mounter.Mount(id, routes); err != nil {
			m.lifecycle.Fail(inst, err)
			m.lifecycle.Release(ctx, inst)
			return wrap(err)
		}
		logger.Info("[Manager] mounted %d endpoint groups for %q", len(routes), id)
	}

	api.attachHooks()
	if err := m.lifecycle.Start(ctx, inst); err != nil {
		m.hooks.RemovePlugin(id)
		m.lifecycle.Release(ctx, inst)
		return wrap(err)
	}
	return nil
}

// deactivate stops inst if it is started and drops its hooks. Must be
// called with m.mu held.
func (m *Manager) deactivate(ctx context.Context, inst *Instance) error {
	if inst.State() != StateStarted {
		return nil
	}
	m.hooks.RemovePlugin(inst.ID())
	return m.lifecycle.Stop(ctx, inst)
}
