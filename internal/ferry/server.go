package ferry

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kiosk404/ferry/internal/ferry/config"
	"github.com/kiosk404/ferry/internal/ferry/handler/middleware"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/remote"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin/builtin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin/script"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	genericoptions "github.com/kiosk404/ferry/internal/pkg/options"
	genericapiserver "github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/kiosk404/ferry/pkg/logger"
)

type apiServer struct {
	genericAPIServer *genericapiserver.GenericAPIServer

	processor  *remote.Client
	interrupts *session.InterruptRegistry
	store      plugin.ConfigStore
	manager    *plugin.Manager
	watcher    *plugin.ConfigWatcher
	authConfig *middleware.AuthConfig
}

type preparedAPIServer struct {
	*apiServer
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	agentOpts := cfg.AgentOptions
	processor := remote.NewClient(agentOpts.BaseURL, agentOpts.APIKey, nil)
	var upstream service.Interrupter
	if agentOpts.ForwardInterrupts {
		upstream = processor
	}
	interrupts := session.NewInterruptRegistry(upstream)
	logger.Info("[Ferry] agent service at %s (forward interrupts: %v)", agentOpts.BaseURL, agentOpts.ForwardInterrupts)

	server := &apiServer{
		genericAPIServer: genericServer,
		processor:        processor,
		interrupts:       interrupts,
		authConfig: &middleware.AuthConfig{
			Enabled: true,
			Token:   cfg.GenericServerRunOptions.AdminToken,
		},
	}

	pluginOpts := cfg.PluginOptions
	if !pluginOpts.Enabled {
		logger.Info("[Ferry] plugin system disabled (plugins.enabled=false), no channel is served")
		return server, nil
	}

	store, err := openConfigStore(pluginOpts)
	if err != nil {
		return nil, err
	}

	loader := plugin.NewSchemeLoader().
		Handle(plugin.SchemeBuiltin, builtin.NewInTreeRegistry()).
		Handle(script.Scheme, script.NewLoader())

	managerCfg := &plugin.Config{
		Roots:      plugin.SearchRoots(pluginOpts.BundledDir, pluginOpts.InstalledDir, pluginOpts.ExtraPaths),
		Store:      store,
		Loader:     loader,
		Mounter:    genericServer.Mux,
		Processor:  processor,
		Interrupts: interrupts,
	}
	manager, err := managerCfg.Complete().New()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create plugin manager: %w", err)
	}
	if err := manager.LoadAll(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}
	server.store = store
	server.manager = manager

	if pluginOpts.Watch && pluginOpts.ConfigStore == genericoptions.ConfigStoreFile {
		watcher, err := plugin.NewConfigWatcher(pluginOpts.ConfigFile, func() {
			if err := manager.Reconcile(context.Background()); err != nil {
				logger.Error("[Ferry] reconcile plugins: %v", err)
			}
		})
		if err != nil {
			logger.Warn("[Ferry] config watcher disabled: %v", err)
		} else {
			server.watcher = watcher
		}
	}

	return server, nil
}

func openConfigStore(opts *genericoptions.PluginsOptions) (plugin.ConfigStore, error) {
	if opts.ConfigStore == genericoptions.ConfigStoreBoltDB {
		store, err := plugin.OpenBoltConfigStore(opts.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin config store %q: %w", opts.BoltDBPath, err)
		}
		logger.Info("[Ferry] plugin config in boltdb %s", opts.BoltDBPath)
		return store, nil
	}
	logger.Info("[Ferry] plugin config in %s", opts.ConfigFile)
	return plugin.NewFileConfigStore(opts.ConfigFile), nil
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		manager:    s.manager,
		processor:  s.processor,
		interrupts: s.interrupts,
		authConfig: s.authConfig,
	})
	return preparedAPIServer{s}
}

// Run serves until SIGINT or SIGTERM, then stops plugins and drains the
// http server.
func (s preparedAPIServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("[Ferry] shutting down")
		s.shutdown()
	}()

	err := s.genericAPIServer.Run()
	stop()
	<-done
	return err
}

func (s preparedAPIServer) shutdown() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.manager != nil {
		s.manager.StopAll(context.Background())
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("[Ferry] close plugin config store: %v", err)
		}
	}
	s.genericAPIServer.Close()
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericapiserver.Config, lastErr error) {
	genericConfig = genericapiserver.NewConfig()
	if lastErr = cfg.ApplyTo(genericConfig); lastErr != nil {
		return
	}

	return
}
