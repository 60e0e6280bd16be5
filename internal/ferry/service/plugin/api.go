package plugin

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/sirupsen/logrus"
)

// PluginAPI is the capability handle given to a plugin's entry point. A new
// one is created for every activation.
type PluginAPI interface {
	// ID returns the plugin id.
	ID() string

	// Config returns the resolved configuration, defaults applied.
	Config() map[string]interface{}

	// Logger returns a logger bound to the plugin.
	Logger() *logrus.Entry

	// RegisterEndpoint queues a route group mounted under prefix once the
	// entry point returns. All queued groups are mounted together or not at all.
	RegisterEndpoint(prefix string, install func(r gin.IRouter))

	// RegisterHook queues a handler attached when the plugin starts.
	RegisterHook(event HookEvent, handler HookHandler)

	// FireHooks runs the hooks of all started plugins for event.
	FireHooks(ctx context.Context, event HookEvent, data interface{}) error

	// AgentProcessor returns the agent request processor.
	AgentProcessor() service.Processor

	// Interrupts returns the session interrupt registry.
	Interrupts() *session.InterruptRegistry
}

type pendingHook struct {
	event   HookEvent
	handler HookHandler
}

// pluginAPIImpl collects registrations for the manager.
type pluginAPIImpl struct {
	id         string
	config     map[string]interface{}
	log        *logrus.Entry
	bus        *HookBus
	processor  service.Processor
	interrupts *session.InterruptRegistry

	mu     sync.Mutex
	routes []server.Route
	hooks  []pendingHook
}

var _ PluginAPI = (*pluginAPIImpl)(nil)

func newPluginAPI(id string, config map[string]interface{}, bus *HookBus,
	processor service.Processor, interrupts *session.InterruptRegistry) *pluginAPIImpl {
	return &pluginAPIImpl{
		id:         id,
		config:     config,
		log:        logger.WithField("plugin", id),
		bus:        bus,
		processor:  processor,
		interrupts: interrupts,
	}
}

func (a *pluginAPIImpl) ID() string                             { return a.id }
func (a *pluginAPIImpl) Config() map[string]interface{}         { return a.config }
func (a *pluginAPIImpl) Logger() *logrus.Entry                  { return a.log }
func (a *pluginAPIImpl) AgentProcessor() service.Processor      { return a.processor }
func (a *pluginAPIImpl) Interrupts() *session.InterruptRegistry { return a.interrupts }

func (a *pluginAPIImpl) RegisterEndpoint(prefix string, install func(r gin.IRouter)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, server.Route{Prefix: prefix, Install: install})
}

func (a *pluginAPIImpl) RegisterHook(event HookEvent, handler HookHandler) {
	if !ValidHookEvent(event) {
		a.log.Warnf("[Plugin] unknown hook event %q ignored", event)
		return
	}
	if handler == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, pendingHook{event: event, handler: handler})
}

func (a *pluginAPIImpl) FireHooks(ctx context.Context, event HookEvent, data interface{}) error {
	return a.bus.Fire(ctx, event, data)
}

func (a *pluginAPIImpl) endpoints() []server.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]server.Route(nil), a.routes...)
}

func (a *pluginAPIImpl) attachHooks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.hooks {
		a.bus.Add(a.id, h.event, h.handler)
	}
	return len(a.hooks)
}
