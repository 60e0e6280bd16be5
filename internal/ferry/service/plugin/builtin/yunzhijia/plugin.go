// Package yunzhijia is the in-tree channel plugin for Yunzhijia group robots.
package yunzhijia

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/service/bridge"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/kiosk404/ferry/pkg/clock"
	"github.com/sirupsen/logrus"
)

const (
	// ID is the plugin id and the session mapper channel id.
	ID = "yunzhijia"
	// Prefix is where the webhook routes are mounted.
	Prefix = "/yzj"

	sweepInterval = time.Minute
)

// Plugin is the Yunzhijia channel. It owns one session mapper and one
// translator for the lifetime of an activation.
type Plugin struct {
	api        plugin.PluginAPI
	cfg        *Config
	log        *logrus.Entry
	sender     *Sender
	mapper     *session.Mapper
	translator *bridge.Translator

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ plugin.ChannelPlugin = (*Plugin)(nil)
	_ plugin.Starter       = (*Plugin)(nil)
	_ plugin.Stopper       = (*Plugin)(nil)
)

// Entry is the registration function referenced as builtin:yunzhijia.
func Entry(api plugin.PluginAPI) (interface{}, error) {
	return newPlugin(api, nil, clock.Real())
}

func newPlugin(api plugin.PluginAPI, client *http.Client, clk clock.Clock) (*Plugin, error) {
	cfg, err := ParseConfig(api.Config())
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		api:    api,
		cfg:    cfg,
		log:    api.Logger(),
		sender: NewSender(cfg.NotifyURL, cfg.CardTemplateID, client),
		mapper: session.NewMapper(ID, cfg.Timeout(), clk),
	}

	policy := bridge.DefaultPolicy()
	policy.FAQ = cfg.FAQ
	policy.DefaultSkill = cfg.DefaultSkill
	policy.TenantID = cfg.TenantID
	policy.Verbose = cfg.Verbose
	policy.ImagesPerCard = cfg.MaxImgPerCard
	policy.AssetBaseURL = cfg.ServiceBaseURL
	policy.KBRoot = cfg.KBRoot

	p.translator, err = bridge.New(bridge.Config{
		Channel:      ID,
		Mapper:       p.mapper,
		Processor:    api.AgentProcessor(),
		Interrupts:   api.Interrupts(),
		Sender:       p.sender,
		Capabilities: p.Capabilities(),
		Policy:       policy,
		Hooks:        api,
	})
	if err != nil {
		return nil, err
	}

	api.RegisterEndpoint(Prefix, p.install)
	p.log.Infof("[YZJ] registered, skill=%s timeout=%s verbose=%v", cfg.DefaultSkill, cfg.Timeout(), cfg.Verbose)
	return p, nil
}

func (p *Plugin) install(r gin.IRouter) {
	r.POST("/chat", p.handleChat)
	r.GET("/stats", p.handleStats)
}

func (p *Plugin) Meta() plugin.ChannelMeta {
	return plugin.ChannelMeta{
		ID:          ID,
		Name:        "云之家",
		WebhookPath: Prefix + "/chat",
		Description: "Yunzhijia group robot channel",
	}
}

func (p *Plugin) Capabilities() plugin.ChannelCapabilities {
	return plugin.ChannelCapabilities{
		SendText:          true,
		SendImages:        true,
		SendCards:         true,
		ReceiveWebhook:    true,
		SessionManagement: true,
	}
}

// SendText sends text to an openid. extra must carry the robot token.
func (p *Plugin) SendText(ctx context.Context, recipient, text string, extra map[string]string) error {
	return p.sender.Send(ctx, bridge.Target{Recipient: recipient, Extra: extra}, bridge.Text(text))
}

// Mapper returns the session mapper of the channel.
func (p *Plugin) Mapper() *session.Mapper { return p.mapper }

// Start runs the periodic session sweep. Background turns started after
// Start are cancelled by Stop.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go p.sweep(p.ctx, p.done)
	return nil
}

// Stop halts the sweep and cancels in-flight turns.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.log.Info("[YZJ] stopped")
	return nil
}

func (p *Plugin) sweep(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.mapper.CleanupExpired(); n > 0 {
				p.log.Infof("[YZJ] evicted %d idle sessions", n)
			}
		}
	}
}

// baseContext returns the context of the current activation. ok is false
// before Start and after Stop.
func (p *Plugin) baseContext() (ctx context.Context, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return nil, false
	}
	return p.ctx, true
}
