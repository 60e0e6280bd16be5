package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/kiosk404/ferry/pkg/logger"
)

// HookEvent identifies a point in a turn that plugins can subscribe to.
type HookEvent string

const (
	// HookPreQuery fires before the agent request is sent. Handlers receive
	// a *QueryHookPayload and may rewrite Prompt or Skill.
	HookPreQuery HookEvent = "pre_query"

	// HookPostQuery fires after the turn completed. Result holds the text
	// that was delivered, if any.
	HookPostQuery HookEvent = "post_query"

	// HookMessageReceived fires when a channel accepted an inbound message.
	HookMessageReceived HookEvent = "message_received"
)

// ValidHookEvent reports whether e is a known event.
func ValidHookEvent(e HookEvent) bool {
	switch e {
	case HookPreQuery, HookPostQuery, HookMessageReceived:
		return true
	}
	return false
}

// HookHandler is the callback for a hook event.
// The data parameter is event-specific; plugins should type-assert as needed.
type HookHandler func(ctx context.Context, data interface{}) error

// QueryHookPayload is the data of the query events.
type QueryHookPayload struct {
	Channel           string
	ExternalSessionID string
	AgentSessionID    string
	Prompt            string
	Skill             string
	Result            string
}

// HookBus holds the hooks of started plugins per event, in attach order.
type HookBus struct {
	mu    sync.RWMutex
	hooks map[HookEvent][]hookEntry
}

type hookEntry struct {
	pluginID string
	handler  HookHandler
}

// NewHookBus creates an empty bus.
func NewHookBus() *HookBus {
	return &HookBus{hooks: make(map[HookEvent][]hookEntry)}
}

// Add appends a handler owned by pluginID.
func (b *HookBus) Add(pluginID string, event HookEvent, handler HookHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks[event] = append(b.hooks[event], hookEntry{pluginID: pluginID, handler: handler})
}

// RemovePlugin drops every handler owned by pluginID and returns how many.
func (b *HookBus) RemovePlugin(pluginID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for event, entries := range b.hooks {
		kept := entries[:0:0]
		for _, e := range entries {
			if e.pluginID == pluginID {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		b.hooks[event] = kept
	}
	return removed
}

// Len returns the number of handlers for event.
func (b *HookBus) Len(event HookEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hooks[event])
}

// Fire calls the handlers of event in order. Every handler runs; the first
// error is returned. A panicking handler counts as an error.
func (b *HookBus) Fire(ctx context.Context, event HookEvent, data interface{}) error {
	b.mu.RLock()
	entries := append([]hookEntry(nil), b.hooks[event]...)
	b.mu.RUnlock()

	var firstErr error
	for _, e := range entries {
		if err := callHook(ctx, e, data); err != nil {
			logger.Warn("[Hook] %s hook of %q failed: %v", event, e.pluginID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func callHook(ctx context.Context, e hookEntry, data interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return e.handler(ctx, data)
}
