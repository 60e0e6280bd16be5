package session

import (
	"context"
	"sync"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/pkg/logger"
)

const upstreamInterruptTimeout = 5 * time.Second

// Turn manages the cancellation of one in-flight agent turn.
type Turn struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	down   bool
}

// Context returns the controlled context.
// Use this context for all downstream operations of the turn.
func (t *Turn) Context() context.Context {
	return t.ctx
}

// Abort cancels the turn. It reports true only for the call that actually
// cancelled it; later calls are no-ops.
func (t *Turn) Abort() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.down || t.ctx.Err() != nil {
		return false
	}
	t.down = true
	t.cancel()
	return true
}

// IsAborted returns true if the turn was aborted.
func (t *Turn) IsAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.down
}

// CleanUp releases the context resources.
func (t *Turn) CleanUp() {
	t.cancel()
}

// InterruptRegistry tracks in-flight turns by agent session id so that a
// session can be interrupted from a stop command or the admin surface.
type InterruptRegistry struct {
	mu       sync.Mutex
	turns    map[string]*Turn
	upstream service.Interrupter
}

// NewInterruptRegistry creates a registry. upstream may be nil; when set,
// interrupts are also forwarded to the agent backend.
func NewInterruptRegistry(upstream service.Interrupter) *InterruptRegistry {
	return &InterruptRegistry{
		turns:    make(map[string]*Turn),
		upstream: upstream,
	}
}

// Begin creates a turn derived from parent. It is not interruptible until bound.
func (r *InterruptRegistry) Begin(parent context.Context) *Turn {
	ctx, cancel := context.WithCancel(parent)
	return &Turn{ctx: ctx, cancel: cancel}
}

// Bind makes t interruptible as sessionID. The returned release func
// unregisters it, unless another turn took the id over in the meantime.
func (r *InterruptRegistry) Bind(sessionID string, t *Turn) (release func()) {
	r.mu.Lock()
	r.turns[sessionID] = t
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.turns[sessionID] == t {
			delete(r.turns, sessionID)
		}
	}
}

// Active reports whether sessionID has a bound, running turn.
func (r *InterruptRegistry) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turns[sessionID]
	return ok && !t.IsAborted()
}

// Interrupt cancels sessionID's running turn. It reports true when a local
// turn was cancelled by this call or the agent backend confirmed the interrupt.
func (r *InterruptRegistry) Interrupt(ctx context.Context, sessionID string) bool {
	r.mu.Lock()
	t, ok := r.turns[sessionID]
	r.mu.Unlock()

	local := ok && t.Abort()
	if local {
		logger.Info("[Interrupt] aborted running turn of session %s", sessionID)
	}

	if r.upstream == nil {
		return local
	}
	ctx, cancel := context.WithTimeout(ctx, upstreamInterruptTimeout)
	defer cancel()
	remote, err := r.upstream.Interrupt(ctx, sessionID)
	if err != nil {
		logger.Warn("[Interrupt] forward interrupt of session %s failed: %v", sessionID, err)
	}
	return local || remote
}
