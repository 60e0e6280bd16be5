package v1

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/pkg/core"
	"github.com/kiosk404/ferry/pkg/errorx"
	"github.com/kiosk404/ferry/pkg/logger"
)

// SessionInterrupter cancels running agent turns by session id.
type SessionInterrupter interface {
	Interrupt(ctx context.Context, sessionID string) bool
}

// SessionHandler handles the session interrupt endpoint.
type SessionHandler struct {
	interrupts SessionInterrupter
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(interrupts SessionInterrupter) *SessionHandler {
	return &SessionHandler{interrupts: interrupts}
}

// Interrupt handles POST /api/interrupt/:session_id. Not finding a running
// turn is a normal outcome reported as success=false.
func (h *SessionHandler) Interrupt(c *gin.Context) {
	id := strings.TrimSpace(c.Param("session_id"))
	if id == "" {
		core.WriteResponse(c, errorx.WithCode(ErrSessionIDEmpty, "empty session id"), nil)
		return
	}
	ok := h.interrupts.Interrupt(c.Request.Context(), id)
	logger.Info("[API] interrupt session %s: success=%v", id, ok)
	core.WriteResponse(c, nil, InterruptResponse{Success: ok, SessionID: id})
}
