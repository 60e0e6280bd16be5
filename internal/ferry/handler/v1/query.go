package v1

import (
	"errors"
	"io"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/pkg/core"
	"github.com/kiosk404/ferry/pkg/errorx"
	"github.com/kiosk404/ferry/pkg/logger"
)

// QueryHandler passes a query through to the agent service and streams the
// events back as server-sent events.
type QueryHandler struct {
	processor service.Processor
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(processor service.Processor) *QueryHandler {
	return &QueryHandler{processor: processor}
}

// Handle handles POST /api/query.
func (h *QueryHandler) Handle(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPromptEmpty, "query request"), nil)
		return
	}

	ctx := c.Request.Context()
	stream, err := h.processor.Process(ctx, &entity.QueryRequest{
		Prompt:    req.Prompt,
		Skill:     req.Skill,
		TenantID:  req.TenantID,
		Language:  req.Language,
		SessionID: req.SessionID,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrAgentQuery, "start agent query"), nil)
		return
	}
	defer stream.Close()

	c.Writer.Header().Set("Content-Type", sse.ContentType)
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(200)

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("[API] query stream failed: %v", err)
				_ = sse.Encode(c.Writer, sse.Event{
					Event: string(entity.EventError),
					Data:  entity.AgentEvent{Type: entity.EventError, Error: err.Error()},
				})
				c.Writer.Flush()
			}
			return
		}
		if ev == nil {
			continue
		}
		if err := sse.Encode(c.Writer, sse.Event{Event: string(ev.Type), Data: ev}); err != nil {
			logger.Warn("[API] write query event: %v", err)
			return
		}
		c.Writer.Flush()
	}
}
