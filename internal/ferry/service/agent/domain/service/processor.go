package service

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
)

// Processor runs one agent turn and streams its events in order.
//
// The stream ends with io.EOF. Cancelling ctx aborts the turn; the reader then
// yields the context error or io.EOF. Callers must Close the reader.
type Processor interface {
	Process(ctx context.Context, req *entity.QueryRequest) (*schema.StreamReader[*entity.AgentEvent], error)
}

// Interrupter asks the agent backend to stop a session's running turn.
type Interrupter interface {
	Interrupt(ctx context.Context, sessionID string) (bool, error)
}
