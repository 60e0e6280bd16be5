// Package remote talks to an agent service over HTTP: turns stream back as
// server-sent events.
package remote

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/kiosk404/ferry/pkg/utils/json"
)

const streamBuffer = 16

// Client is the HTTP client for the agent service /api/query endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

var (
	_ service.Processor   = (*Client)(nil)
	_ service.Interrupter = (*Client)(nil)
)

// NewClient creates a new client. Streams are long-lived, so the default
// http.Client has no timeout; cancel through the context instead.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
}

// wireEvent is the union of every SSE payload the agent service sends.
type wireEvent struct {
	SessionID  string            `json:"session_id"`
	Content    string            `json:"content"`
	Questions  []entity.Question `json:"questions"`
	DurationMs int64             `json:"duration_ms"`
	NumTurns   int               `json:"num_turns"`
	IsError    bool              `json:"is_error"`
	Result     string            `json:"result"`
	Message    string            `json:"message"`
	Type       string            `json:"type"`
}

// Process sends req and streams the turn's events.
func (c *Client) Process(ctx context.Context, req *entity.QueryRequest) (*schema.StreamReader[*entity.AgentEvent], error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(respBody))
	}

	sr, sw := schema.Pipe[*entity.AgentEvent](streamBuffer)
	go func() {
		defer resp.Body.Close()
		defer sw.Close()
		pump(ctx, resp.Body, sw)
	}()
	return sr, nil
}

// pump parses the SSE body and forwards events until EOF, a read error or
// the reader side is closed.
func pump(ctx context.Context, body io.Reader, sw *schema.StreamWriter[*entity.AgentEvent]) {
	scanner := bufio.NewScanner(body)
	// Increase buffer for large chunks
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		name string
		data strings.Builder
	)
	flush := func() bool {
		defer func() {
			name = ""
			data.Reset()
		}()
		if data.Len() == 0 && name == "" {
			return true
		}
		ev, ok := decodeEvent(name, data.String())
		if !ok {
			return true
		}
		return !sw.Send(ev, nil)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if !flush() {
				return
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	if !flush() {
		return
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		sw.Send(nil, fmt.Errorf("read stream: %w", err))
	}
}

func decodeEvent(name, data string) (*entity.AgentEvent, bool) {
	t, ok := entity.ParseEventType(name)
	if !ok {
		logger.Debug("[Agent] skip unknown event %q", name)
		return nil, false
	}

	var w wireEvent
	if data != "" {
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			logger.Warn("[Agent] malformed %q event payload: %v", name, err)
			if t != entity.EventError {
				return nil, false
			}
			w.Message = data
		}
	}

	ev := &entity.AgentEvent{Type: t}
	switch t {
	case entity.EventSessionCreated:
		ev.SessionID = w.SessionID
	case entity.EventAssistantOutput:
		ev.Content = w.Content
	case entity.EventInteractiveQuestion:
		ev.Questions = w.Questions
	case entity.EventResult:
		ev.Result = &entity.TurnResult{
			SessionID:  w.SessionID,
			DurationMs: w.DurationMs,
			NumTurns:   w.NumTurns,
			IsError:    w.IsError,
			Result:     w.Result,
		}
	case entity.EventError:
		ev.Error = w.Message
		ev.ErrorType = w.Type
	}
	return ev, true
}

// Interrupt asks the agent service to stop sessionID's running turn.
func (c *Client) Interrupt(ctx context.Context, sessionID string) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/interrupt/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return false, fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Success, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
