package entity

// EventType identifies the type of a streaming agent event.
type EventType string

const (
	// EventHeartbeat keeps long streams alive and carries no payload.
	EventHeartbeat EventType = "heartbeat"

	// EventSessionCreated announces the agent session id of the turn.
	EventSessionCreated EventType = "session_created"

	// EventAssistantOutput is a chunk of assistant text, possibly tag-decorated.
	EventAssistantOutput EventType = "assistant_output"

	// EventInteractiveQuestion means the agent needs a clarification from the user.
	EventInteractiveQuestion EventType = "interactive_question"

	// EventTodosUpdate reports the agent's task list; channels ignore it.
	EventTodosUpdate EventType = "todos_update"

	// EventResult marks the end of the turn.
	EventResult EventType = "result"

	// EventError reports a failure of the turn.
	EventError EventType = "error"
)

// wireNames maps the agent backend's SSE event names to EventType.
var wireNames = map[string]EventType{
	"heartbeat":         EventHeartbeat,
	"session_created":   EventSessionCreated,
	"assistant_message": EventAssistantOutput,
	"assistant_output":  EventAssistantOutput,
	"ask_user_question": EventInteractiveQuestion,
	"todos_update":      EventTodosUpdate,
	"result":            EventResult,
	"error":             EventError,
}

// ParseEventType maps a wire event name. ok is false for unknown names.
func ParseEventType(name string) (EventType, bool) {
	t, ok := wireNames[name]
	return t, ok
}

// AgentEvent is a streaming event emitted during one agent turn.
//
// It flows through schema.Pipe[*AgentEvent] from the processor goroutine to
// the translator.
type AgentEvent struct {
	// Type identifies which kind of event this is.
	Type EventType `json:"type"`

	// SessionID is set on EventSessionCreated.
	SessionID string `json:"session_id,omitempty"`

	// Content is the text of EventAssistantOutput.
	Content string `json:"content,omitempty"`

	// Questions is set on EventInteractiveQuestion.
	Questions []Question `json:"questions,omitempty"`

	// Result is set on EventResult.
	Result *TurnResult `json:"result,omitempty"`

	// Error is the internal error message of EventError. It is never shown to channel users.
	Error string `json:"error,omitempty"`

	// ErrorType classifies EventError when the backend provides it.
	ErrorType string `json:"error_type,omitempty"`
}

// Question is one clarification request.
type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multiSelect,omitempty"`
}

// QuestionOption is one enumerated answer of a Question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// TurnResult summarizes a completed turn.
type TurnResult struct {
	SessionID  string `json:"session_id"`
	DurationMs int64  `json:"duration_ms"`
	NumTurns   int    `json:"num_turns"`
	IsError    bool   `json:"is_error"`
	Result     string `json:"result,omitempty"`
}
