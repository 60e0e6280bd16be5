package entity

// QueryRequest is the normalized request sent to the agent for one turn.
type QueryRequest struct {
	Prompt   string `json:"prompt"`
	Skill    string `json:"skill,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Language string `json:"language,omitempty"`
	// SessionID resumes an agent session; empty starts a new one.
	SessionID string `json:"session_id,omitempty"`
}
