package session

import (
	"sort"
	"sync"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/pkg/clock"
	"github.com/kiosk404/ferry/pkg/logger"
)

// DefaultTimeout is the inactivity timeout used when none is configured.
const DefaultTimeout = time.Hour

// Info is the state kept for one external session.
type Info struct {
	AgentSessionID   string
	LastActive       time.Time
	PendingQuestions []entity.Question
}

// Mapper maps a channel's external session ids to agent session ids and
// evicts entries idle for longer than the timeout. Safe for concurrent use.
type Mapper struct {
	mu        sync.Mutex
	channelID string
	timeout   time.Duration
	clock     clock.Clock
	sessions  map[string]*Info
}

// NewMapper creates a Mapper for channelID. A nil clock means wall time.
func NewMapper(channelID string, timeout time.Duration, clk clock.Clock) *Mapper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Mapper{
		channelID: channelID,
		timeout:   timeout,
		clock:     clk,
		sessions:  make(map[string]*Info),
	}
}

// ChannelID returns the channel the mapper belongs to.
func (m *Mapper) ChannelID() string { return m.channelID }

// Timeout returns the inactivity timeout.
func (m *Mapper) Timeout() time.Duration { return m.timeout }

// GetOrCreate returns the agent session mapped to externalID. An empty result
// means the caller must start a new agent session; an expired entry is
// removed on the way.
func (m *Mapper) GetOrCreate(externalID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.sessions[externalID]
	if !ok {
		return ""
	}
	if m.clock.Now().Sub(info.LastActive) > m.timeout {
		delete(m.sessions, externalID)
		logger.Info("[Session] %s session %s expired, agent session %s dropped", m.channelID, externalID, info.AgentSessionID)
		return ""
	}
	return info.AgentSessionID
}

// UpdateActivity maps externalID to agentSessionID and marks it active now.
func (m *Mapper) UpdateActivity(externalID, agentSessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if info, ok := m.sessions[externalID]; ok {
		info.AgentSessionID = agentSessionID
		info.LastActive = now
		return
	}
	m.sessions[externalID] = &Info{AgentSessionID: agentSessionID, LastActive: now}
}

// CleanupExpired removes every entry idle for longer than the timeout and
// returns how many were removed.
func (m *Mapper) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for id, info := range m.sessions {
		if now.Sub(info.LastActive) > m.timeout {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("[Session] %s cleaned up %d expired session(s)", m.channelID, removed)
	}
	return removed
}

// SetPendingQuestions stores questions awaiting an answer. It does nothing
// when externalID has no entry.
func (m *Mapper) SetPendingQuestions(externalID string, questions []entity.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.sessions[externalID]; ok {
		info.PendingQuestions = questions
	}
}

// GetAndClearPendingQuestions returns the pending questions and clears them.
func (m *Mapper) GetAndClearPendingQuestions(externalID string) []entity.Question {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.sessions[externalID]
	if !ok {
		return nil
	}
	q := info.PendingQuestions
	info.PendingQuestions = nil
	return q
}

// Remove drops externalID's entry.
func (m *Mapper) Remove(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, externalID)
}

// Len returns the number of tracked sessions, expired ones included.
func (m *Mapper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats is the read-only statistics view served by channel endpoints.
type Stats struct {
	ChannelID             string        `json:"channel_id"`
	TotalSessions         int           `json:"total_sessions"`
	SessionTimeoutSeconds int64         `json:"session_timeout_seconds"`
	Sessions              []SessionStat `json:"sessions"`
}

// SessionStat describes one tracked session.
type SessionStat struct {
	ExternalSessionID string `json:"external_session_id"`
	AgentSessionID    string `json:"agent_session_id"`
	InactiveSeconds   int64  `json:"inactive_seconds"`
	WillExpireIn      int64  `json:"will_expire_in"`
}

// Stats returns a snapshot ordered by external session id.
func (m *Mapper) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	out := Stats{
		ChannelID:             m.channelID,
		TotalSessions:         len(m.sessions),
		SessionTimeoutSeconds: int64(m.timeout / time.Second),
		Sessions:              make([]SessionStat, 0, len(m.sessions)),
	}
	for id, info := range m.sessions {
		inactive := now.Sub(info.LastActive)
		remaining := m.timeout - inactive
		if remaining < 0 {
			remaining = 0
		}
		out.Sessions = append(out.Sessions, SessionStat{
			ExternalSessionID: id,
			AgentSessionID:    info.AgentSessionID,
			InactiveSeconds:   int64(inactive / time.Second),
			WillExpireIn:      int64(remaining / time.Second),
		})
	}
	sort.Slice(out.Sessions, func(i, j int) bool {
		return out.Sessions[i].ExternalSessionID < out.Sessions[j].ExternalSessionID
	})
	return out
}
