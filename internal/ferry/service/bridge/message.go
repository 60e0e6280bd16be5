// Package bridge turns one inbound channel message into one agent turn and
// the agent's event stream into a bounded set of channel messages.
package bridge

import (
	"context"
)

// Kind is the shape of an outbound channel message.
type Kind string

const (
	KindText          Kind = "text"
	KindTextWithMedia Kind = "text-with-media"
	KindCard          Kind = "structured-card"
)

// OutboundMessage is produced by the translator and handed to the channel
// right away. It is never stored.
type OutboundMessage struct {
	Kind      Kind
	Text      string
	MediaURLs []string
}

// Text builds a plain text message.
func Text(s string) OutboundMessage {
	return OutboundMessage{Kind: KindText, Text: s}
}

// Target addresses the user a reply goes to. Extra holds channel specific
// routing data, such as a webhook token.
type Target struct {
	Recipient string
	Extra     map[string]string
}

// Sender delivers outbound messages for one channel.
type Sender interface {
	Send(ctx context.Context, target Target, msg OutboundMessage) error
}

// Inbound is one message received by a channel.
type Inbound struct {
	// ExternalSessionID is the platform's conversation id.
	ExternalSessionID string
	Text              string
	// Skill overrides the default skill when set.
	Skill string
	// RobotName is how users address the bot, without the leading @.
	RobotName string
	Target    Target
}

// SessionKey is the key used for session mapping and turn ordering. Without
// a platform session id, messages of one recipient share a session.
func (in Inbound) SessionKey() string {
	if in.ExternalSessionID != "" {
		return in.ExternalSessionID
	}
	return "recipient:" + in.Target.Recipient
}

func (in Inbound) robot() string {
	if in.RobotName != "" {
		return "@" + in.RobotName
	}
	return "@机器人"
}
