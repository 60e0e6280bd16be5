package plugin

import (
	"context"
)

// ChannelMeta describes a channel plugin.
type ChannelMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebhookPath string `json:"webhook_path"`
	Description string `json:"description"`
}

// ChannelCapabilities tells the host and the translator what a channel can send.
type ChannelCapabilities struct {
	SendText          bool `json:"send_text"`
	SendImages        bool `json:"send_images"`
	SendCards         bool `json:"send_cards"`
	ReceiveWebhook    bool `json:"receive_webhook"`
	SessionManagement bool `json:"session_management"`
}

// ChannelPlugin is the capability object of a plugin of type channel.
type ChannelPlugin interface {
	Meta() ChannelMeta
	Capabilities() ChannelCapabilities
	// SendText delivers text to recipient. extra carries channel specific
	// routing data such as tokens.
	SendText(ctx context.Context, recipient, text string, extra map[string]string) error
}
