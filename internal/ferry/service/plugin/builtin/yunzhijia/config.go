package yunzhijia

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DefaultNotifyURL is the robot webhook; %s receives the yzj token.
const DefaultNotifyURL = "https://www.yunzhijia.com/gateway/robot/webhook/send?yzjtype=0&yzjtoken=%s"

// Config is the plugin configuration stored under plugins.yunzhijia.
type Config struct {
	DefaultSkill   string            `mapstructure:"default_skill"`
	SessionTimeout int               `mapstructure:"session_timeout"`
	CardTemplateID string            `mapstructure:"card_template_id"`
	MaxImgPerCard  int               `mapstructure:"max_img_per_card"`
	ServiceBaseURL string            `mapstructure:"service_base_url"`
	Verbose        bool              `mapstructure:"verbose"`
	NotifyURL      string            `mapstructure:"notify_url"`
	KBRoot         string            `mapstructure:"kb_root"`
	TenantID       string            `mapstructure:"tenant_id"`
	FAQ            map[string]string `mapstructure:"faq"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultSkill:   "customer-service",
		SessionTimeout: 3600,
		MaxImgPerCard:  3,
		ServiceBaseURL: "http://localhost:9090",
		NotifyURL:      DefaultNotifyURL,
		KBRoot:         "data/kb",
		TenantID:       "yzj",
		FAQ: map[string]string{
			"你好，你能做什么呢?": `"0幻觉"回答发票云知识`,
			"你好":          `"你好，我可0幻觉"回答发票云知识，请有什么可以帮助您`,
			"你能做什么":       `"0幻觉"回答发票云知识`,
			"能做什么":        `"0幻觉"回答发票云知识`,
		},
	}
}

// ParseConfig overlays raw on the defaults. Numbers given as floats, as
// JSON decoding produces them, are accepted for integer fields.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode yunzhijia config: %w", err)
	}
	if cfg.MaxImgPerCard <= 0 {
		cfg.MaxImgPerCard = 1
	}
	if cfg.SessionTimeout <= 0 {
		return nil, fmt.Errorf("session_timeout must be positive, got %d", cfg.SessionTimeout)
	}
	return cfg, nil
}

// Timeout returns the session timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.SessionTimeout) * time.Second
}
