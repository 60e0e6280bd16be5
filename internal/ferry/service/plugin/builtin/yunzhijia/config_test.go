package yunzhijia

import (
	"testing"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bridgeTarget(openid, token string) bridge.Target {
	return bridge.Target{Recipient: openid, Extra: map[string]string{TokenKey: token}}
}

func cardMessage(urls ...string) bridge.OutboundMessage {
	return bridge.OutboundMessage{Kind: bridge.KindCard, MediaURLs: urls}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "customer-service", cfg.DefaultSkill)
	assert.Equal(t, time.Hour, cfg.Timeout())
	assert.Equal(t, DefaultNotifyURL, cfg.NotifyURL)
	assert.Contains(t, cfg.FAQ, "你好")
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"session_timeout":  float64(120),
		"max_img_per_card": float64(0),
		"verbose":          true,
		"faq":              map[string]interface{}{"ping": "pong"},
		"unknown_key":      "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Timeout())
	assert.Equal(t, 1, cfg.MaxImgPerCard)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "pong", cfg.FAQ["ping"])
}

func TestParseConfig_Rejects(t *testing.T) {
	_, err := ParseConfig(map[string]interface{}{"session_timeout": float64(0)})
	assert.Error(t, err)
	_, err = ParseConfig(map[string]interface{}{"verbose": []interface{}{1}})
	assert.Error(t, err)
}

func TestBuildCard(t *testing.T) {
	card, err := buildCard("tpl", "open-1", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, card.MsgType)
	assert.Equal(t, "tpl", card.Param.BaseInfo.TemplateID)
	assert.JSONEq(t, `{"bigImageUrl":"a","bigImage1Url":"b","bigImage2Url":"c"}`, card.Param.BaseInfo.DataContent)
	assert.Equal(t, []string{"open-1"}, card.NotifyParams[0].Values)
}
