package yunzhijia

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiosk404/ferry/internal/ferry/service/bridge"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/pkg/utils/safego"
)

const (
	ackMissingToken = "缺少 yzj_token 参数"
	ackBlank        = "请输入有效内容"
	ackReceived     = "收到，我马上探索最佳答案"
	ackQuietSuffix  = "（受限于云之家，过程信息不输出，请耐心等待...）"
	ackStopped      = "云之家助手已停用"
)

// handleChat acknowledges the robot message at once and answers it in the
// background through the notify webhook.
func (p *Plugin) handleChat(c *gin.Context) {
	token := c.Query("yzj_token")
	if token == "" {
		c.JSON(http.StatusOK, ack(false, ackMissingToken))
		return
	}

	// Routes stay mounted after a disable until the process restarts.
	base, running := p.baseContext()
	if !running {
		p.log.Warn("[YZJ] message refused, plugin is not running")
		c.JSON(http.StatusOK, ack(false, ackStopped))
		return
	}

	var msg RobotMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		p.log.Warnf("[YZJ] bad robot message: %v", err)
		c.JSON(http.StatusBadRequest, ack(false, "消息格式错误"))
		return
	}
	msg.SessionID = c.GetHeader("sessionId")

	if strings.TrimSpace(msg.Content) == "" {
		c.JSON(http.StatusOK, ack(true, ackBlank))
		return
	}

	in := bridge.Inbound{
		ExternalSessionID: msg.SessionID,
		Text:              msg.Content,
		Skill:             c.Query("skill"),
		RobotName:         msg.RobotName,
		Target: bridge.Target{
			Recipient: msg.OperatorOpenid,
			Extra:     map[string]string{TokenKey: token},
		},
	}
	log := p.log.WithField("req", uuid.NewString())
	log.Infof("[YZJ] message from %s (%s) session=%q", msg.OperatorName, msg.OperatorOpenid, msg.SessionID)

	safego.Go(base, func(ctx context.Context) {
		defer log.Debug("[YZJ] turn finished")
		received := &plugin.QueryHookPayload{
			Channel:           ID,
			ExternalSessionID: in.SessionKey(),
			Prompt:            in.Text,
			Skill:             in.Skill,
		}
		if err := p.api.FireHooks(ctx, plugin.HookMessageReceived, received); err != nil {
			log.Warnf("[YZJ] message_received hooks: %v", err)
		}
		p.translator.Handle(ctx, in)
	})

	text := ackReceived
	if !p.cfg.Verbose {
		text += ackQuietSuffix
	}
	c.JSON(http.StatusOK, ack(true, text))
}

func (p *Plugin) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, p.mapper.Stats())
}
