package yunzhijia

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/kiosk404/ferry/pkg/clock"
	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/kiosk404/ferry/pkg/utils/json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAPI is a PluginAPI that mounts endpoints on a local engine.
type fakeAPI struct {
	config    map[string]interface{}
	processor service.Processor
	engine    *gin.Engine

	mu    sync.Mutex
	fired []plugin.HookEvent
}

func (a *fakeAPI) ID() string                             { return ID }
func (a *fakeAPI) Config() map[string]interface{}         { return a.config }
func (a *fakeAPI) Logger() *logrus.Entry                  { return logger.WithField("plugin", ID) }
func (a *fakeAPI) AgentProcessor() service.Processor      { return a.processor }
func (a *fakeAPI) Interrupts() *session.InterruptRegistry { return session.NewInterruptRegistry(nil) }

func (a *fakeAPI) RegisterEndpoint(prefix string, install func(r gin.IRouter)) {
	install(a.engine.Group(prefix))
}

func (a *fakeAPI) RegisterHook(plugin.HookEvent, plugin.HookHandler) {}

func (a *fakeAPI) FireHooks(_ context.Context, event plugin.HookEvent, _ interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fired = append(a.fired, event)
	return nil
}

// scriptedProcessor answers every turn with the same events.
type scriptedProcessor struct {
	events []*entity.AgentEvent

	mu    sync.Mutex
	calls int
}

func (p *scriptedProcessor) Process(context.Context, *entity.QueryRequest) (*schema.StreamReader[*entity.AgentEvent], error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return schema.StreamReaderFromArray(p.events), nil
}

func (p *scriptedProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type notified struct {
	token string
	body  map[string]interface{}
}

// notifyServer records what the plugin posts to the robot webhook.
type notifyServer struct {
	*httptest.Server
	mu   sync.Mutex
	msgs []notified
}

func newNotifyServer(t *testing.T) *notifyServer {
	s := &notifyServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(data, &body))
		s.mu.Lock()
		s.msgs = append(s.msgs, notified{token: r.URL.Query().Get("yzjtoken"), body: body})
		s.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *notifyServer) received() []notified {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notified(nil), s.msgs...)
}

type harness struct {
	plugin    *Plugin
	api       *fakeAPI
	processor *scriptedProcessor
	notify    *notifyServer
}

func newHarness(t *testing.T, cfg map[string]interface{}, events ...*entity.AgentEvent) *harness {
	t.Helper()
	h := &harness{
		processor: &scriptedProcessor{events: events},
		notify:    newNotifyServer(t),
	}
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	cfg["notify_url"] = h.notify.URL + "/send?yzjtoken=%s"
	h.api = &fakeAPI{config: cfg, processor: h.processor, engine: gin.New()}

	p, err := newPlugin(h.api, h.notify.Client(), clock.Real())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(context.Background()) })
	h.plugin = p
	return h
}

func (h *harness) post(t *testing.T, query, sessionID string, body interface{}) (*httptest.ResponseRecorder, ackResponse) {
	t.Helper()
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	default:
		var err error
		data, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, Prefix+"/chat"+query, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("sessionId", sessionID)
	}
	w := httptest.NewRecorder()
	h.api.engine.ServeHTTP(w, req)

	var resp ackResponse
	if w.Code == http.StatusOK || w.Code == http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func robotMsg(content string) RobotMsg {
	return RobotMsg{Type: 2, RobotName: "bot", OperatorName: "Ann", OperatorOpenid: "open-1", Content: content}
}

func TestWebhook_MissingToken(t *testing.T) {
	h := newHarness(t, nil)
	w, resp := h.post(t, "", "", robotMsg("hi"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, ackMissingToken, resp.Data.Content)
	assert.Equal(t, 2, resp.Data.Type)
}

func TestWebhook_BadBody(t *testing.T) {
	h := newHarness(t, nil)
	w, resp := h.post(t, "?yzj_token=tok", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestWebhook_BlankContent(t *testing.T) {
	h := newHarness(t, nil)
	w, resp := h.post(t, "?yzj_token=tok", "s1", robotMsg("   "))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, ackBlank, resp.Data.Content)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, h.processor.count())
}

func TestWebhook_AnswersThroughNotifyWithCards(t *testing.T) {
	answer := "<reply>Steps below\n\n" +
		"![1](https://cdn.example.com/1.png)\n![2](https://cdn.example.com/2.png)\n" +
		"![3](https://cdn.example.com/3.png)\n![4](https://cdn.example.com/4.png)\n" +
		"![5](https://cdn.example.com/5.png)</reply>"
	h := newHarness(t,
		map[string]interface{}{"card_template_id": "tpl-1", "max_img_per_card": float64(2)},
		&entity.AgentEvent{Type: entity.EventSessionCreated, SessionID: "agent-1"},
		&entity.AgentEvent{Type: entity.EventAssistantOutput, Content: answer},
		&entity.AgentEvent{Type: entity.EventResult, Result: &entity.TurnResult{SessionID: "agent-1"}},
	)

	w, resp := h.post(t, "?yzj_token=tok", "s1", robotMsg("@bot how do I reset?"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, ackReceived+ackQuietSuffix, resp.Data.Content)

	require.Eventually(t, func() bool { return len(h.notify.received()) == 4 }, 2*time.Second, 10*time.Millisecond)
	msgs := h.notify.received()
	for _, m := range msgs {
		assert.Equal(t, "tok", m.token)
	}
	assert.Contains(t, msgs[0].body["content"], "Steps below")

	wantImages := []map[string]string{
		{"bigImageUrl": "https://cdn.example.com/1.png", "bigImage1Url": "https://cdn.example.com/2.png"},
		{"bigImageUrl": "https://cdn.example.com/3.png", "bigImage1Url": "https://cdn.example.com/4.png"},
		{"bigImageUrl": "https://cdn.example.com/5.png"},
	}
	for i, want := range wantImages {
		card := msgs[i+1].body
		assert.Equal(t, float64(2), card["msgType"])
		base := card["param"].(map[string]interface{})["baseInfo"].(map[string]interface{})
		assert.Equal(t, "tpl-1", base["templateId"])
		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(base["dataContent"].(string)), &got))
		assert.Equal(t, want, got)
	}

	assert.Equal(t, "agent-1", h.plugin.Mapper().GetOrCreate("s1"))
	h.api.mu.Lock()
	assert.Contains(t, h.api.fired, plugin.HookMessageReceived)
	h.api.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, Prefix+"/stats", nil)
	rec := httptest.NewRecorder()
	h.api.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats session.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, ID, stats.ChannelID)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, int64(3600), stats.SessionTimeoutSeconds)
}

func TestWebhook_RefusedWhileStopped(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"verbose": true},
		&entity.AgentEvent{Type: entity.EventResult, Result: &entity.TurnResult{Result: "ok"}})
	require.NoError(t, h.plugin.Stop(context.Background()))

	w, resp := h.post(t, "?yzj_token=tok", "s1", robotMsg("anyone there?"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, ackStopped, resp.Data.Content)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, h.processor.count())
	assert.Empty(t, h.notify.received())

	require.NoError(t, h.plugin.Start(context.Background()))
	_, resp = h.post(t, "?yzj_token=tok", "s1", robotMsg("anyone there?"))
	assert.True(t, resp.Success)
	assert.Equal(t, ackReceived, resp.Data.Content)
	require.Eventually(t, func() bool { return len(h.notify.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.processor.count())
}

func TestWebhook_VerboseAckHasNoSuffix(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"verbose": true},
		&entity.AgentEvent{Type: entity.EventResult, Result: &entity.TurnResult{Result: "ok"}})
	_, resp := h.post(t, "?yzj_token=tok", "", robotMsg("hi there"))
	assert.Equal(t, ackReceived, resp.Data.Content)
	require.Eventually(t, func() bool { return len(h.notify.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPlugin_CardsSkippedWithoutTemplate(t *testing.T) {
	h := newHarness(t, nil)
	err := h.plugin.sender.Send(context.Background(),
		bridgeTarget("open-1", "tok"), cardMessage("https://cdn.example.com/1.png"))
	require.NoError(t, err)
	assert.Empty(t, h.notify.received())
}

func TestPlugin_SendTextNeedsToken(t *testing.T) {
	h := newHarness(t, nil)
	assert.Error(t, h.plugin.SendText(context.Background(), "open-1", "hi", nil))
	require.NoError(t, h.plugin.SendText(context.Background(), "open-1", "hi", map[string]string{TokenKey: "tok"}))

	msgs := h.notify.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].body["content"])
	params := msgs[0].body["notifyParams"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "openIds", params["type"])
	assert.Equal(t, []interface{}{"open-1"}, params["values"])
}

func TestPlugin_MetaAndStopTwice(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, "/yzj/chat", h.plugin.Meta().WebhookPath)
	assert.True(t, h.plugin.Capabilities().SendCards)
	require.NoError(t, h.plugin.Stop(context.Background()))
	require.NoError(t, h.plugin.Stop(context.Background()))
}
