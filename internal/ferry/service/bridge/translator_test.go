package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type script func(ctx context.Context, req *entity.QueryRequest, sw *schema.StreamWriter[*entity.AgentEvent])

// fakeProcessor replays a script per turn.
type fakeProcessor struct {
	mu       sync.Mutex
	requests []*entity.QueryRequest
	run      script
	err      error
}

func replay(events ...*entity.AgentEvent) script {
	return func(_ context.Context, _ *entity.QueryRequest, sw *schema.StreamWriter[*entity.AgentEvent]) {
		for _, ev := range events {
			if sw.Send(ev, nil) {
				return
			}
		}
	}
}

func (p *fakeProcessor) Process(ctx context.Context, req *entity.QueryRequest) (*schema.StreamReader[*entity.AgentEvent], error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	sr, sw := schema.Pipe[*entity.AgentEvent](8)
	go func() {
		defer sw.Close()
		if p.run != nil {
			p.run(ctx, req, sw)
		}
	}()
	return sr, nil
}

func (p *fakeProcessor) calls() []*entity.QueryRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*entity.QueryRequest(nil), p.requests...)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []OutboundMessage
}

func (s *fakeSender) Send(_ context.Context, _ Target, msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) messages() []OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboundMessage(nil), s.sent...)
}

func (s *fakeSender) texts() []string {
	var out []string
	for _, m := range s.messages() {
		out = append(out, m.Text)
	}
	return out
}

type fakeHooks struct {
	mu     sync.Mutex
	events []plugin.HookEvent
	post   *plugin.QueryHookPayload
}

func (h *fakeHooks) FireHooks(_ context.Context, event plugin.HookEvent, data interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	p := data.(*plugin.QueryHookPayload)
	switch event {
	case plugin.HookPreQuery:
		p.Prompt = "[hooked] " + p.Prompt
	case plugin.HookPostQuery:
		cp := *p
		h.post = &cp
	}
	return nil
}

type fixture struct {
	tr        *Translator
	processor *fakeProcessor
	sender    *fakeSender
	mapper    *session.Mapper
	texts     Texts
}

func newFixture(t *testing.T, run script, tweak func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		processor: &fakeProcessor{run: run},
		sender:    &fakeSender{},
		mapper:    session.NewMapper("test", time.Hour, nil),
		texts:     DefaultTexts(),
	}
	policy := DefaultPolicy()
	policy.FAQ = map[string]string{"营业时间": "9:00-18:00"}
	cfg := Config{
		Mapper:       f.mapper,
		Processor:    f.processor,
		Sender:       f.sender,
		Policy:       policy,
		Capabilities: plugin.ChannelCapabilities{SendText: true},
	}
	if tweak != nil {
		tweak(&cfg)
	}
	tr, err := New(cfg)
	require.NoError(t, err)
	f.tr = tr
	return f
}

func inbound(session, text string) Inbound {
	return Inbound{ExternalSessionID: session, Text: text, RobotName: "bot", Target: Target{Recipient: "u1"}}
}

func sessionCreated(id string) *entity.AgentEvent {
	return &entity.AgentEvent{Type: entity.EventSessionCreated, SessionID: id}
}

func output(s string) *entity.AgentEvent {
	return &entity.AgentEvent{Type: entity.EventAssistantOutput, Content: s}
}

func result(s string) *entity.AgentEvent {
	return &entity.AgentEvent{Type: entity.EventResult, Result: &entity.TurnResult{Result: s}}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestTranslator_FAQSkipsAgent(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.tr.Handle(context.Background(), inbound("s1", "@bot 营业时间"))

	assert.Equal(t, []string{"9:00-18:00"}, f.sender.texts())
	assert.Empty(t, f.processor.calls())
}

func TestTranslator_StopWithoutSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.tr.Handle(context.Background(), inbound("s1", "@bot 停止"))

	assert.Equal(t, []string{f.texts.NoActiveTask}, f.sender.texts())
	assert.Empty(t, f.processor.calls())
}

func TestTranslator_ReplyIsBufferedUntilResult(t *testing.T) {
	f := newFixture(t, replay(
		sessionCreated("agent-1"),
		output("thinking out loud"),
		output("<reply>first</reply>"),
		output("<reply>second</reply>"),
		result("ignored when replies exist"),
	), nil)
	f.tr.Handle(context.Background(), inbound("s1", "hi"))

	assert.Equal(t, []string{"first\n\nsecond" + f.texts.ReplyHint}, f.sender.texts())
	assert.Equal(t, "agent-1", f.mapper.GetOrCreate("s1"))

	req := f.processor.calls()[0]
	assert.Equal(t, "hi", req.Prompt)
	assert.Equal(t, "customer-service", req.Skill)
	assert.Empty(t, req.SessionID)
}

func TestTranslator_ResumesMappedSession(t *testing.T) {
	f := newFixture(t, replay(sessionCreated("agent-1"), result("ok")), nil)
	f.tr.Handle(context.Background(), inbound("s1", "one"))
	f.tr.Handle(context.Background(), inbound("s1", "two"))

	calls := f.processor.calls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].SessionID)
	assert.Equal(t, "agent-1", calls[1].SessionID)
	assert.Equal(t, []string{"ok" + f.texts.ReplyHint, "ok" + f.texts.ReplyHint}, f.sender.texts())
}

func TestTranslator_AskSegmentsGoOutImmediately(t *testing.T) {
	f := newFixture(t, replay(output("<ask>which one?</ask>"), result("")), nil)
	f.tr.Handle(context.Background(), inbound("s1", "hi"))

	texts := f.sender.texts()
	require.Len(t, texts, 1)
	assert.True(t, strings.HasPrefix(texts[0], "which one?"))
	assert.Contains(t, texts[0], "@bot")
}

func TestTranslator_QuestionSuppressesResult(t *testing.T) {
	question := entity.Question{
		Question: "Which environment?",
		Options:  []entity.QuestionOption{{Label: "staging"}, {Label: "production", Description: "live"}},
	}
	f := newFixture(t, replay(
		sessionCreated("agent-1"),
		&entity.AgentEvent{Type: entity.EventInteractiveQuestion, Questions: []entity.Question{question}},
		result("should not be sent"),
	), nil)
	f.tr.Handle(context.Background(), inbound("s1", "deploy"))

	texts := f.sender.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Which environment?")
	assert.Contains(t, texts[0], "2. production - live")

	f.tr.Handle(context.Background(), inbound("s1", "2"))
	calls := f.processor.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "production", calls[1].Prompt)
	assert.Equal(t, "agent-1", calls[1].SessionID)
}

func TestTranslator_ImagesAreChunkedIntoCards(t *testing.T) {
	var images []string
	for i := 1; i <= 4; i++ {
		images = append(images, fmt.Sprintf("![img%d](https://cdn.example.com/%d.png)", i, i))
	}
	f := newFixture(t, replay(
		output("<reply>See below\n\n"+strings.Join(images, "\n")+"</reply>"),
		result(""),
	), func(c *Config) {
		c.Capabilities.SendCards = true
		c.Policy.ImagesPerCard = 3
	})
	f.tr.Handle(context.Background(), inbound("s1", "show me"))

	msgs := f.sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, KindText, msgs[0].Kind)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "See below"))
	assert.NotContains(t, msgs[0].Text, "![")
	assert.True(t, strings.HasSuffix(msgs[0].Text, f.texts.ImagesFollow))
	assert.Equal(t, KindCard, msgs[1].Kind)
	assert.Len(t, msgs[1].MediaURLs, 3)
	assert.Equal(t, []string{"https://cdn.example.com/4.png"}, msgs[2].MediaURLs)
}

func TestTranslator_ImagesInlineForTextOnlyChannels(t *testing.T) {
	f := newFixture(t, replay(result("<reply>map ![m](assets/site/map.png)</reply>")), func(c *Config) {
		c.Policy.AssetBaseURL = "http://kb.local/"
	})
	f.tr.Handle(context.Background(), inbound("s1", "where"))

	texts := f.sender.texts()
	require.Len(t, texts, 1)
	assert.True(t, strings.HasSuffix(texts[0], "http://kb.local/kb/assets/site/map.png"))
}

func TestTranslator_ErrorsStayGeneric(t *testing.T) {
	f := newFixture(t, replay(&entity.AgentEvent{Type: entity.EventError, Error: "db password rejected"}), nil)
	f.tr.Handle(context.Background(), inbound("s1", "hi"))
	assert.Equal(t, []string{f.texts.AgentError}, f.sender.texts())

	f = newFixture(t, nil, nil)
	f.processor.err = errors.New("dial tcp: refused")
	f.tr.Handle(context.Background(), inbound("s1", "hi"))
	assert.Equal(t, []string{f.texts.ProcessingFailed}, f.sender.texts())
}

func TestTranslator_EmptyTurnFallsBack(t *testing.T) {
	f := newFixture(t, replay(&entity.AgentEvent{Type: entity.EventHeartbeat}), nil)
	f.tr.Handle(context.Background(), inbound("s1", "hi"))
	assert.Equal(t, []string{f.texts.Fallback}, f.sender.texts())
}

func TestTranslator_VerboseForwardsRawOutput(t *testing.T) {
	f := newFixture(t, replay(output("step 1"), output("step 2"), result("")), func(c *Config) {
		c.Policy.Verbose = true
	})
	f.tr.Handle(context.Background(), inbound("s1", "hi"))
	assert.Equal(t, []string{"step 1", "step 2"}, f.sender.texts())
}

func TestTranslator_StopCancelsRunningTurn(t *testing.T) {
	started := make(chan struct{})
	f := newFixture(t, func(ctx context.Context, _ *entity.QueryRequest, sw *schema.StreamWriter[*entity.AgentEvent]) {
		sw.Send(sessionCreated("agent-1"), nil)
		close(started)
		<-ctx.Done()
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.tr.Handle(context.Background(), inbound("s1", "long task"))
	}()

	<-started
	require.Eventually(t, func() bool { return f.tr.interrupts.Active("agent-1") }, time.Second, 5*time.Millisecond)
	f.tr.Handle(context.Background(), inbound("s1", "@bot 停止"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop")
	}
	assert.Equal(t, []string{f.texts.Stopped}, f.sender.texts())
}

func TestTranslator_TurnsOfOneSessionDoNotOverlap(t *testing.T) {
	var running, overlaps int32
	f := newFixture(t, func(_ context.Context, _ *entity.QueryRequest, sw *schema.StreamWriter[*entity.AgentEvent]) {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		sw.Send(result("ok"), nil)
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.tr.Handle(context.Background(), inbound("s1", fmt.Sprintf("msg %d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlaps))
	assert.Len(t, f.processor.calls(), 8)
}

func TestTranslator_FiresQueryHooks(t *testing.T) {
	hooks := &fakeHooks{}
	f := newFixture(t, replay(sessionCreated("agent-9"), result("<reply>done</reply>")), func(c *Config) {
		c.Hooks = hooks
	})
	f.tr.Handle(context.Background(), inbound("s1", "hi"))

	assert.Equal(t, "[hooked] hi", f.processor.calls()[0].Prompt)
	assert.Equal(t, []plugin.HookEvent{plugin.HookPreQuery, plugin.HookPostQuery}, hooks.events)
	require.NotNil(t, hooks.post)
	assert.Equal(t, "agent-9", hooks.post.AgentSessionID)
	assert.Equal(t, "done"+f.texts.ReplyHint, hooks.post.Result)
}
