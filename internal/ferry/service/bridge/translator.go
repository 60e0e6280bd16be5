package bridge

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
	"github.com/kiosk404/ferry/pkg/logger"
)

// HookFirer runs plugin hooks. PluginAPI implements it.
type HookFirer interface {
	FireHooks(ctx context.Context, event plugin.HookEvent, data interface{}) error
}

// Config holds the collaborators of a Translator.
type Config struct {
	Channel      string
	Mapper       *session.Mapper
	Processor    service.Processor
	Interrupts   *session.InterruptRegistry
	Sender       Sender
	Capabilities plugin.ChannelCapabilities
	Policy       Policy
	// Hooks may be nil.
	Hooks HookFirer
}

// Translator drives inbound messages of one channel through agent turns.
// Turns of one external session never overlap.
type Translator struct {
	channel    string
	mapper     *session.Mapper
	processor  service.Processor
	interrupts *session.InterruptRegistry
	sender     Sender
	caps       plugin.ChannelCapabilities
	policy     Policy
	hooks      HookFirer
	kb         KBResolver
	locks      *session.KeyedLock
}

// New creates a Translator.
func New(cfg Config) (*Translator, error) {
	if cfg.Mapper == nil || cfg.Processor == nil || cfg.Sender == nil {
		return nil, errors.New("translator needs a mapper, a processor and a sender")
	}
	if cfg.Interrupts == nil {
		cfg.Interrupts = session.NewInterruptRegistry(nil)
	}
	if cfg.Channel == "" {
		cfg.Channel = cfg.Mapper.ChannelID()
	}
	return &Translator{
		channel:    cfg.Channel,
		mapper:     cfg.Mapper,
		processor:  cfg.Processor,
		interrupts: cfg.Interrupts,
		sender:     cfg.Sender,
		caps:       cfg.Capabilities,
		policy:     cfg.Policy,
		hooks:      cfg.Hooks,
		kb:         KBResolver{Root: cfg.Policy.KBRoot},
		locks:      session.NewKeyedLock(),
	}, nil
}

// Mapper returns the session mapper of the channel.
func (t *Translator) Mapper() *session.Mapper { return t.mapper }

// Handle processes one inbound message to completion.
func (t *Translator) Handle(ctx context.Context, in Inbound) {
	key := in.SessionKey()
	if n := t.mapper.CleanupExpired(); n > 0 {
		logger.Debug("[Bridge] %s: evicted %d idle sessions", t.channel, n)
	}

	cleaned := CleanContent(in.Text)
	if answer, ok := t.policy.MatchFAQ(cleaned); ok {
		logger.Info("[Bridge] %s: FAQ answered for %s", t.channel, key)
		t.deliver(ctx, in.Target, Text(answer))
		return
	}
	if t.policy.IsStopCommand(cleaned) {
		t.stop(ctx, in.Target, key)
		return
	}

	release, err := t.locks.Lock(ctx, key)
	if err != nil {
		logger.Warn("[Bridge] %s: gave up waiting for session %s: %v", t.channel, key, err)
		return
	}
	defer release()

	t.turn(ctx, in, key, cleaned)
}

func (t *Translator) stop(ctx context.Context, target Target, key string) {
	agentID := t.mapper.GetOrCreate(key)
	if agentID == "" {
		t.deliver(ctx, target, Text(t.policy.Texts.NoActiveTask))
		return
	}
	logger.Info("[Bridge] %s: stop requested, interrupting %s", t.channel, agentID)
	if t.interrupts.Interrupt(ctx, agentID) {
		t.deliver(ctx, target, Text(t.policy.Texts.Stopped))
		return
	}
	t.deliver(ctx, target, Text(t.policy.Texts.StopFailed))
}

// turnState tracks what one turn has emitted.
type turnState struct {
	ctx          context.Context
	target       Target
	robot        string
	produced     int
	questionSent bool
	acked        bool
	replies      []string
	delivered    []string
}

func (t *Translator) turn(ctx context.Context, in Inbound, key, prompt string) {
	agentID := t.mapper.GetOrCreate(key)
	if pending := t.mapper.GetAndClearPendingQuestions(key); len(pending) > 0 {
		prompt = ResolveAnswer(pending, prompt)
	}

	skill := in.Skill
	if skill == "" {
		skill = t.policy.DefaultSkill
	}
	payload := &plugin.QueryHookPayload{
		Channel:           t.channel,
		ExternalSessionID: key,
		AgentSessionID:    agentID,
		Prompt:            prompt,
		Skill:             skill,
	}
	t.fire(ctx, plugin.HookPreQuery, payload)

	req := &entity.QueryRequest{
		Prompt:    payload.Prompt,
		Skill:     payload.Skill,
		TenantID:  t.policy.TenantID,
		Language:  t.policy.Language,
		SessionID: agentID,
	}

	tc := t.interrupts.Begin(ctx)
	defer tc.CleanUp()

	unbind := func() {}
	defer func() { unbind() }()
	if agentID != "" {
		logger.Info("[Bridge] %s: resuming agent session %s for %s", t.channel, agentID, key)
		t.mapper.UpdateActivity(key, agentID)
		unbind = t.interrupts.Bind(agentID, tc)
	}

	st := &turnState{ctx: tc.Context(), target: in.Target, robot: in.robot()}

	stream, err := t.processor.Process(st.ctx, req)
	if err != nil {
		if st.ctx.Err() != nil {
			return
		}
		logger.Error("[Bridge] %s: start agent turn for %s: %v", t.channel, key, err)
		t.emit(st, Text(t.policy.Texts.ProcessingFailed))
		return
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if st.ctx.Err() != nil {
			logger.Info("[Bridge] %s: turn of %s cancelled", t.channel, key)
			return
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("[Bridge] %s: agent stream of %s failed: %v", t.channel, key, err)
			t.emit(st, Text(t.policy.Texts.AgentError))
			break
		}
		if ev == nil {
			continue
		}

		switch ev.Type {
		case entity.EventSessionCreated:
			if ev.SessionID == "" || ev.SessionID == agentID {
				continue
			}
			agentID = ev.SessionID
			t.mapper.UpdateActivity(key, agentID)
			unbind()
			unbind = t.interrupts.Bind(agentID, tc)
			logger.Info("[Bridge] %s: session mapping %s -> %s", t.channel, key, agentID)
			if text := t.policy.Texts.SessionEstablished; text != "" && !st.acked {
				st.acked = true
				t.emit(st, Text(text))
			}

		case entity.EventInteractiveQuestion:
			hint := withRobot(t.policy.Texts.QuestionHint, st.robot)
			for _, q := range ev.Questions {
				t.emit(st, Text(FormatQuestion(q, hint)))
			}
			if len(ev.Questions) > 0 {
				st.questionSent = true
				t.mapper.SetPendingQuestions(key, ev.Questions)
			}

		case entity.EventAssistantOutput:
			t.assistantOutput(st, ev.Content)
			if agentID != "" {
				t.mapper.UpdateActivity(key, agentID)
			}

		case entity.EventResult:
			t.result(st, ev.Result)

		case entity.EventError:
			logger.Error("[Bridge] %s: agent error for %s: %s (%s)", t.channel, key, ev.Error, ev.ErrorType)
			t.emit(st, Text(t.policy.Texts.AgentError))

		case entity.EventHeartbeat, entity.EventTodosUpdate:
		default:
			logger.Debug("[Bridge] %s: ignored event %q", t.channel, ev.Type)
		}
	}

	if st.ctx.Err() != nil {
		return
	}
	if st.produced == 0 {
		t.emit(st, Text(t.policy.Texts.Fallback))
	}
	if agentID != "" {
		t.mapper.UpdateActivity(key, agentID)
	}
	logger.Info("[Bridge] %s: turn of %s done, %d messages", t.channel, key, st.produced)

	payload.AgentSessionID = agentID
	payload.Result = strings.Join(st.delivered, "\n\n")
	t.fire(ctx, plugin.HookPostQuery, payload)
}

func (t *Translator) assistantOutput(st *turnState, content string) {
	if content == "" {
		return
	}
	if t.policy.Verbose {
		t.emit(st, Text(content))
		return
	}

	hint := withRobot(t.policy.Texts.AskHint, st.robot)
	asks := ExtractTags(content, "ask")
	for _, ask := range asks {
		t.emit(st, Text(ask+hint))
	}
	replies := ExtractTags(content, "reply")
	st.replies = append(st.replies, replies...)
	if len(asks) == 0 && len(replies) == 0 {
		logger.Debug("[Bridge] %s: dropped undecorated output (%d bytes)", t.channel, len(content))
	}
}

func (t *Translator) result(st *turnState, res *entity.TurnResult) {
	if res != nil {
		logger.Info("[Bridge] %s: result session=%s duration=%dms turns=%d",
			t.channel, res.SessionID, res.DurationMs, res.NumTurns)
	}
	if st.questionSent {
		logger.Info("[Bridge] %s: result suppressed, a question is pending", t.channel)
		return
	}

	text := strings.Join(st.replies, "\n\n")
	st.replies = nil
	if text == "" && res != nil {
		if replies := ExtractTags(res.Result, "reply"); len(replies) > 0 {
			text = strings.Join(replies, "\n\n")
		} else {
			text = strings.TrimSpace(res.Result)
		}
	}
	if text == "" {
		logger.Warn("[Bridge] %s: turn finished without content", t.channel)
		return
	}
	t.flush(st, text+t.policy.Texts.ReplyHint)
}

// flush sends the final answer followed by its images in the richest form
// the channel supports.
func (t *Translator) flush(st *turnState, text string) {
	text = t.kb.Resolve(text)
	cleaned, images := ExtractImages(text, t.policy.AssetBaseURL)

	switch {
	case len(images) == 0:
		t.emit(st, Text(cleaned))
	case t.caps.SendCards:
		t.emit(st, Text(cleaned+t.policy.Texts.ImagesFollow))
		for _, group := range Chunk(images, t.policy.ImagesPerCard) {
			t.emit(st, OutboundMessage{Kind: KindCard, MediaURLs: group})
		}
	case t.caps.SendImages:
		t.emit(st, Text(cleaned+t.policy.Texts.ImagesFollow))
		t.emit(st, OutboundMessage{Kind: KindTextWithMedia, MediaURLs: images})
	default:
		t.emit(st, Text(cleaned+"\n\n"+strings.Join(images, "\n")))
	}
	st.delivered = append(st.delivered, cleaned)
}

// emit sends msg unless the turn was cancelled. Failed sends still count as
// produced.
func (t *Translator) emit(st *turnState, msg OutboundMessage) {
	if st.ctx.Err() != nil {
		return
	}
	st.produced++
	t.deliver(st.ctx, st.target, msg)
}

func (t *Translator) deliver(ctx context.Context, target Target, msg OutboundMessage) {
	if err := t.sender.Send(ctx, target, msg); err != nil {
		logger.Error("[Bridge] %s: send %s to %s failed: %v", t.channel, msg.Kind, target.Recipient, err)
	}
}

func (t *Translator) fire(ctx context.Context, event plugin.HookEvent, payload *plugin.QueryHookPayload) {
	if t.hooks == nil {
		return
	}
	if err := t.hooks.FireHooks(ctx, event, payload); err != nil {
		logger.Warn("[Bridge] %s: %s hooks: %v", t.channel, event, err)
	}
}
