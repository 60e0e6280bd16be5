package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// hookTimeout bounds one call into a script hook.
const hookTimeout = 5 * time.Second

// Script is the capability object of a Lua plugin.
type Script struct {
	id    string
	state *state
	log   *logrus.Entry
}

var (
	_ plugin.Starter = (*Script)(nil)
	_ plugin.Stopper = (*Script)(nil)
	_ io.Closer      = (*Script)(nil)
)

// open runs the script in a fresh state and calls entry with the api table.
func open(path, entry string, api plugin.PluginAPI) (*Script, error) {
	s := &Script{id: api.ID(), state: newState(), log: api.Logger()}
	if err := s.state.doFile(path); err != nil {
		s.state.close()
		return nil, err
	}
	fn, ok := s.state.function(entry)
	if !ok {
		s.state.close()
		return nil, fmt.Errorf("function %q disappeared", entry)
	}

	_, err := s.state.call(context.Background(), fn, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{s.apiTable(L, api)}
	})
	if err != nil {
		s.state.close()
		return nil, fmt.Errorf("call %s: %w", entry, err)
	}
	return s, nil
}

func (s *Script) apiTable(L *lua.LState, api plugin.PluginAPI) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(api.ID()))
	t.RawSetString("config", toLua(L, api.Config()))

	t.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		level := strings.ToLower(L.CheckString(1))
		msg := L.OptString(2, "")
		switch level {
		case "debug":
			s.log.Debug(msg)
		case "warn", "warning":
			s.log.Warn(msg)
		case "error":
			s.log.Error(msg)
		default:
			s.log.Info(msg)
		}
		return 0
	}))

	t.RawSetString("register_hook", L.NewFunction(func(L *lua.LState) int {
		event := plugin.HookEvent(L.CheckString(1))
		fn := L.CheckFunction(2)
		if !plugin.ValidHookEvent(event) {
			L.ArgError(1, fmt.Sprintf("unknown hook event %q", event))
			return 0
		}
		api.RegisterHook(event, s.hook(event, fn))
		return 0
	}))
	return t
}

// hook adapts a Lua function to a HookHandler. For pre_query a string
// return value replaces the prompt.
func (s *Script) hook(event plugin.HookEvent, fn *lua.LFunction) plugin.HookHandler {
	return func(ctx context.Context, data interface{}) error {
		ctx, cancel := context.WithTimeout(ctx, hookTimeout)
		defer cancel()

		payload, _ := data.(*plugin.QueryHookPayload)
		ret, err := s.state.call(ctx, fn, func(L *lua.LState) []lua.LValue {
			if payload == nil {
				return []lua.LValue{toLua(L, data)}
			}
			return []lua.LValue{toLua(L, map[string]interface{}{
				"channel":          payload.Channel,
				"session_id":       payload.ExternalSessionID,
				"agent_session_id": payload.AgentSessionID,
				"prompt":           payload.Prompt,
				"skill":            payload.Skill,
				"result":           payload.Result,
			})}
		})
		if err != nil {
			return fmt.Errorf("lua %s hook of %q: %w", event, s.id, err)
		}
		if prompt, ok := ret.(string); ok && event == plugin.HookPreQuery && payload != nil {
			payload.Prompt = prompt
		}
		return nil
	}
}

// Start calls the global on_start if the script defines it.
func (s *Script) Start(ctx context.Context) error {
	return s.callOptional(ctx, "on_start")
}

// Stop calls the global on_stop if defined and closes the state.
func (s *Script) Stop(ctx context.Context) error {
	defer s.state.close()
	return s.callOptional(ctx, "on_stop")
}

// Close releases the Lua state without calling on_stop.
func (s *Script) Close() error {
	s.state.close()
	return nil
}

func (s *Script) callOptional(ctx context.Context, name string) error {
	fn, ok := s.state.function(name)
	if !ok {
		return nil
	}
	if _, err := s.state.call(ctx, fn, nil); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
