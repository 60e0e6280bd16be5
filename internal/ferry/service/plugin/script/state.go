// Package script loads hook plugins written in Lua.
package script

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrStateClosed is returned when calling into a closed state.
var ErrStateClosed = errors.New("lua state is closed")

// state is a sandboxed gopher-lua state. LState is not goroutine-safe, so
// every call into it goes through mu.
type state struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newState() *state {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require", "load", "loadstring", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &state{L: L}
}

// doFile runs path in the state.
func (s *state) doFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	return s.L.DoFile(path)
}

// function returns the global name if it is a function.
func (s *state) function(name string) (*lua.LFunction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	return fn, ok
}

// call invokes fn with args built inside the lock and returns its first
// result converted to Go.
func (s *state) call(ctx context.Context, fn *lua.LFunction, args func(L *lua.LState) []lua.LValue) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStateClosed
	}

	if ctx != nil {
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	var argv []lua.LValue
	if args != nil {
		argv = args(s.L)
	}
	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, argv...); err != nil {
		return nil, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return fromLua(ret), nil
}

func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.L.Close()
	}
}

// toLua converts plain Go values into Lua values.
func toLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []interface{}:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, item := range val {
			t.Append(lua.LString(item))
		}
		return t
	case map[string]interface{}:
		t := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, toLua(L, val[k]))
		}
		return t
	case map[string]string:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, lua.LString(item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a Lua value to Go. Tables with keys 1..n become slices.
func fromLua(lv lua.LValue) interface{} {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.Len(); n > 0 {
			arr := make([]interface{}, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, fromLua(v.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]interface{})
		v.ForEach(func(k, item lua.LValue) {
			m[k.String()] = fromLua(item)
		})
		return m
	}
	return nil
}
