package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHookBus_RunsEveryHandler(t *testing.T) {
	bus := NewHookBus()
	var order []string
	bus.Add("a", HookPostQuery, func(context.Context, interface{}) error {
		order = append(order, "a")
		return errors.New("first")
	})
	bus.Add("b", HookPostQuery, func(context.Context, interface{}) error {
		order = append(order, "b")
		panic("second")
	})
	bus.Add("c", HookPostQuery, func(context.Context, interface{}) error {
		order = append(order, "c")
		return nil
	})

	err := bus.Fire(context.Background(), HookPostQuery, nil)
	assert.EqualError(t, err, "first")
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.NoError(t, bus.Fire(context.Background(), HookPreQuery, nil))

	assert.Equal(t, 1, bus.RemovePlugin("b"))
	assert.Equal(t, 2, bus.Len(HookPostQuery))
}

func TestValidHookEvent(t *testing.T) {
	assert.True(t, ValidHookEvent(HookMessageReceived))
	assert.False(t, ValidHookEvent("on_boot"))
}
