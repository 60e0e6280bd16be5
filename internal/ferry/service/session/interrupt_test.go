package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeUpstream struct {
	calls  []string
	result bool
	err    error
}

func (f *fakeUpstream) Interrupt(_ context.Context, id string) (bool, error) {
	f.calls = append(f.calls, id)
	return f.result, f.err
}

func TestInterruptRegistry_UnknownSession(t *testing.T) {
	r := NewInterruptRegistry(nil)
	assert.False(t, r.Interrupt(context.Background(), "missing"))
}

func TestInterruptRegistry_AbortsBoundTurnOnce(t *testing.T) {
	r := NewInterruptRegistry(nil)
	turn := r.Begin(context.Background())
	defer turn.CleanUp()
	release := r.Bind("s1", turn)
	defer release()

	assert.True(t, r.Active("s1"))
	assert.True(t, r.Interrupt(context.Background(), "s1"))
	assert.Error(t, turn.Context().Err())
	assert.True(t, turn.IsAborted())
	assert.False(t, r.Active("s1"))
	assert.False(t, r.Interrupt(context.Background(), "s1"), "second interrupt does not cancel again")
}

func TestInterruptRegistry_ReleaseKeepsNewerBinding(t *testing.T) {
	r := NewInterruptRegistry(nil)
	first := r.Begin(context.Background())
	second := r.Begin(context.Background())
	defer first.CleanUp()
	defer second.CleanUp()

	releaseFirst := r.Bind("s1", first)
	releaseSecond := r.Bind("s1", second)
	releaseFirst()

	assert.True(t, r.Active("s1"))
	assert.True(t, r.Interrupt(context.Background(), "s1"))
	assert.True(t, second.IsAborted())
	assert.False(t, first.IsAborted())
	releaseSecond()
}

func TestInterruptRegistry_ForwardsUpstream(t *testing.T) {
	up := &fakeUpstream{result: true}
	r := NewInterruptRegistry(up)
	assert.True(t, r.Interrupt(context.Background(), "remote-only"))
	assert.Equal(t, []string{"remote-only"}, up.calls)

	up.result, up.err = false, errors.New("boom")
	assert.False(t, r.Interrupt(context.Background(), "remote-only"))
}

func TestTurn_CleanUpIsNotAnAbort(t *testing.T) {
	r := NewInterruptRegistry(nil)
	turn := r.Begin(context.Background())
	turn.CleanUp()
	assert.False(t, turn.IsAborted())
	assert.False(t, turn.Abort(), "already cancelled")
}
