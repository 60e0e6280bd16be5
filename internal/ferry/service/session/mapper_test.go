package session

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
	"github.com/kiosk404/ferry/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestMapper(timeout time.Duration) (*Mapper, *clock.Fake) {
	clk := clock.NewFake(epoch)
	return NewMapper("test", timeout, clk), clk
}

func TestMapper_UnknownSessionReturnsEmpty(t *testing.T) {
	m, _ := newTestMapper(time.Hour)
	assert.Equal(t, "", m.GetOrCreate("nobody"))
	assert.Equal(t, 0, m.Len())
}

func TestMapper_ExpiryBoundary(t *testing.T) {
	m, clk := newTestMapper(time.Hour)
	m.UpdateActivity("ext", "agent-1")

	clk.Advance(time.Hour - time.Second)
	assert.Equal(t, "agent-1", m.GetOrCreate("ext"), "still inside the timeout")

	m.UpdateActivity("ext", "agent-1")
	clk.Advance(time.Hour + time.Second)
	assert.Equal(t, "", m.GetOrCreate("ext"), "expired entry is dropped")
	assert.Equal(t, 0, m.Len())
}

func TestMapper_UpdateActivityRebinds(t *testing.T) {
	m, _ := newTestMapper(time.Hour)
	m.UpdateActivity("ext", "agent-1")
	m.UpdateActivity("ext", "agent-2")
	assert.Equal(t, "agent-2", m.GetOrCreate("ext"))
	assert.Equal(t, 1, m.Len())
}

func TestMapper_PendingQuestionsAreTakenOnce(t *testing.T) {
	m, _ := newTestMapper(time.Hour)
	questions := []entity.Question{{Question: "which invoice?"}}

	m.SetPendingQuestions("ext", questions)
	assert.Nil(t, m.GetAndClearPendingQuestions("ext"), "no entry, nothing stored")

	m.UpdateActivity("ext", "agent-1")
	m.SetPendingQuestions("ext", questions)
	assert.Equal(t, questions, m.GetAndClearPendingQuestions("ext"))
	assert.Nil(t, m.GetAndClearPendingQuestions("ext"))
}

func TestMapper_StatsCountdown(t *testing.T) {
	m, clk := newTestMapper(10 * time.Minute)
	m.UpdateActivity("b", "agent-b")
	clk.Advance(4 * time.Minute)
	m.UpdateActivity("a", "agent-a")

	stats := m.Stats()
	require.Len(t, stats.Sessions, 2)
	assert.Equal(t, "test", stats.ChannelID)
	assert.Equal(t, int64(600), stats.SessionTimeoutSeconds)
	assert.Equal(t, "a", stats.Sessions[0].ExternalSessionID)
	assert.Equal(t, int64(0), stats.Sessions[0].InactiveSeconds)
	assert.Equal(t, int64(600), stats.Sessions[0].WillExpireIn)
	assert.Equal(t, int64(240), stats.Sessions[1].InactiveSeconds)
	assert.Equal(t, int64(360), stats.Sessions[1].WillExpireIn)
}

// After a sweep exactly the entries touched within the timeout remain.
func TestMapper_CleanupExpiredKeepsLiveEntries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		timeout := time.Duration(rapid.IntRange(1, 3600).Draw(t, "timeout")) * time.Second
		m, clk := newTestMapper(timeout)

		ages := rapid.SliceOfN(rapid.IntRange(0, 7200), 0, 20).Draw(t, "ages")
		type entry struct {
			id  string
			age time.Duration
		}
		entries := make([]entry, len(ages))
		for i, a := range ages {
			entries[i] = entry{id: fmt.Sprintf("s%d", i), age: time.Duration(a) * time.Second}
		}

		// Touch the oldest entries first so that each ends up exactly its age.
		order := append([]entry(nil), entries...)
		sort.Slice(order, func(i, j int) bool { return order[i].age > order[j].age })
		for i, e := range order {
			m.UpdateActivity(e.id, "agent-"+e.id)
			next := time.Duration(0)
			if i+1 < len(order) {
				next = order[i+1].age
			}
			clk.Advance(e.age - next)
		}

		want := 0
		for _, e := range entries {
			if e.age <= timeout {
				want++
			}
		}
		removed := m.CleanupExpired()
		if m.Len() != want {
			t.Fatalf("len after cleanup = %d, want %d", m.Len(), want)
		}
		if removed != len(entries)-want {
			t.Fatalf("removed = %d, want %d", removed, len(entries)-want)
		}
		for _, e := range entries {
			got := m.GetOrCreate(e.id)
			if (e.age <= timeout) != (got != "") {
				t.Fatalf("entry %s (age %s, timeout %s) present=%v", e.id, e.age, timeout, got != "")
			}
		}
	})
}
