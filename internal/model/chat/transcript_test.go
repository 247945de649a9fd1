package chat_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

func TestTranscriptAppendKeepsOrderAndAssignsIDs(t *testing.T) {
	tr := chat.NewTranscript()

	first := tr.Append(chat.RoleAssistant, "hello", chat.MoodNone)
	second := tr.Append(chat.RoleUser, "hi", chat.MoodHappy)

	turns := tr.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, first.ID, turns[0].ID)
	assert.Equal(t, second.ID, turns[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, chat.MoodHappy, turns[1].Mood)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestTranscriptTimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	tr := chat.NewTranscript(chat.WithClock(func() time.Time {
		ts := ticks[i]
		i++
		return ts
	}))

	tr.Append(chat.RoleUser, "a", chat.MoodNone)
	tr.Append(chat.RoleAssistant, "b", chat.MoodNone)
	tr.Append(chat.RoleUser, "c", chat.MoodNone)

	turns := tr.Snapshot()
	assert.Equal(t, base, turns[1].Timestamp)
	assert.Equal(t, base.Add(time.Second), turns[2].Timestamp)
}

func TestTranscriptDropsMoodOnAssistantTurns(t *testing.T) {
	tr := chat.NewTranscript()
	turn := tr.Append(chat.RoleAssistant, "reply", chat.MoodSad)
	assert.Equal(t, chat.MoodNone, turn.Mood)
}

func TestTranscriptSnapshotIsDefensive(t *testing.T) {
	tr := chat.NewTranscript()
	tr.Append(chat.RoleUser, "original", chat.MoodNone)

	snapshot := tr.Snapshot()
	snapshot[0].Content = "mutated"
	_ = append(snapshot, chat.Turn{Content: "extra"})

	turns := tr.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, "original", turns[0].Content)
}

func TestTranscriptRemoveAndClear(t *testing.T) {
	n := 0
	tr := chat.NewTranscript(chat.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("turn-%d", n)
	}))
	tr.Append(chat.RoleUser, "one", chat.MoodNone)
	tr.Append(chat.RoleUser, "two", chat.MoodNone)

	assert.True(t, tr.Remove("turn-1"))
	assert.False(t, tr.Remove("turn-1"))

	turns := tr.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, "two", turns[0].Content)
	assert.Equal(t, 1, tr.Len())

	tr.Clear()
	tr.Clear()
	assert.Empty(t, tr.Snapshot())
	assert.Zero(t, tr.Len())
}

func TestParseMood(t *testing.T) {
	cases := map[string]chat.Mood{
		"":        chat.MoodNone,
		"none":    chat.MoodNone,
		" Happy ": chat.MoodHappy,
		"calm":    chat.MoodCalm,
	}
	for raw, want := range cases {
		got, err := chat.ParseMood(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := chat.ParseMood("angry")
	assert.Error(t, err)
}
