package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transcript is an ordered, append-only log of turns that can be cleared.
// IDs and timestamps are assigned at append time; timestamps never go
// backwards even if the clock does.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
	newID func() string
}

// TranscriptOption customizes a Transcript.
type TranscriptOption func(*Transcript)

// WithClock overrides the time source used for turn timestamps.
func WithClock(now func() time.Time) TranscriptOption {
	return func(t *Transcript) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator overrides the turn identifier generator.
func WithIDGenerator(newID func() string) TranscriptOption {
	return func(t *Transcript) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// NewTranscript returns an empty transcript.
func NewTranscript(opts ...TranscriptOption) *Transcript {
	t := &Transcript{
		turns: make([]Turn, 0, 16),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records a new turn and returns it with its assigned ID and timestamp.
// Mood is dropped for assistant turns.
func (t *Transcript) Append(role Role, content string, mood Mood) Turn {
	if role != RoleUser {
		mood = MoodNone
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.now()
	if n := len(t.turns); n > 0 && ts.Before(t.turns[n-1].Timestamp) {
		ts = t.turns[n-1].Timestamp
	}

	turn := Turn{
		ID:        t.newID(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
		Mood:      mood,
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Remove deletes the turn with the given ID and reports whether it existed.
func (t *Transcript) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].ID == id {
			t.turns = append(t.turns[:i], t.turns[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the turns in insertion order.
func (t *Transcript) Snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Clear discards every turn.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.turns = make([]Turn, 0, 16)
	t.mu.Unlock()
}
