package chat

import (
	"fmt"
	"strings"
)

// Mood is a request-scoped hint about how the user feels.
type Mood string

const (
	MoodNone    Mood = ""
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodNeutral Mood = "neutral"
	MoodExcited Mood = "excited"
	MoodCalm    Mood = "calm"
)

// Moods lists the selectable moods in display order.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodSad, MoodNeutral, MoodExcited, MoodCalm}
}

// Valid reports whether m is one of the selectable moods. MoodNone is not valid.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodSad, MoodNeutral, MoodExcited, MoodCalm:
		return true
	default:
		return false
	}
}

// ParseMood normalizes raw input. Empty input and "none" yield MoodNone.
func ParseMood(raw string) (Mood, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" || normalized == "none" {
		return MoodNone, nil
	}

	mood := Mood(normalized)
	if !mood.Valid() {
		return MoodNone, fmt.Errorf("unknown mood %q", raw)
	}
	return mood, nil
}
