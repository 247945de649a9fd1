package mood

import (
	"testing"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

func TestSuggestHappyNews(t *testing.T) {
	s := Suggest("I got a promotion!")
	if s.Mood != chat.MoodHappy {
		t.Fatalf("expected happy mood, got %q", s.Mood)
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", s.Confidence)
	}
}

func TestSuggestSad(t *testing.T) {
	s := Suggest("I feel so lonely and sad today")
	if s.Mood != chat.MoodSad {
		t.Fatalf("expected sad mood, got %q", s.Mood)
	}
}

func TestSuggestExclamationsAloneReadAsExcited(t *testing.T) {
	s := Suggest("We did it!!!")
	if s.Mood != chat.MoodExcited {
		t.Fatalf("expected excited mood, got %q", s.Mood)
	}
}

func TestSuggestCalm(t *testing.T) {
	s := Suggest("Just a quiet, relaxed evening")
	if s.Mood != chat.MoodCalm {
		t.Fatalf("expected calm mood, got %q", s.Mood)
	}
}

func TestSuggestNothingMatched(t *testing.T) {
	for _, text := range []string{"", "   ", "ok"} {
		s := Suggest(text)
		if s.Mood != chat.MoodNone || s.Score != 0 || s.Confidence != 0 {
			t.Fatalf("expected no suggestion for %q, got %+v", text, s)
		}
	}
}
