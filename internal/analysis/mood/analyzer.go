package mood

import (
	"strings"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// Suggestion is the mood the analyzer would pre-select for a message, with a
// confidence in [0, 1]. It is advisory only.
type Suggestion struct {
	Mood       chat.Mood `json:"mood"`
	Score      int       `json:"score"`
	Confidence float32   `json:"confidence"`
}

type bucket struct {
	mood     chat.Mood
	keywords []string
}

// buckets are checked in order; the first highest score wins ties.
var buckets = []bucket{
	{chat.MoodSad, []string{
		"sad", "unhappy", "upset", "depressed", "feeling down", "lonely", "cry", "crying", "hurt",
		"miss ", "lost my", "heartbroken", "disappointed", "tired of", "awful", "terrible",
	}},
	{chat.MoodExcited, []string{
		"can't wait", "cant wait", "excited", "wow", "amazing", "incredible", "unbelievable",
		"finally", "let's go", "lets go", "hyped", "thrilled", "awesome",
	}},
	{chat.MoodHappy, []string{
		"happy", "glad", "great", "good news", "promotion", "love", "thanks", "thank you",
		"yay", "lol", "haha", "grateful", "proud", "i won", "passed my",
	}},
	{chat.MoodCalm, []string{
		"calm", "relaxed", "peaceful", "chill", "quiet", "slowly", "breathe", "meditat",
		"resting", "cozy", "gentle",
	}},
	{chat.MoodNeutral, []string{
		"how do", "what is", "what's", "can you", "explain", "tell me", "question",
	}},
}

const (
	keywordWeight    = 3
	exclamationBoost = 2
	maxScore         = 12
)

// Suggest scores text against each mood's keywords and returns the best
// match, or MoodNone when nothing matched.
func Suggest(text string) Suggestion {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Suggestion{Mood: chat.MoodNone}
	}

	scores := make(map[chat.Mood]int, len(buckets))
	for _, b := range buckets {
		for _, word := range b.keywords {
			if strings.Contains(normalized, word) {
				scores[b.mood] += keywordWeight
			}
		}
	}

	// Exclamations amplify whichever positive mood is present; alone they
	// read as excitement.
	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		switch {
		case scores[chat.MoodHappy] > scores[chat.MoodExcited]:
			scores[chat.MoodHappy] += exclamations * exclamationBoost
		case scores[chat.MoodSad] == 0:
			scores[chat.MoodExcited] += exclamations * exclamationBoost
		}
	}

	best := Suggestion{Mood: chat.MoodNone}
	for _, b := range buckets {
		if s := scores[b.mood]; s > best.Score {
			best = Suggestion{Mood: b.mood, Score: s}
		}
	}
	if best.Score == 0 {
		return best
	}

	confidence := float32(best.Score) / maxScore
	if confidence > 1 {
		confidence = 1
	}
	best.Confidence = confidence
	return best
}
