package chat

import (
	"encoding/json"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// Outcome is the tagged result of SendMessage: a success carries the reply,
// a failure carries a human-readable reason. Callers branch on Ok.
type Outcome struct {
	ok      bool
	Content string     `json:"content,omitempty"`
	Turn    *chat.Turn `json:"turn,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Kind    Kind       `json:"kind,omitempty"`
}

// Success wraps the assistant turn that answered the request.
func Success(turn chat.Turn) Outcome {
	return Outcome{ok: true, Content: turn.Content, Turn: &turn}
}

// Failure wraps a reason for a request that produced no reply.
func Failure(kind Kind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}

// Ok reports whether the outcome is a success.
func (o Outcome) Ok() bool {
	return o.ok
}

// MarshalJSON includes the success flag so clients need not infer it.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type outcome Outcome
	return json.Marshal(struct {
		OK bool `json:"ok"`
		outcome
	}{OK: o.ok, outcome: outcome(o)})
}
