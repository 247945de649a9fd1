package chat

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

// EventType names a change in a session.
type EventType string

const (
	EventTurnAppended   EventType = "turn_appended"
	EventTurnRolledBack EventType = "turn_rolled_back"
	EventHistoryCleared EventType = "history_cleared"
	EventSendFailed     EventType = "send_failed"
	EventLoading        EventType = "loading"
)

// Event is the JSON payload published for every session change. Seq counts
// up from 1 per manager in the order the changes happened.
type Event struct {
	Seq       uint64     `json:"seq"`
	Type      EventType  `json:"type"`
	SessionID string     `json:"sessionId"`
	Turn      *chat.Turn `json:"turn,omitempty"`
	Loading   *bool      `json:"loading,omitempty"`
	Kind      Kind       `json:"kind,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Topic returns the topic carrying a session's events.
func Topic(sessionID string) string {
	return "session." + sessionID
}

// DecodeEvent parses a published event.
func DecodeEvent(msg *message.Message) (Event, error) {
	var evt Event
	err := json.Unmarshal(msg.Payload, &evt)
	return evt, err
}

type eventSink struct {
	publisher message.Publisher
	sessionID string
}

func (s eventSink) publish(evt Event) {
	if s.publisher == nil || s.sessionID == "" {
		return
	}

	evt.SessionID = s.sessionID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.sessionID).Msg("failed to encode session event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(Topic(s.sessionID), msg); err != nil {
		log.Warn().Err(err).Str("session_id", s.sessionID).Str("event", string(evt.Type)).Msg("failed to publish session event")
	}
}

func turnEvent(typ EventType, turn chat.Turn) Event {
	return Event{Type: typ, Turn: &turn}
}

func loadingEvent(loading bool) Event {
	return Event{Type: EventLoading, Loading: &loading}
}
