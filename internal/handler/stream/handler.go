package stream

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
	"github.com/zhouzirui/jeff-companion/backend/pkg/utils"
)

// DefaultHeartbeat is how often an idle stream is kept alive.
const DefaultHeartbeat = 15 * time.Second

// Handler relays a session's events to the browser as Server-Sent Events.
type Handler struct {
	chatSvc    *chatService.Service
	subscriber message.Subscriber
	heartbeat  time.Duration
}

// New creates the stream handler.
func New(chatSvc *chatService.Service, subscriber message.Subscriber) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		subscriber: subscriber,
		heartbeat:  DefaultHeartbeat,
	}
}

// RegisterRoutes registers the event stream route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	manager, err := h.chatSvc.Manager(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	messages, err := h.subscriber.Subscribe(ctx, chatService.Topic(sessionID))
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to subscribe to session events")
		utils.RespondError(w, http.StatusInternalServerError, "event stream unavailable")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log.Debug().Str("session_id", sessionID).Msg("event stream opened")
	if err := utils.SendSSEEvent(w, flusher, "state", manager.State()); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("session_id", sessionID).Msg("event stream closed")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			// publishers wait for this ack before sending the next event
			evt, err := chatService.DecodeEvent(msg)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("dropping malformed session event")
				continue
			}
			id := strconv.FormatUint(evt.Seq, 10)
			if err := utils.SendSSERaw(w, flusher, id, string(evt.Type), msg.Payload); err != nil {
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}
