package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
	"github.com/zhouzirui/jeff-companion/backend/pkg/utils"
)

// Handler serves the session and message routes.
type Handler struct {
	chatSvc        *chatService.Service
	defaultPersona string
}

// New creates the chat handler. Sessions created without a persona use
// defaultPersona.
func New(chatSvc *chatService.Service, defaultPersona string) *Handler {
	if defaultPersona == "" {
		defaultPersona = persona.DefaultID
	}
	return &Handler{
		chatSvc:        chatSvc,
		defaultPersona: defaultPersona,
	}
}

// RegisterRoutes registers the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)

	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
	r.Get("/sessions/{sessionID}/messages", h.handleHistory)
	r.Delete("/sessions/{sessionID}/messages", h.handleClearHistory)
}

type sessionResponse struct {
	Session  chat.Session       `json:"session"`
	Greeting string             `json:"greeting,omitempty"`
	State    *chatService.State `json:"state,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(w, r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	personaID := strings.TrimSpace(payload.PersonaID)
	if personaID == "" {
		personaID = h.defaultPersona
	}

	session, err := h.chatSvc.CreateSession(r.Context(), personaID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		Session:  session,
		Greeting: h.chatSvc.Greeting(session.ID),
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessions": h.chatSvc.ListSessions(r.Context()),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	manager, err := h.chatSvc.Manager(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	state := manager.State()
	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: session, State: &state})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
		Mood string `json:"mood"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	mood, err := chat.ParseMood(payload.Mood)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	manager, err := h.chatSvc.Manager(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Failures are part of the outcome; the request itself succeeded.
	outcome, ok := manager.TrySendMessage(r.Context(), text, mood)
	if !ok {
		utils.RespondError(w, http.StatusConflict, "a message is already being answered")
		return
	}
	utils.RespondJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	manager, err := h.chatSvc.Manager(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"turns": manager.History(),
		"state": manager.State(),
	})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	manager, err := h.chatSvc.Manager(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	manager.ClearHistory()

	greeting := ""
	if p := manager.Persona(); p != nil {
		greeting = p.ClearedGreeting
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"greeting": greeting})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrPersonaRequired), errors.Is(err, chatService.ErrPersonaNotFound):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case chatService.IsKind(err, chatService.KindConfiguration):
		utils.RespondError(w, http.StatusServiceUnavailable, "assistant is not configured: set an API key")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
