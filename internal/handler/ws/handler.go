package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Handler runs a chat session over a WebSocket. Messages on one connection
// are answered one at a time.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage is the data of an inbound "message".
type TextMessage struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connection struct {
	conn      *websocket.Conn
	sessionID string
	manager   *chatService.Manager
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	manager, err := h.chatSvc.Manager(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &connection{conn: conn, sessionID: sessionID, manager: manager}
	log.Info().Str("session_id", sessionID).Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(ctx, conn)

	greeting := ""
	if p := manager.Persona(); p != nil {
		greeting = p.Greeting
	}
	c.send("connected", map[string]any{
		"greeting": greeting,
		"state":    manager.State(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}

		c.handleMessage(ctx, &msg)
	}
}

func (c *connection) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid message payload")
			return
		}
		c.handleText(ctx, payload)
	case "history":
		c.send("history", map[string]any{"turns": c.manager.History()})
	case "clear":
		c.manager.ClearHistory()
		greeting := ""
		if p := c.manager.Persona(); p != nil {
			greeting = p.ClearedGreeting
		}
		c.send("cleared", map[string]string{"greeting": greeting})
	case "ping":
		c.send("pong", nil)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (c *connection) handleText(ctx context.Context, payload TextMessage) {
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		c.sendError("text is required")
		return
	}

	mood, err := chat.ParseMood(payload.Mood)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.send("loading", map[string]bool{"loading": true})
	outcome, ok := c.manager.TrySendMessage(ctx, text, mood)
	if !ok {
		c.sendError(errBusy)
		return
	}
	c.send("reply", outcome)
}

const errBusy = "a message is already being answered"

func (c *connection) send(typ string, data interface{}) {
	msg := outgoingMessage{
		Type:      typ,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Warn().Err(err).Str("session_id", c.sessionID).Str("type", typ).Msg("websocket write failed")
	}
}

func (c *connection) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

// pingLoop keeps the connection alive. WriteControl may run concurrently
// with the reader's writes.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
