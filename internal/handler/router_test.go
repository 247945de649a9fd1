package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

func newTestRouter() http.Handler {
	personas := persona.NewMemoryStore(persona.Seed())
	factory := func(context.Context, string, string) (ai.Provider, error) {
		return nil, errors.New("offline")
	}
	svc := chatService.NewService(chatService.ServiceConfig{APIKey: "key", Timeout: time.Second}, personas, factory, nil)
	return NewRouter(Dependencies{Personas: personas, Chat: svc})
}

func TestRouterServesAPI(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{"/healthz", "/api/personas", "/api/moods", "/api/sessions"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", "http://localhost:8081")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.NotEmpty(t, resp.Header().Get("Access-Control-Allow-Origin"), path)
	}
}

func TestRouterAnswersPreflight(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Less(t, resp.Code, 300)
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouterCreatesSession(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"personaId":"jeff"}`)))
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestRouterWithoutEventsHasNoStream(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/sessions/x/events", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
