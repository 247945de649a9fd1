package handler

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/jeff-companion/backend/internal/handler/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/handler/mood"
	"github.com/zhouzirui/jeff-companion/backend/internal/handler/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/handler/stream"
	"github.com/zhouzirui/jeff-companion/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/jeff-companion/backend/internal/middleware"
	personaModel "github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	chatService "github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
	"github.com/zhouzirui/jeff-companion/backend/pkg/utils"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Personas       personaModel.Store
	Chat           *chatService.Service
	Events         message.Subscriber
	DefaultPersona string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		mood.New().RegisterRoutes(api)
		chat.New(deps.Chat, deps.DefaultPersona).RegisterRoutes(api)
		ws.New(deps.Chat).RegisterRoutes(api)

		if deps.Events != nil {
			stream.New(deps.Chat, deps.Events).RegisterRoutes(api)
		}
	})

	return r
}
