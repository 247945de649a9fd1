package mood

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	analysis "github.com/zhouzirui/jeff-companion/backend/internal/analysis/mood"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/pkg/utils"
)

// Handler serves the mood selector options and suggestions.
type Handler struct{}

// New creates the mood handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes registers the mood routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/moods", h.handleListMoods)
	r.Post("/moods/suggest", h.handleSuggest)
}

func (h *Handler) handleListMoods(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]chat.Mood{"moods": chat.Moods()})
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, analysis.Suggest(payload.Text))
}
