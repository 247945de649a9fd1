package mood

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New().RegisterRoutes(r)
	return r
}

func TestListMoods(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/moods", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"moods":["happy","sad","neutral","excited","calm"]}`, resp.Body.String())
}

func TestSuggestMood(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/moods/suggest", strings.NewReader(`{"text":"I got a promotion!"}`))
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var got struct {
		Mood string `json:"mood"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "happy", got.Mood)
}

func TestSuggestMoodRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/moods/suggest", strings.NewReader(`{"text":`))
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
