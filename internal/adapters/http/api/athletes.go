package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/history"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

const maxSearchBodyBytes = 4 << 10

// AthleteHandler handles athlete search and history.
type AthleteHandler struct {
	deps   Dependencies
	logger logger.Logger
}

type searchRequest struct {
	FullName string `json:"fullName"`
}

type searchResponse struct {
	Children []history.Child `json:"children"`
}

// HandleSearch handles POST /search.
func (h *AthleteHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	children, err := h.deps.SearchAthletes(r.Context(), req.FullName)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Children: children})
}

// HandleHistory handles GET /athletes/history?fullName=&gender=.
func (h *AthleteHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.athlete_history"
	q := r.URL.Query()
	gender, err := genderOf(q.Get("gender"))
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	hist, err := h.deps.AthleteHistory(r.Context(), q.Get("fullName"), gender)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
