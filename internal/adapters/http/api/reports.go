package api

import (
	"context"
	"net/http"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/docsfilter"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// ReportHandler serves rankings, records and document data.
type ReportHandler struct {
	deps   Dependencies
	logger logger.Logger
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// programFilter parses the path program and the document filter query.
func (h *ReportHandler) programFilter(w http.ResponseWriter, r *http.Request, op string) (model.Program, docsfilter.Filter, bool) {
	program, err := programOf(r)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return "", docsfilter.Filter{}, false
	}
	f, err := filterOf(r.URL.Query())
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return "", docsfilter.Filter{}, false
	}
	return program, f, true
}

func serveList[T any](h *ReportHandler, w http.ResponseWriter, r *http.Request, op string,
	load func(context.Context, model.Program, docsfilter.Filter) ([]T, error)) {
	program, f, ok := h.programFilter(w, r, op)
	if !ok {
		return
	}
	items, err := load(r.Context(), program, f)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Items: items})
}

// HandleMeetRankings handles GET /rankings/{program}.
func (h *ReportHandler) HandleMeetRankings(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, "api.meet_rankings", h.deps.MeetRankings)
}

// HandleCertificates handles GET /documents/{program}/certificates.
func (h *ReportHandler) HandleCertificates(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, "api.certificates", h.deps.Certificates)
}

// HandleFirstPrizes handles GET /documents/{program}/first-prizes.
func (h *ReportHandler) HandleFirstPrizes(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, "api.first_prizes", h.deps.FirstPrizes)
}

// HandleChallengeRankings handles GET /challenge/rankings.
func (h *ReportHandler) HandleChallengeRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.challenge_rankings"
	f, err := filterOf(r.URL.Query())
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	ranking, err := h.deps.ChallengeRankings(r.Context(), f)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// HandleHistoricalFirsts handles GET /records/{program}/historical-firsts.
func (h *ReportHandler) HandleHistoricalFirsts(w http.ResponseWriter, r *http.Request) {
	const op = "api.historical_firsts"
	program, f, ok := h.programFilter(w, r, op)
	if !ok {
		return
	}
	firsts, err := h.deps.HistoricalFirsts(r.Context(), program, f)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, firsts)
}

// HandleBestTimes handles GET /records/{program}/best?fullName=&gender=.
func (h *ReportHandler) HandleBestTimes(w http.ResponseWriter, r *http.Request) {
	const op = "api.best_times"
	program, err := programOf(r)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	q := r.URL.Query()
	gender, err := genderOf(q.Get("gender"))
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	rows, err := h.deps.BestTimes(r.Context(), program, q.Get("fullName"), gender)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[model.ResultRow]{Items: rows})
}
