// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	service "github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/app"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/certificate"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/docsfilter"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/history"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	PreviewImport(ctx context.Context, program model.Program, uploads []csvimport.Upload) (service.ImportPreview, error)
	ConfirmImport(ctx context.Context, program model.Program, rows []model.ImportRow) (service.ImportSummary, error)

	MeetRankings(ctx context.Context, program model.Program, f docsfilter.Filter) ([]service.MeetRanking, error)
	ChallengeRankings(ctx context.Context, f docsfilter.Filter) (service.ChallengeRanking, error)
	HistoricalFirsts(ctx context.Context, program model.Program, f docsfilter.Filter) (service.HistoricalFirsts, error)
	BestTimes(ctx context.Context, program model.Program, fullName string, gender model.Gender) ([]model.ResultRow, error)
	Certificates(ctx context.Context, program model.Program, f docsfilter.Filter) ([]certificate.RecordCertificate, error)
	FirstPrizes(ctx context.Context, program model.Program, f docsfilter.Filter) ([]certificate.FirstPrizeAward, error)

	AllowSearch(clientKey string) bool
	SearchAthletes(ctx context.Context, fullName string) ([]history.Child, error)
	AthleteHistory(ctx context.Context, fullName string, gender model.Gender) (service.AthleteHistory, error)
}

const defaultMaxUploadBytes int64 = 10 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	importHandler  *ImportHandler
	reportHandler  *ReportHandler
	athleteHandler *AthleteHandler
	deps           Dependencies
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxUploadBytes int64
	logger         logger.Logger
}

// WithMaxUploadBytes caps request bodies of the import routes.
func WithMaxUploadBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for internal errors.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		importHandler:  &ImportHandler{deps: deps, maxUploadBytes: cfg.maxUploadBytes, logger: cfg.logger},
		reportHandler:  &ReportHandler{deps: deps, logger: cfg.logger},
		athleteHandler: &AthleteHandler{deps: deps, logger: cfg.logger},
		deps:           deps,
		logger:         cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /import/{program}/preview", MetricsMiddleware(s.importHandler.HandlePreview, "import_preview"))
	mux.HandleFunc("POST /import/{program}/confirm", MetricsMiddleware(s.importHandler.HandleConfirm, "import_confirm"))

	mux.HandleFunc("GET /rankings/{program}", MetricsMiddleware(s.reportHandler.HandleMeetRankings, "rankings"))
	mux.HandleFunc("GET /challenge/rankings", MetricsMiddleware(s.reportHandler.HandleChallengeRankings, "challenge_rankings"))
	mux.HandleFunc("GET /records/{program}/historical-firsts", MetricsMiddleware(s.reportHandler.HandleHistoricalFirsts, "historical_firsts"))
	mux.HandleFunc("GET /records/{program}/best", MetricsMiddleware(s.reportHandler.HandleBestTimes, "best_times"))
	mux.HandleFunc("GET /documents/{program}/certificates", MetricsMiddleware(s.reportHandler.HandleCertificates, "certificates"))
	mux.HandleFunc("GET /documents/{program}/first-prizes", MetricsMiddleware(s.reportHandler.HandleFirstPrizes, "first_prizes"))

	mux.HandleFunc("POST /search", MetricsMiddleware(
		RateLimitMiddleware(s.athleteHandler.HandleSearch, "search", s.deps.AllowSearch), "search"))
	mux.HandleFunc("GET /athletes/history", MetricsMiddleware(s.athleteHandler.HandleHistory, "athlete_history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err to a status and logs server-side failures.
func writeFailure(ctx context.Context, w http.ResponseWriter, l logger.Logger, op string, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func programOf(r *http.Request) (model.Program, error) {
	p, err := model.ParseProgram(r.PathValue("program"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return p, nil
}

func filterOf(q url.Values) (docsfilter.Filter, error) {
	return docsfilter.Parse(docsfilter.Input{
		Year:     q.Get("year"),
		Month:    q.Get("month"),
		Weekday:  q.Get("weekday"),
		FullName: q.Get("fullName"),
	})
}

// genderOf accepts an empty gender as "any".
func genderOf(raw string) (model.Gender, error) {
	if raw == "" {
		return "", nil
	}
	return model.ParseGender(raw)
}
