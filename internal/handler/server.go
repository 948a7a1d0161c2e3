// Package handler implements the HTTP handlers for the schedule API.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, run.go, schedule.go, report.go) and share the Server
// struct for their dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/fln-schedule/api"
	"github.com/pkordes/fln-schedule/internal/domain"
)

// ScheduleRunner is the collection service the run and schedule handlers depend on.
type ScheduleRunner interface {
	Run(ctx context.Context) (domain.RunResult, error)
	Latest() (domain.RunResult, bool)
}

// ReportStore is the read side of the database sink.
type ReportStore interface {
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Report, int64, error)
	Rows(ctx context.Context, reportID uuid.UUID) ([]domain.ScheduleRow, error)
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	runs    ScheduleRunner
	reports ReportStore
	log     *slog.Logger
}

// NewServer constructs the Server. reports may be nil, in which case the
// /reports routes are not registered. A nil logger discards output.
func NewServer(runs ScheduleRunner, reports ReportStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{runs: runs, reports: reports, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil)
}

// Routes returns a router with every endpoint the Server's dependencies allow.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	if s.runs != nil {
		r.Post("/runs", s.CreateRun)
		r.Get("/schedule", s.GetSchedule)
	}
	if s.reports != nil {
		r.Get("/reports", s.ListReports)
		r.Get("/reports/{id}", s.GetReport)
	}
	return r
}

// GetOpenAPI handles GET /openapi.yaml.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPI)
}
