package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// Report is the JSON form of a stored report header.
type Report struct {
	ID         uuid.UUID `json:"id"`
	OutputPath string    `json:"output_path"`
	RowCount   int       `json:"row_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ReportPage is the body of GET /reports.
type ReportPage struct {
	Data       []Report   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListReports handles GET /reports.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	page, err := optionalInt(r, "page")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, err := optionalInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	params := domain.NewPaginationParams(page, limit)
	reports, total, err := s.reports.ListPaged(r.Context(), params)
	if err != nil {
		s.log.ErrorContext(r.Context(), "list reports", "error", err)
		internalError(w)
		return
	}

	data := make([]Report, len(reports))
	for i, rep := range reports {
		data[i] = Report{ID: rep.ID, OutputPath: rep.OutputPath, RowCount: rep.RowCount, CreatedAt: rep.CreatedAt}
	}
	writeJSON(w, http.StatusOK, ReportPage{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetReport handles GET /reports/{id}. Supports ?format=csv like GET /schedule.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "id must be a UUID")
		return
	}
	wantCSV, ok := parseFormat(w, r)
	if !ok {
		return
	}

	rows, err := s.reports.Rows(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFound(w, "report not found")
			return
		}
		s.log.ErrorContext(r.Context(), "load report rows", "report_id", id.String(), "error", err)
		internalError(w)
		return
	}

	if wantCSV {
		s.writeCSV(w, r, id.String()+".csv", rows)
		return
	}
	writeJSON(w, http.StatusOK, rowsToResponse(rows))
}

func optionalInt(r *http.Request, name string) (*int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &n, nil
}
