package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// RunResponse summarizes one finished run.
type RunResponse struct {
	RunID           uuid.UUID       `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Tasks           int             `json:"tasks"`
	Rows            int             `json:"rows"`
	OutputPath      string          `json:"output_path,omitempty"`
	State           domain.RunState `json:"state"`
}

// CreateRun handles POST /runs. It blocks until the run has finished.
// A delivery failure answers 502 with the run summary as body.
// The run outlives the request: a client that disconnects does not abort it.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.runs.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrDelivery) {
			writeJSON(w, http.StatusBadGateway, runToResponse(res))
			return
		}
		s.log.ErrorContext(r.Context(), "run failed", "error", err)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, runToResponse(res))
}

func runToResponse(res domain.RunResult) RunResponse {
	return RunResponse{
		RunID:           res.RunID,
		StartedAt:       res.StartedAt,
		DurationSeconds: res.Duration.Seconds(),
		Tasks:           res.Tasks,
		Rows:            res.Table.Len(),
		OutputPath:      res.OutputPath,
		State:           res.State,
	}
}
