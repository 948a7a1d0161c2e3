package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/pkordes/fln-schedule/internal/domain"
	"github.com/pkordes/fln-schedule/internal/handler"
	"github.com/pkordes/fln-schedule/internal/middleware"
)

const frontendOrigin = "http://localhost:5173"

// stubRunner counts runs and serves one finished run as the latest.
type stubRunner struct {
	runs atomic.Int64
}

func (s *stubRunner) Run(context.Context) (domain.RunResult, error) {
	s.runs.Add(1)
	return s.latest(), nil
}

func (s *stubRunner) Latest() (domain.RunResult, bool) { return s.latest(), true }

func (s *stubRunner) latest() domain.RunResult {
	return domain.RunResult{
		Table:      domain.NewScheduleTable(nil),
		OutputPath: "output/2024-01-01_FLN_schedule.xlsx",
		State:      domain.RunDelivered,
	}
}

var _ handler.ScheduleRunner = (*stubRunner)(nil)

// apiRouter mounts the schedule API behind the CORS and body-size
// middleware, in the order the server uses.
func apiRouter(runner handler.ScheduleRunner, bodyLimit int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewCORSHandler([]string{frontendOrigin}))
	r.Use(middleware.NewMaxBodySizeHandler(bodyLimit))
	r.Mount("/", handler.NewServer(runner, nil, nil).Routes())
	return r
}

func TestCORSHandler_RunPreflight(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		method      string
		wantAllowed bool
	}{
		{"frontend may trigger a run", frontendOrigin, http.MethodPost, true},
		{"unknown origin", "http://evil.example.com", http.MethodPost, false},
		{"method outside the API", frontendOrigin, http.MethodDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", tt.method)
			// Browsers send requested header names in lowercase.
			req.Header.Set("Access-Control-Request-Headers", "content-type")
			rec := httptest.NewRecorder()

			apiRouter(runner, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Zero(t, runner.runs.Load(), "a preflight never starts a run")
			if tt.wantAllowed {
				assert.Equal(t, frontendOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, tt.method, rec.Header().Get("Access-Control-Allow-Methods"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

// TestCORSHandler_ScheduleCSV_ExposesContentDisposition checks the browser
// can read the download filename of the CSV export.
func TestCORSHandler_ScheduleCSV_ExposesContentDisposition(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/schedule?format=csv", nil)
	req.Header.Set("Origin", frontendOrigin)
	rec := httptest.NewRecorder()

	apiRouter(&stubRunner{}, 1<<20).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, frontendOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "2024-01-01_FLN_schedule.csv")
}

func TestCORSHandler_UnknownOriginStillServed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()

	apiRouter(&stubRunner{}, 1<<20).ServeHTTP(rec, req)

	// The browser blocks the response; the server does not.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
