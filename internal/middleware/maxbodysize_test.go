package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fln-schedule/internal/middleware"
)

func TestMaxBodySizeHandler_RunRequests(t *testing.T) {
	const limit = 64

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantRuns int64
	}{
		{"empty body starts a run", "", http.StatusCreated, 1},
		{"body within limit", `{"note":"manual"}`, http.StatusCreated, 1},
		{"declared length over limit", strings.Repeat("x", limit+1), http.StatusRequestEntityTooLarge, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			apiRouter(runner, limit).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRuns, runner.runs.Load())
		})
	}
}

// TestMaxBodySizeHandler_UnknownLengthCutOff covers chunked bodies: nothing
// is rejected up front, but reads past the limit fail.
func TestMaxBodySizeHandler_UnknownLengthCutOff(t *testing.T) {
	var readErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(strings.Repeat("x", 200)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	middleware.NewMaxBodySizeHandler(100)(next).ServeHTTP(rec, req)

	var tooLarge *http.MaxBytesError
	require.ErrorAs(t, readErr, &tooLarge)
	assert.Equal(t, int64(100), tooLarge.Limit)
}
