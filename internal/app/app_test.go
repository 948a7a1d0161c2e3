package app_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fln-schedule/internal/app"
	"github.com/pkordes/fln-schedule/internal/config"
	"github.com/pkordes/fln-schedule/internal/domain"
)

// upstreamStub answers every request with a single trip whose id encodes
// the requested origin and date.
func upstreamStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		body := fmt.Sprintf(`{"data":{"trips":[{
			"id": %q,
			"date": "%sT09:00:00+01:00",
			"arrivalDate": "%sT09:15:00+01:00",
			"startingPrice": 89.5,
			"capacity": 8,
			"capacityMap": {"PERSON": {"free": 3, "reserved": 5}},
			"carTransport": false,
			"bicycleTransport": false,
			"canceled": false,
			"delayed": false,
			"additional": null
		}]}}`, q.Get("from")+"-"+q.Get("date"), q.Get("date"), q.Get("date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func baseConfig(t *testing.T, upstreamURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Days:           2,
		OutputFolder:   filepath.Join(dir, "out"),
		OutputFile:     "schedule.csv",
		Concurrency:    2,
		DateLayout:     time.DateOnly,
		Directions:     domain.DefaultDirections(),
		UpstreamURL:    upstreamURL,
		TripTypes:      []string{"LIGHT_AIRCRAFT"},
		Providers:      []string{"p1"},
		FetchTimeout:   5 * time.Second,
		UserAgentCount: 10,
		LogLevel:       "info",
		LogFormat:      "text",
		SQLitePath:     filepath.Join(dir, "schedule.db"),
	}
}

func TestBuild_RunDeliversToFileAndSQLite(t *testing.T) {
	cfg := baseConfig(t, upstreamStub(t).URL)

	a, err := app.Build(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.Reports, "no DATABASE_URL means no report store")

	res, err := a.Service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunDelivered, res.State)
	assert.Equal(t, 4, res.Tasks)
	require.Equal(t, 4, res.Table.Len())

	wantPath := filepath.Join(cfg.OutputFolder, res.StartedAt.Format(time.DateOnly)+"_schedule.csv")
	assert.Equal(t, wantPath, res.OutputPath)
	content, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(content), "\n"), "header plus four rows")

	require.NoError(t, a.Close())
	db, err := sql.Open("sqlite3", cfg.SQLitePath)
	require.NoError(t, err)
	defer db.Close()
	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schedule_rows`).Scan(&rows))
	assert.Equal(t, 4, rows)
}

func TestBuild_RedisSinkReceivesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig(t, upstreamStub(t).URL)
	cfg.SQLitePath = ""
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RedisKey = "fln:test"

	a, err := app.Build(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Service.Run(context.Background())
	require.NoError(t, err)

	raw, err := mr.Get("fln:test")
	require.NoError(t, err)
	var snap struct {
		OutputPath string     `json:"output_path"`
		Rows       [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, res.OutputPath, snap.OutputPath)
	assert.Len(t, snap.Rows, 4)
}

func TestBuild_BadRedisURLFails(t *testing.T) {
	cfg := baseConfig(t, "http://unused.test")
	cfg.RedisURL = "mysql://nope"

	_, err := app.Build(context.Background(), cfg, slog.New(slog.DiscardHandler))

	require.Error(t, err)
}

func TestBuild_BadProxyFails(t *testing.T) {
	cfg := baseConfig(t, "http://unused.test")
	cfg.Proxy = "://bad"

	_, err := app.Build(context.Background(), cfg, slog.New(slog.DiscardHandler))

	require.Error(t, err)
}

func TestNewLogger_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fln.log")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	logger, closeFn, err := app.NewLogger(config.Config{LogFile: path, LogFormat: "json", LogLevel: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "run_id", "r1")
	require.NoError(t, closeFn())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2, "file is appended to and info is filtered out")
	assert.Equal(t, "previous", lines[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "r1", entry["run_id"])
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fln.log")

	logger, closeFn, err := app.NewLogger(config.Config{LogFile: path, LogFormat: "text", LogLevel: "loud"})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, closeFn())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "level=INFO msg=shown")
}
