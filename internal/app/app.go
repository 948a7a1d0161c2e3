// Package app wires configuration into the running collector: logger,
// upstream client, sinks and the schedule service. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/fln-schedule/internal/config"
	"github.com/pkordes/fln-schedule/internal/repo"
	"github.com/pkordes/fln-schedule/internal/report"
	"github.com/pkordes/fln-schedule/internal/service"
	"github.com/pkordes/fln-schedule/internal/throttle"
	"github.com/pkordes/fln-schedule/internal/upstream"
	"github.com/pkordes/fln-schedule/internal/useragent"
	"github.com/pkordes/fln-schedule/migrations"
)

// NewLogger builds the process logger from cfg. Output goes to LOG_FILE
// (appended) when set, otherwise to stdout. The returned close function
// releases the log file and is safe to call when logging to stdout.
func NewLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer = os.Stdout
		closeFn           = func() error { return nil }
	)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("app.NewLogger: open log file: %w", err)
		}
		out, closeFn = f, f.Close
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closeFn, nil
}

// App is a fully wired collector.
type App struct {
	Service *service.ScheduleService

	// Reports is the read side of the Postgres sink; nil without DATABASE_URL.
	Reports repo.ScheduleRepo

	closers []func() error
}

// Build constructs every component cfg enables. The file sink is always
// present; SQLite, Redis and Postgres sinks are added when configured. Call Close
// when done.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	httpClient, err := upstream.NewHTTPClient(upstream.HTTPOptions{
		Proxy:              cfg.Proxy,
		Timeout:            cfg.FetchTimeout,
		InsecureSkipVerify: cfg.TLSInsecure,
		MaxConnsPerHost:    cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	client := upstream.NewClient(upstream.Options{
		HTTPClient: httpClient,
		BaseURL:    cfg.UpstreamURL,
		Agents:     useragent.Generate(cfg.UserAgentCount, nil),
		Throttle:   throttle.New(cfg.Concurrency),
		Logger:     log,
		DateLayout: cfg.DateLayout,
		Types:      cfg.TripTypes,
		Providers:  cfg.Providers,
	})

	sinks := []report.Writer{report.NewFileSink()}

	if cfg.SQLitePath != "" {
		sqlite, err := report.NewSQLiteSink(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app.Build: %w", err)
		}
		a.closers = append(a.closers, sqlite.Close)
		sinks = append(sinks, sqlite)
		log.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app.Build: redis url: %w", err)
		}
		rs := report.NewRedisSink(redis.NewClient(opts), cfg.RedisKey, cfg.RedisTTL)
		a.closers = append(a.closers, rs.Close)
		sinks = append(sinks, rs)
		log.Info("redis sink enabled", "key", cfg.RedisKey)
	}

	if cfg.DatabaseURL != "" {
		pool, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("app.Build: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Reports = repo.NewScheduleRepo(pool)
		sinks = append(sinks, a.Reports)
		log.Info("postgres sink enabled")
	}

	a.Service = service.NewScheduleService(client, report.Multi(sinks...), service.ScheduleOptions{
		Directions: cfg.Directions,
		Days:       cfg.Days,
		DateLayout: cfg.DateLayout,
		Folder:     cfg.OutputFolder,
		File:       cfg.OutputFile,
		Logger:     log,
	})
	return a, nil
}

// Close releases every resource Build opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenPostgres connects to dsn, verifies the connection and applies all
// pending goose migrations.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("app.OpenPostgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenPostgres: ping: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenPostgres: goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenPostgres: migrate: %w", err)
	}
	return pool, nil
}
