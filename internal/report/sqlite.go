package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/pkordes/fln-schedule/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schedule_reports (
	id          TEXT PRIMARY KEY,
	output_path TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	created_at  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS schedule_rows (
	report_id                   TEXT NOT NULL REFERENCES schedule_reports(id) ON DELETE CASCADE,
	position                    INTEGER NOT NULL,
	flight_id                   TEXT NOT NULL,
	departure                   TEXT NOT NULL,
	arrival                     TEXT NOT NULL,
	departure_date              TEXT NOT NULL,
	departure_time              TEXT NOT NULL,
	arrival_date                TEXT NOT NULL,
	arrival_time                TEXT NOT NULL,
	starting_price              REAL NOT NULL,
	additional_price_categories TEXT,
	capacity                    INTEGER NOT NULL,
	free_spots                  INTEGER NOT NULL,
	reserved_spots              INTEGER NOT NULL,
	car_transportation          BOOLEAN NOT NULL,
	bicycle_transportation      BOOLEAN NOT NULL,
	canceled                    BOOLEAN NOT NULL,
	delayed                     BOOLEAN NOT NULL,
	additional                  TEXT,
	PRIMARY KEY (report_id, position)
);`

// SQLiteSink appends every delivered table to a local SQLite database as a
// new report. Rows keep their table position.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("report.NewSQLiteSink: open: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("report.NewSQLiteSink: schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// DB exposes the underlying handle for read-side callers and tests.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *SQLiteSink) Close() error { return s.db.Close() }

// Write stores table as one report in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, table domain.ScheduleTable, path string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("report.SQLiteSink.Write: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	reportID := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedule_reports (id, output_path, row_count, created_at) VALUES (?, ?, ?, ?)`,
		reportID, path, table.Len(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("report.SQLiteSink.Write: insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO schedule_rows (
			report_id, position, flight_id, departure, arrival,
			departure_date, departure_time, arrival_date, arrival_time,
			starting_price, additional_price_categories, capacity, free_spots, reserved_spots,
			car_transportation, bicycle_transportation, canceled, delayed, additional
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("report.SQLiteSink.Write: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range table.Rows {
		args := append([]any{reportID, i}, rowValues(r)...)
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("report.SQLiteSink.Write: insert row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("report.SQLiteSink.Write: commit: %w", err)
	}
	return nil
}
