// Package repo contains the Postgres persistence for delivered schedule tables.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ScheduleRepo defines the persistence operations for delivered schedule tables.
type ScheduleRepo interface {
	// Write stores table as a new report. It satisfies the service's sink
	// contract so the repo can be handed to the schedule service directly.
	Write(ctx context.Context, table domain.ScheduleTable, path string) error

	// Save stores table as a new report and returns the persisted header.
	Save(ctx context.Context, table domain.ScheduleTable, path string) (domain.Report, error)

	// ListPaged returns one page of reports, newest first, and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Report, int64, error)

	// Rows returns the rows of one report in table order.
	// Returns domain.ErrNotFound if the report does not exist.
	Rows(ctx context.Context, reportID uuid.UUID) ([]domain.ScheduleRow, error)
}

// pgScheduleRepo is the Postgres implementation of ScheduleRepo.
type pgScheduleRepo struct {
	db db
}

// NewScheduleRepo constructs a ScheduleRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewScheduleRepo(db db) ScheduleRepo {
	return &pgScheduleRepo{db: db}
}

var rowColumns = []string{
	"report_id", "position", "flight_id", "departure", "arrival",
	"departure_date", "departure_time", "arrival_date", "arrival_time",
	"starting_price", "additional_price_categories",
	"capacity", "free_spots", "reserved_spots",
	"car_transportation", "bicycle_transportation", "canceled", "delayed",
	"additional",
}

// Write implements the sink contract on top of Save.
func (r *pgScheduleRepo) Write(ctx context.Context, table domain.ScheduleTable, path string) error {
	if _, err := r.Save(ctx, table, path); err != nil {
		return err
	}
	return nil
}

// Save inserts the report header and bulk-copies its rows in one transaction.
func (r *pgScheduleRepo) Save(ctx context.Context, table domain.ScheduleTable, path string) (_ domain.Report, err error) {
	copyRows, err := toCopyRows(table.Rows)
	if err != nil {
		return domain.Report{}, fmt.Errorf("repo.ScheduleRepo.Save: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("repo.ScheduleRepo.Save: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const q = `
		INSERT INTO schedule_reports (output_path, row_count)
		VALUES (@output_path, @row_count)
		RETURNING id, output_path, row_count, created_at`

	report, err := scanReport(tx.QueryRow(ctx, q, pgx.NamedArgs{
		"output_path": path,
		"row_count":   table.Len(),
	}))
	if err != nil {
		return domain.Report{}, fmt.Errorf("repo.ScheduleRepo.Save: insert report: %w", err)
	}

	for _, row := range copyRows {
		row[0] = report.ID
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"schedule_rows"}, rowColumns, pgx.CopyFromRows(copyRows))
	if err != nil {
		return domain.Report{}, fmt.Errorf("repo.ScheduleRepo.Save: copy rows: %w", err)
	}
	if int(n) != table.Len() {
		err = fmt.Errorf("repo.ScheduleRepo.Save: copied %d of %d rows", n, table.Len())
		return domain.Report{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Report{}, fmt.Errorf("repo.ScheduleRepo.Save: commit: %w", err)
	}
	return report, nil
}

// ListPaged returns one page of reports ordered by created_at descending.
func (r *pgScheduleRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Report, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM schedule_reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: count: %w", err)
	}

	const q = `
		SELECT id, output_path, row_count, created_at
		FROM schedule_reports
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	reports := []domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: scan: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: rows: %w", err)
	}
	return reports, total, nil
}

// Rows returns a report's rows ordered by their table position.
func (r *pgScheduleRepo) Rows(ctx context.Context, reportID uuid.UUID) ([]domain.ScheduleRow, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedule_reports WHERE id = @id)`,
		pgx.NamedArgs{"id": reportID}).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleRepo.Rows: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("repo.ScheduleRepo.Rows: %w", domain.ErrNotFound)
	}

	const q = `
		SELECT flight_id, departure, arrival,
		       departure_date, departure_time, arrival_date, arrival_time,
		       starting_price, additional_price_categories,
		       capacity, free_spots, reserved_spots,
		       car_transportation, bicycle_transportation, canceled, delayed,
		       additional
		FROM schedule_rows
		WHERE report_id = @id
		ORDER BY position`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"id": reportID})
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleRepo.Rows: %w", err)
	}
	defer rows.Close()

	out := []domain.ScheduleRow{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ScheduleRepo.Rows: scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ScheduleRepo.Rows: rows: %w", err)
	}
	return out, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (domain.Report, error) {
	var (
		rep domain.Report
		id  pgtype.UUID
	)
	if err := s.Scan(&id, &rep.OutputPath, &rep.RowCount, &rep.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, err
	}
	rep.ID = uuid.UUID(id.Bytes)
	return rep, nil
}

// scanRow maps a schedule_rows row back into a domain.ScheduleRow, rendering
// the DATE and TIME columns in the domain layouts.
func scanRow(s scanner) (domain.ScheduleRow, error) {
	var (
		row              domain.ScheduleRow
		depDate, arrDate pgtype.Date
		depTime, arrTime pgtype.Time
		tiers, extra     []byte
	)
	err := s.Scan(
		&row.FlightID, &row.Departure, &row.Arrival,
		&depDate, &depTime, &arrDate, &arrTime,
		&row.StartingPrice, &tiers,
		&row.Capacity, &row.FreeSpots, &row.ReservedSpots,
		&row.CarTransportation, &row.BicycleTransportation, &row.Canceled, &row.Delayed,
		&extra,
	)
	if err != nil {
		return domain.ScheduleRow{}, err
	}

	row.DepartureDate = depDate.Time.Format(domain.DateLayout)
	row.ArrivalDate = arrDate.Time.Format(domain.DateLayout)
	row.DepartureTime = formatTime(depTime)
	row.ArrivalTime = formatTime(arrTime)
	if tiers != nil {
		row.AdditionalPriceCategories = json.RawMessage(tiers)
	}
	if extra != nil {
		row.Additional = json.RawMessage(extra)
	}
	return row, nil
}

// toCopyRows converts rows to CopyFrom values. The first value of each row
// is a placeholder for the report id, filled in once the header is inserted.
func toCopyRows(rows []domain.ScheduleRow) ([][]any, error) {
	out := make([][]any, 0, len(rows))
	for i, r := range rows {
		depDate, err := parseDate(r.DepartureDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		arrDate, err := parseDate(r.ArrivalDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		depTime, err := parseTime(r.DepartureTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		arrTime, err := parseTime(r.ArrivalTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		out = append(out, []any{
			nil, i,
			r.FlightID, r.Departure, r.Arrival,
			depDate, depTime, arrDate, arrTime,
			r.StartingPrice, jsonArg(r.AdditionalPriceCategories),
			r.Capacity, r.FreeSpots, r.ReservedSpots,
			r.CarTransportation, r.BicycleTransportation, r.Canceled, r.Delayed,
			jsonArg(r.Additional),
		})
	}
	return out, nil
}

func parseDate(s string) (pgtype.Date, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func parseTime(s string) (pgtype.Time, error) {
	t, err := time.Parse(domain.TimeLayout, s)
	if err != nil {
		return pgtype.Time{}, err
	}
	us := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond) +
		int64(t.Second())*int64(time.Second/time.Microsecond)
	return pgtype.Time{Microseconds: us, Valid: true}, nil
}

func formatTime(t pgtype.Time) string {
	d := time.Duration(t.Microseconds) * time.Microsecond
	return time.Time{}.Add(d).Format(domain.TimeLayout)
}

// jsonArg returns nil for absent values so the column is stored as NULL.
func jsonArg(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
