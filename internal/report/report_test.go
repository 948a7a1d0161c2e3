package report_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fln-schedule/internal/domain"
	"github.com/pkordes/fln-schedule/internal/report"
)

// ---- helpers ---------------------------------------------------------------

func tableFixture() domain.ScheduleTable {
	dep := time.Date(2024, 1, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600))
	return domain.NewScheduleTable([]domain.TripRecord{
		{
			ID: "t1", Origin: "NORDDEICH", Destination: "JUIST",
			Departure: dep, Arrival: dep.Add(15 * time.Minute),
			StartingPrice: 89.5, Capacity: 8, FreeSeats: 2, ReservedSeats: 1,
			BicycleTransport: true,
		},
		{
			ID: "t2", Origin: "JUIST", Destination: "NORDDEICH",
			Departure: dep.Add(time.Hour), Arrival: dep.Add(75 * time.Minute),
			StartingPrice: 99, Capacity: 8, FreeSeats: 0, ReservedSeats: 8,
			AdditionalPriceCategories: json.RawMessage(`[{"name":"child"}]`),
			Canceled:                  true,
			Additional:                json.RawMessage(`"fog"`),
		},
	})
}

type mockWriter struct {
	err   error
	calls int
}

func (m *mockWriter) Write(context.Context, domain.ScheduleTable, string) error {
	m.calls++
	return m.err
}

var _ report.Writer = (*mockWriter)(nil)

// ---- FileSink: CSV ---------------------------------------------------------

func TestFileSink_CSV_CreatesFolderAndWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "2024-01-01_schedule.csv")

	err := report.NewFileSink().Write(context.Background(), tableFixture(), path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, domain.Columns(), records[0])
	assert.Equal(t, []string{
		"t1", "NORDDEICH", "JUIST", "2024-01-01", "08:30:00", "2024-01-01", "08:45:00",
		"89.5", "", "8", "2", "1", "false", "true", "false", "false", "",
	}, records[1])
	assert.Equal(t, "t2", records[2][0])
	assert.Equal(t, `[{"name":"child"}]`, records[2][8])
	assert.Equal(t, "true", records[2][14])
	assert.Equal(t, `"fog"`, records[2][16])
}

// ---- FileSink: XLSX --------------------------------------------------------

func TestFileSink_XLSX_WritesSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024-01-01_FLN_schedule.xlsx")

	err := report.NewFileSink().Write(context.Background(), tableFixture(), path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.Columns(), rows[0])
	assert.Equal(t, "t1", rows[1][0])
	assert.Equal(t, "NORDDEICH", rows[1][1])
	assert.Equal(t, "2024-01-01", rows[1][3])
	assert.Equal(t, "08:30:00", rows[1][4])
	assert.Equal(t, "89.5", rows[1][7])
	assert.Equal(t, "t2", rows[2][0])
	assert.Equal(t, `[{"name":"child"}]`, rows[2][8])
}

func TestFileSink_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.parquet")

	err := report.NewFileSink().Write(context.Background(), tableFixture(), path)

	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestFileSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := report.NewFileSink().Write(ctx, tableFixture(), filepath.Join(t.TempDir(), "x.csv"))

	assert.ErrorIs(t, err, context.Canceled)
}

// ---- SQLiteSink ------------------------------------------------------------

func TestSQLiteSink_WriteStoresReportAndRows(t *testing.T) {
	sink, err := report.NewSQLiteSink(filepath.Join(t.TempDir(), "schedule.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, tableFixture(), "output/2024-01-01_FLN_schedule.xlsx"))
	require.NoError(t, sink.Write(ctx, tableFixture(), "output/2024-01-02_FLN_schedule.xlsx"))

	var reports, rows int
	require.NoError(t, sink.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schedule_reports`).Scan(&reports))
	require.NoError(t, sink.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schedule_rows`).Scan(&rows))
	assert.Equal(t, 2, reports)
	assert.Equal(t, 4, rows)

	var (
		flightID string
		price    float64
		tiers    *string
		canceled bool
	)
	err = sink.DB().QueryRowContext(ctx, `
		SELECT r.flight_id, r.starting_price, r.additional_price_categories, r.canceled
		FROM schedule_rows r JOIN schedule_reports p ON p.id = r.report_id
		WHERE p.output_path = ? AND r.position = 0`,
		"output/2024-01-02_FLN_schedule.xlsx").Scan(&flightID, &price, &tiers, &canceled)
	require.NoError(t, err)
	assert.Equal(t, "t1", flightID)
	assert.Equal(t, 89.5, price)
	assert.Nil(t, tiers, "absent price tiers are stored as NULL")
	assert.False(t, canceled)
}

// ---- Multi -----------------------------------------------------------------

func TestMulti_AttemptsEveryWriterAndJoinsErrors(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	a, b, c := &mockWriter{err: errA}, &mockWriter{}, &mockWriter{err: errB}

	err := report.Multi(a, nil, b, c).Write(context.Background(), tableFixture(), "p")

	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestMulti_AllSucceed(t *testing.T) {
	a, b := &mockWriter{}, &mockWriter{}

	err := report.Multi(a, b).Write(context.Background(), tableFixture(), "p")

	assert.NoError(t, err)
}
