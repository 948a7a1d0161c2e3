package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fln-schedule/internal/domain"
	"github.com/pkordes/fln-schedule/internal/handler"
)

// ---- mock ReportStore ------------------------------------------------------

type mockReportStore struct {
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Report, int64, error)
	rows      func(ctx context.Context, id uuid.UUID) ([]domain.ScheduleRow, error)
}

func (m *mockReportStore) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Report, int64, error) {
	return m.listPaged(ctx, p)
}

func (m *mockReportStore) Rows(ctx context.Context, id uuid.UUID) ([]domain.ScheduleRow, error) {
	return m.rows(ctx, id)
}

// compile-time check: mockReportStore must satisfy handler.ReportStore.
var _ handler.ReportStore = (*mockReportStore)(nil)

func newReportHTTPHandler(store handler.ReportStore) http.Handler {
	return handler.NewServer(nil, store, nil).Routes()
}

// ---- GET /reports ----------------------------------------------------------

func TestListReports_DefaultPagination(t *testing.T) {
	created := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	rep := domain.Report{ID: uuid.New(), OutputPath: "output/a.xlsx", RowCount: 12, CreatedAt: created}

	var got domain.PaginationParams
	store := &mockReportStore{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Report, int64, error) {
			got = p
			return []domain.Report{rep}, 41, nil
		},
	}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, got)

	var body handler.ReportPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, rep.ID, body.Data[0].ID)
	assert.Equal(t, 12, body.Data[0].RowCount)
	assert.True(t, created.Equal(body.Data[0].CreatedAt))
	assert.Equal(t, handler.Pagination{Page: 1, Limit: 20, Total: 41}, body.Pagination)
}

func TestListReports_LimitCapped(t *testing.T) {
	var got domain.PaginationParams
	store := &mockReportStore{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Report, int64, error) {
			got = p
			return []domain.Report{}, 0, nil
		},
	}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?page=3&limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 3, Limit: 100}, got)
}

func TestListReports_HugePageKeepsOffsetPositive(t *testing.T) {
	var got domain.PaginationParams
	store := &mockReportStore{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Report, int64, error) {
			got = p
			return []domain.Report{}, 3, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports?page=9223372036854775807&limit=100", nil)
	newReportHTTPHandler(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MaxPage, got.Page)
	assert.Positive(t, got.Offset())
}

func TestListReports_BadPage_Returns400(t *testing.T) {
	store := &mockReportStore{}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?page=first", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReports_StoreError_Returns500(t *testing.T) {
	store := &mockReportStore{
		listPaged: func(context.Context, domain.PaginationParams) ([]domain.Report, int64, error) {
			return nil, 0, errors.New("connection refused")
		},
	}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /reports/{id} -----------------------------------------------------

func TestGetReport_JSON(t *testing.T) {
	id := uuid.New()
	store := &mockReportStore{
		rows: func(_ context.Context, got uuid.UUID) ([]domain.ScheduleRow, error) {
			require.Equal(t, id, got)
			return runFixture().Table.Rows, nil
		},
	}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+id.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []handler.ScheduleRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "t1", rows[0].FlightID)
	assert.Equal(t, "2024-01-01", rows[0].DepartureDate.String())
	assert.Equal(t, 8, rows[0].FlightCapacity)
}

func TestGetReport_CSV(t *testing.T) {
	id := uuid.New()
	store := &mockReportStore{
		rows: func(context.Context, uuid.UUID) ([]domain.ScheduleRow, error) {
			return runFixture().Table.Rows, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/reports/%s?format=csv", id), nil)
	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), id.String()+".csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestGetReport_BadID_Returns400(t *testing.T) {
	rec := httptest.NewRecorder()
	newReportHTTPHandler(&mockReportStore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/not-a-uuid", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport_NotFound_Returns404(t *testing.T) {
	store := &mockReportStore{
		rows: func(context.Context, uuid.UUID) ([]domain.ScheduleRow, error) {
			return nil, fmt.Errorf("repo.ScheduleRepo.Rows: %w", domain.ErrNotFound)
		},
	}

	rec := httptest.NewRecorder()
	newReportHTTPHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+uuid.NewString(), nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
