package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/fln-schedule/internal/domain"
	"github.com/pkordes/fln-schedule/internal/report"
)

// ScheduleRow is the JSON form of one table row.
// Absent price tiers and additional data encode as null.
type ScheduleRow struct {
	FlightID                  string             `json:"flight_id"`
	Departure                 string             `json:"departure"`
	Arrival                   string             `json:"arrival"`
	DepartureDate             openapi_types.Date `json:"departure_date"`
	DepartureTime             string             `json:"departure_time"`
	ArrivalDate               openapi_types.Date `json:"arrival_date"`
	ArrivalTime               string             `json:"arrival_time"`
	StartingPrice             float64            `json:"starting_price"`
	AdditionalPriceCategories json.RawMessage    `json:"additional_price_categories"`
	FlightCapacity            int                `json:"flight_capacity"`
	FreeSpots                 int                `json:"free_spots"`
	ReservedSpots             int                `json:"reserved_spots"`
	CarTransportation         bool               `json:"car_transportation"`
	BicycleTransportation     bool               `json:"bicycle_transportation"`
	Canceled                  bool               `json:"canceled"`
	Delayed                   bool               `json:"delayed"`
	Additional                json.RawMessage    `json:"additional"`
}

// ScheduleResponse is the body of GET /schedule.
type ScheduleResponse struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Rows      []ScheduleRow `json:"rows"`
}

// GetSchedule handles GET /schedule.
// It returns the table of the most recent run. Use ?format=csv to receive
// CSV; default is JSON. Answers 404 until a run has finished.
func (s *Server) GetSchedule(w http.ResponseWriter, r *http.Request) {
	wantCSV, ok := parseFormat(w, r)
	if !ok {
		return
	}

	res, found := s.runs.Latest()
	if !found {
		notFound(w, "no run has finished yet")
		return
	}

	if wantCSV {
		name := "schedule.csv"
		if res.OutputPath != "" {
			base := filepath.Base(res.OutputPath)
			name = strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
		}
		s.writeCSV(w, r, name, res.Table.Rows)
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		Rows:      rowsToResponse(res.Table.Rows),
	})
}

// parseFormat reads the ?format= parameter. It answers 400 itself and
// returns ok=false for unknown values.
func parseFormat(w http.ResponseWriter, r *http.Request) (wantCSV, ok bool) {
	switch f := r.URL.Query().Get("format"); f {
	case "", "json":
		return false, true
	case "csv":
		return true, true
	default:
		badRequest(w, "format must be json or csv, got "+f)
		return false, false
	}
}

// writeCSV buffers the encoded rows so an encoding failure can still be
// answered with a proper error status.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, rows []domain.ScheduleRow) {
	var buf bytes.Buffer
	if err := report.EncodeCSV(&buf, rows); err != nil {
		s.log.ErrorContext(r.Context(), "encode csv", "error", err)
		internalError(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func rowsToResponse(rows []domain.ScheduleRow) []ScheduleRow {
	out := make([]ScheduleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToResponse(r))
	}
	return out
}

func rowToResponse(r domain.ScheduleRow) ScheduleRow {
	return ScheduleRow{
		FlightID:                  r.FlightID,
		Departure:                 r.Departure,
		Arrival:                   r.Arrival,
		DepartureDate:             toDate(r.DepartureDate),
		DepartureTime:             r.DepartureTime,
		ArrivalDate:               toDate(r.ArrivalDate),
		ArrivalTime:               r.ArrivalTime,
		StartingPrice:             r.StartingPrice,
		AdditionalPriceCategories: r.AdditionalPriceCategories,
		FlightCapacity:            r.Capacity,
		FreeSpots:                 r.FreeSpots,
		ReservedSpots:             r.ReservedSpots,
		CarTransportation:         r.CarTransportation,
		BicycleTransportation:     r.BicycleTransportation,
		Canceled:                  r.Canceled,
		Delayed:                   r.Delayed,
		Additional:                r.Additional,
	}
}

// toDate converts a row date to openapi_types.Date. Rows are built by
// domain.NewScheduleRow, so the layout always matches; a malformed value
// yields the zero date.
func toDate(s string) openapi_types.Date {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return openapi_types.Date{}
	}
	return openapi_types.Date{Time: t}
}
