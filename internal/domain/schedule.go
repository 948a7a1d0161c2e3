package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Layouts used for the split date and time columns of a ScheduleRow.
const (
	DateLayout = time.DateOnly
	TimeLayout = time.TimeOnly
)

// columns is the fixed output column order. Sinks must write in this order.
var columns = []string{
	"Flight ID",
	"Departure",
	"Arrival",
	"Departure Date",
	"Departure Time",
	"Arrival Date",
	"Arrival Time",
	"Starting Price",
	"Additional Price Categories",
	"Flight Capacity",
	"Free Spots",
	"Reserved Spots",
	"Car Transportation",
	"Bicycle Transportation",
	"Canceled",
	"Delayed",
	"Additional",
}

// Columns returns a copy of the output column headers in their fixed order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// ScheduleRow is a TripRecord with its timestamps split into date and time
// parts. Dates and times keep the upstream's own UTC offset; no timezone
// conversion happens.
type ScheduleRow struct {
	FlightID      string
	Departure     string
	Arrival       string
	DepartureDate string // "2006-01-02"
	DepartureTime string // "15:04:05"
	ArrivalDate   string
	ArrivalTime   string

	StartingPrice             float64
	AdditionalPriceCategories json.RawMessage // nil when absent

	Capacity      int
	FreeSpots     int
	ReservedSpots int

	CarTransportation     bool
	BicycleTransportation bool
	Canceled              bool
	Delayed               bool

	Additional json.RawMessage // nil when null
}

// NewScheduleRow derives the normalized row for a single record.
func NewScheduleRow(r TripRecord) ScheduleRow {
	return ScheduleRow{
		FlightID:                  r.ID,
		Departure:                 r.Origin,
		Arrival:                   r.Destination,
		DepartureDate:             r.Departure.Format(DateLayout),
		DepartureTime:             r.Departure.Format(TimeLayout),
		ArrivalDate:               r.Arrival.Format(DateLayout),
		ArrivalTime:               r.Arrival.Format(TimeLayout),
		StartingPrice:             r.StartingPrice,
		AdditionalPriceCategories: r.AdditionalPriceCategories,
		Capacity:                  r.Capacity,
		FreeSpots:                 r.FreeSeats,
		ReservedSpots:             r.ReservedSeats,
		CarTransportation:         r.CarTransport,
		BicycleTransportation:     r.BicycleTransport,
		Canceled:                  r.Canceled,
		Delayed:                   r.Delayed,
		Additional:                r.Additional,
	}
}

// ScheduleTable is the ordered result of one run.
// Rows are sorted by departure date ascending, origin descending and
// departure time ascending.
type ScheduleTable struct {
	Rows []ScheduleRow
}

// NewScheduleTable normalizes records into a sorted table.
// The sort is stable: rows equal on the sort key keep their input order.
// An empty input yields an empty, non-nil table.
func NewScheduleTable(records []TripRecord) ScheduleTable {
	rows := make([]ScheduleRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, NewScheduleRow(r))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rowLess(rows[i], rows[j])
	})
	return ScheduleTable{Rows: rows}
}

// rowLess implements the output ordering. The fixed-width "2006-01-02" and
// "15:04:05" formats compare correctly as strings.
func rowLess(a, b ScheduleRow) bool {
	if a.DepartureDate != b.DepartureDate {
		return a.DepartureDate < b.DepartureDate
	}
	if a.Departure != b.Departure {
		return a.Departure > b.Departure
	}
	return a.DepartureTime < b.DepartureTime
}

// Len returns the number of rows.
func (t ScheduleTable) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t ScheduleTable) Empty() bool { return len(t.Rows) == 0 }
