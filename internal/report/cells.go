// Package report writes finished schedule tables to durable storage:
// spreadsheet and CSV files, a SQLite database and a Redis snapshot.
// Every sink writes the columns in domain.Columns order.
package report

import (
	"encoding/json"
	"strconv"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// rowValues returns the typed cell values of r in column order.
// Absent JSON values become nil so spreadsheet cells stay empty.
func rowValues(r domain.ScheduleRow) []any {
	return []any{
		r.FlightID,
		r.Departure,
		r.Arrival,
		r.DepartureDate,
		r.DepartureTime,
		r.ArrivalDate,
		r.ArrivalTime,
		r.StartingPrice,
		jsonCell(r.AdditionalPriceCategories),
		r.Capacity,
		r.FreeSpots,
		r.ReservedSpots,
		r.CarTransportation,
		r.BicycleTransportation,
		r.Canceled,
		r.Delayed,
		jsonCell(r.Additional),
	}
}

// rowStrings encodes r as CSV fields in column order.
// Absent JSON values are written as empty fields.
func rowStrings(r domain.ScheduleRow) []string {
	return []string{
		r.FlightID,
		r.Departure,
		r.Arrival,
		r.DepartureDate,
		r.DepartureTime,
		r.ArrivalDate,
		r.ArrivalTime,
		strconv.FormatFloat(r.StartingPrice, 'f', -1, 64),
		string(r.AdditionalPriceCategories),
		strconv.Itoa(r.Capacity),
		strconv.Itoa(r.FreeSpots),
		strconv.Itoa(r.ReservedSpots),
		strconv.FormatBool(r.CarTransportation),
		strconv.FormatBool(r.BicycleTransportation),
		strconv.FormatBool(r.Canceled),
		strconv.FormatBool(r.Delayed),
		string(r.Additional),
	}
}

func jsonCell(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
