// Package domain contains the core data types for the FLN schedule collector.
// This package has no knowledge of HTTP, files, or databases and is imported
// by every other internal package (upstream, service, report, repo, handler).
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction is one ordered (origin, destination) pair to query.
// JUIST→NORDDEICH and NORDDEICH→JUIST are two distinct directions.
type Direction struct {
	Origin      string
	Destination string
}

// String renders the direction as "ORIGIN→DESTINATION" for logs.
func (d Direction) String() string {
	return d.Origin + "→" + d.Destination
}

// DefaultDirections are the two routes between the mainland and the island.
func DefaultDirections() []Direction {
	return []Direction{
		{Origin: "NORDDEICH", Destination: "JUIST"},
		{Origin: "JUIST", Destination: "NORDDEICH"},
	}
}

// FetchTask identifies a single upstream call: one direction on one day.
// Date is always truncated to midnight; it is formatted only when the
// request URL is built.
type FetchTask struct {
	Origin      string
	Destination string
	Date        time.Time
}

// NewFetchTask builds a FetchTask for dir on the calendar day of date.
func NewFetchTask(dir Direction, date time.Time) FetchTask {
	y, m, d := date.Date()
	return FetchTask{
		Origin:      dir.Origin,
		Destination: dir.Destination,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
	}
}

// String renders the task for log lines, e.g. "NORDDEICH→JUIST 2024-01-01".
func (t FetchTask) String() string {
	return fmt.Sprintf("%s→%s %s", t.Origin, t.Destination, t.Date.Format(time.DateOnly))
}

// TripRecord is one scheduled trip as returned by the upstream API.
// Records are built once from a successful response and never mutated.
type TripRecord struct {
	ID          string
	Origin      string
	Destination string
	Departure   time.Time
	Arrival     time.Time

	StartingPrice float64

	// AdditionalPriceCategories is nil when the upstream sent no tiers.
	// An empty list, empty object or null all map to nil.
	AdditionalPriceCategories json.RawMessage

	Capacity      int
	FreeSeats     int
	ReservedSeats int

	CarTransport     bool
	BicycleTransport bool
	Canceled         bool
	Delayed          bool

	// Additional is free-form upstream info; nil when the upstream sent null.
	Additional json.RawMessage
}
