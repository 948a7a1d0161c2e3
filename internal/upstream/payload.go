package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// tripsResponse mirrors the envelope {"data": {"trips": [...]}}.
// Pointers distinguish a missing field from a zero value.
type tripsResponse struct {
	Data *struct {
		Trips *[]tripPayload `json:"trips"`
	} `json:"data"`
}

type tripPayload struct {
	ID                        json.RawMessage `json:"id"`
	Date                      *string         `json:"date"`
	ArrivalDate               *string         `json:"arrivalDate"`
	StartingPrice             *float64        `json:"startingPrice"`
	AdditionalPriceCategories json.RawMessage `json:"additionalPriceCategories"`
	Capacity                  *int            `json:"capacity"`
	CapacityMap               *struct {
		Person *struct {
			Free     *int `json:"free"`
			Reserved *int `json:"reserved"`
		} `json:"PERSON"`
	} `json:"capacityMap"`
	CarTransport     *bool           `json:"carTransport"`
	BicycleTransport *bool           `json:"bicycleTransport"`
	Canceled         *bool           `json:"canceled"`
	Delayed          *bool           `json:"delayed"`
	Additional       json.RawMessage `json:"additional"`
}

// timestampLayouts are tried in order when parsing date and arrivalDate.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// decodeTrips parses body into records for task. Any trip missing a
// required field fails the whole batch.
func decodeTrips(body []byte, task domain.FetchTask) ([]domain.TripRecord, error) {
	var resp tripsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data", domain.ErrMalformedPayload)
	}
	if resp.Data.Trips == nil {
		return nil, fmt.Errorf("%w: missing data.trips", domain.ErrMalformedPayload)
	}

	trips := *resp.Data.Trips
	out := make([]domain.TripRecord, 0, len(trips))
	for i, p := range trips {
		rec, err := p.toRecord(task)
		if err != nil {
			return nil, fmt.Errorf("%w: trip %d: %w", domain.ErrMalformedPayload, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p tripPayload) toRecord(task domain.FetchTask) (domain.TripRecord, error) {
	id, err := opaqueID(p.ID)
	if err != nil {
		return domain.TripRecord{}, err
	}

	switch {
	case p.Date == nil:
		return domain.TripRecord{}, missing("date")
	case p.ArrivalDate == nil:
		return domain.TripRecord{}, missing("arrivalDate")
	case p.StartingPrice == nil:
		return domain.TripRecord{}, missing("startingPrice")
	case p.Capacity == nil:
		return domain.TripRecord{}, missing("capacity")
	case p.CapacityMap == nil || p.CapacityMap.Person == nil:
		return domain.TripRecord{}, missing("capacityMap.PERSON")
	case p.CapacityMap.Person.Free == nil:
		return domain.TripRecord{}, missing("capacityMap.PERSON.free")
	case p.CapacityMap.Person.Reserved == nil:
		return domain.TripRecord{}, missing("capacityMap.PERSON.reserved")
	case p.CarTransport == nil:
		return domain.TripRecord{}, missing("carTransport")
	case p.BicycleTransport == nil:
		return domain.TripRecord{}, missing("bicycleTransport")
	case p.Canceled == nil:
		return domain.TripRecord{}, missing("canceled")
	case p.Delayed == nil:
		return domain.TripRecord{}, missing("delayed")
	case len(bytes.TrimSpace(p.Additional)) == 0:
		return domain.TripRecord{}, missing("additional")
	}

	dep, err := parseTimestamp(*p.Date)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("date: %w", err)
	}
	arr, err := parseTimestamp(*p.ArrivalDate)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("arrivalDate: %w", err)
	}

	return domain.TripRecord{
		ID:                        id,
		Origin:                    task.Origin,
		Destination:               task.Destination,
		Departure:                 dep,
		Arrival:                   arr,
		StartingPrice:             *p.StartingPrice,
		AdditionalPriceCategories: truthyOrNil(p.AdditionalPriceCategories),
		Capacity:                  *p.Capacity,
		FreeSeats:                 *p.CapacityMap.Person.Free,
		ReservedSeats:             *p.CapacityMap.Person.Reserved,
		CarTransport:              *p.CarTransport,
		BicycleTransport:          *p.BicycleTransport,
		Canceled:                  *p.Canceled,
		Delayed:                   *p.Delayed,
		Additional:                nonNull(p.Additional),
	}, nil
}

// MissingFieldError names a required trip field that was absent or null.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return "missing " + e.Field }

func missing(field string) error {
	return &MissingFieldError{Field: field}
}

// opaqueID accepts string or numeric ids.
func opaqueID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", missing("id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		return s, nil
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
		return "", fmt.Errorf("id: unsupported value %s", raw)
	}
	return string(raw), nil
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// truthyOrNil maps JSON values that are falsy (null, false, 0, "", [], {})
// to nil and returns a private copy of everything else. A missing field and
// an empty one are deliberately treated the same.
func truthyOrNil(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if !x {
			return nil
		}
	case float64:
		if x == 0 {
			return nil
		}
	case string:
		if x == "" {
			return nil
		}
	case []any:
		if len(x) == 0 {
			return nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
	}
	return append(json.RawMessage(nil), raw...)
}

// nonNull returns nil for a null value, else a private copy.
func nonNull(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
