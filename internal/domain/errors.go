package domain

import "errors"

// ErrUpstreamStatus is returned by the upstream client when the trips
// endpoint answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// ErrMalformedPayload is returned by the upstream client when the response
// body is not valid JSON or lacks an expected field.
var ErrMalformedPayload = errors.New("malformed upstream payload")

// ErrDelivery is returned by the schedule service when the report sink fails.
// The computed table is still returned alongside it.
// Handlers should map this to HTTP 502 Bad Gateway.
var ErrDelivery = errors.New("report delivery failed")

// ErrValidation is returned when run parameters or configuration values
// violate a rule (e.g. a negative day count or an empty direction).
var ErrValidation = errors.New("validation error")

// ErrNotFound is returned when no completed run is available yet.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")
