package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle position of a single collection run.
type RunState string

const (
	RunInitialized     RunState = "initialized"
	RunTasksDispatched RunState = "tasks_dispatched"
	RunAllSettled      RunState = "all_settled"
	RunNormalized      RunState = "normalized"
	RunDelivered       RunState = "delivered"
	RunDeliveryFailed  RunState = "delivery_failed"
)

// Terminal reports whether no further transition follows s.
func (s RunState) Terminal() bool {
	return s == RunDelivered || s == RunDeliveryFailed
}

// RunResult summarizes one run. Table is always set once the run reached
// RunNormalized, even when delivery failed.
type RunResult struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Tasks     int
	Table     ScheduleTable

	// OutputPath is empty when the table was empty and nothing was written.
	OutputPath string
	State      RunState
}
