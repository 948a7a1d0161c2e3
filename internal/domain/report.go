package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is one delivered schedule table as kept by a database sink.
// Its rows are stored separately and keep their table position.
type Report struct {
	ID         uuid.UUID
	OutputPath string // file path the table was delivered under
	RowCount   int
	CreatedAt  time.Time
}
