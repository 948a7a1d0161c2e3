package report

import (
	"context"
	"errors"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// Writer is anything that can persist a finished table.
type Writer interface {
	Write(ctx context.Context, table domain.ScheduleTable, path string) error
}

// MultiSink delivers a table to several writers in order. Every writer is
// attempted even when an earlier one fails; the failures are joined.
type MultiSink struct {
	writers []Writer
}

// Multi returns a MultiSink over writers. Nil writers are skipped.
func Multi(writers ...Writer) *MultiSink {
	m := &MultiSink{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write implements Writer.
func (m *MultiSink) Write(ctx context.Context, table domain.ScheduleTable, path string) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ctx, table, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
