package sources

import (
	"context"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// LoadOptions configures which records a loader returns
type LoadOptions struct {
	StartDate time.Time // Zero means unbounded
	EndDate   time.Time // Inclusive; zero means unbounded
}

// Contains reports whether date falls inside the range. A zero date is
// always contained so undated records still reach the unmapped report.
func (o LoadOptions) Contains(date time.Time) bool {
	if date.IsZero() {
		return true
	}
	day := transaction.Day(date)
	if !o.StartDate.IsZero() && day.Before(transaction.Day(o.StartDate)) {
		return false
	}
	if !o.EndDate.IsZero() && day.After(transaction.Day(o.EndDate)) {
		return false
	}
	return true
}

// Loader is the interface all transaction sources implement
type Loader interface {
	// Name identifies the source, e.g. "lunchmoney" or "mint"
	Name() string

	// Load returns the records for the range. Any error is fatal to the run.
	Load(ctx context.Context, opts LoadOptions) ([]*transaction.Record, error)
}

// Writer persists an annotated record collection
type Writer interface {
	Write(ctx context.Context, records []*transaction.Record) error
}
