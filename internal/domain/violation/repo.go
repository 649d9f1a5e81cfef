package violation

import (
	"context"
	"time"
)

// Repository persists violation reports per run.
type Repository interface {
	// InsertRun records every violation of one run under runTS, replacing any
	// previously stored report for the same timestamp.
	InsertRun(ctx context.Context, runTS time.Time, violations []Violation) error
	ListByRun(ctx context.Context, runTS time.Time) ([]Violation, error)
}
