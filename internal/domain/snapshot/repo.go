package snapshot

import (
	"context"
	"time"
)

// Repository persists the snapshot history. The history is strictly
// append-only: no update, no delete. Appending an already-stored snapshot id
// is a no-op, which is what makes pipeline re-runs idempotent.
type Repository interface {
	Append(ctx context.Context, rows []Snapshot) (inserted int64, err error)
	ListByClaim(ctx context.Context, claimID int64) ([]*Snapshot, error)
	// ListAsOf returns the history rows recorded at or before t for a claim:
	// the "what did we know on date X" query.
	ListAsOf(ctx context.Context, claimID int64, t time.Time) ([]*Snapshot, error)
}
