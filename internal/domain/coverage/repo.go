package coverage

import (
	"context"
	"time"
)

// Repository persists resolved coverage intervals. Intervals are immutable;
// a new resolution for the same (patient, plan) pair replaces the stored
// row wholesale.
type Repository interface {
	Upsert(ctx context.Context, c *InsuranceCoverage) error
	GetByPlan(ctx context.Context, patientID, planID int64) (*InsuranceCoverage, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*InsuranceCoverage, error)
	// ListCoveringAt returns the intervals containing t for a patient: the
	// point-in-time query behind "what plan applied on date X".
	ListCoveringAt(ctx context.Context, patientID int64, t time.Time) ([]*InsuranceCoverage, error)
}
