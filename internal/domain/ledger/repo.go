package ledger

import "context"

// Repository persists the two ledgers. Replace operations swap the stored
// ledger wholesale; callers wrap them in one transaction so a re-run is
// atomic and idempotent.
type Repository interface {
	ReplaceClaimDetails(ctx context.Context, rows []ClaimDetail) error
	ReplacePaymentDetails(ctx context.Context, rows []ClaimPaymentDetail) error
	ListClaimDetailsByClaim(ctx context.Context, claimID int64) ([]*ClaimDetail, error)
	CountClaimDetails(ctx context.Context) (int64, error)
}
