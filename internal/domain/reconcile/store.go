package reconcile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dentledger/dentledger/internal/domain/coverage"
	"github.com/dentledger/dentledger/internal/domain/ledger"
	"github.com/dentledger/dentledger/internal/domain/snapshot"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/db"
)

// Store persists the outputs of one run. Ledgers are replaced wholesale,
// coverage intervals upserted, snapshots appended, all inside a single
// transaction, so a crashed persist leaves the previous run's state intact.
type Store struct {
	pool       *pgxpool.Pool
	ledgers    ledger.Repository
	snapshots  snapshot.Repository
	coverage   coverage.Repository
	violations violation.Repository
	log        zerolog.Logger
}

// NewStore wires a Store over pool using the default PostgreSQL
// repositories.
func NewStore(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{
		pool:       pool,
		ledgers:    ledger.NewRepoPG(pool),
		snapshots:  snapshot.NewRepoPG(pool),
		coverage:   coverage.NewRepoPG(pool),
		violations: violation.NewRepoPG(pool),
		log:        log,
	}
}

// Persist writes the outputs of the run stamped runTS. Snapshot rows already
// present are skipped, never rewritten.
func (s *Store) Persist(ctx context.Context, runTS time.Time, out *Outputs) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.ledgers.ReplaceClaimDetails(ctx, out.ClaimDetails); err != nil {
			return err
		}
		if err := s.ledgers.ReplacePaymentDetails(ctx, out.PaymentDetails); err != nil {
			return err
		}
		for i := range out.Coverage {
			if err := s.coverage.Upsert(ctx, &out.Coverage[i]); err != nil {
				return err
			}
		}
		inserted, err := s.snapshots.Append(ctx, out.Snapshots)
		if err != nil {
			return err
		}
		if err := s.violations.InsertRun(ctx, runTS, out.Violations); err != nil {
			return err
		}
		s.log.Info().
			Int("claim_details", len(out.ClaimDetails)).
			Int("payment_details", len(out.PaymentDetails)).
			Int("coverage", len(out.Coverage)).
			Int64("snapshots_inserted", inserted).
			Int("snapshots_skipped", len(out.Snapshots)-int(inserted)).
			Msg("run persisted")
		return nil
	})
}
