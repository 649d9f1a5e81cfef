package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentledger/dentledger/internal/platform/db"
	"github.com/dentledger/dentledger/internal/platform/money"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a PostgreSQL-backed snapshot repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Append inserts rows, silently skipping ids already in the history. There
// is deliberately no update path.
func (r *repoPG) Append(ctx context.Context, rows []Snapshot) (int64, error) {
	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(`
			INSERT INTO claim_snapshot (claim_snapshot_id, claim_procedure_id, claim_id,
				procedure_id, patient_id, plan_id, snapshot_trigger, estimated_write_off,
				insurance_payment_estimate, fee_amount, entry_timestamp,
				actual_paid_amount, actual_write_off, actual_allowed,
				payment_variance, write_off_variance, days_to_payment,
				payment_date_anomaly, status_note)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (claim_snapshot_id) DO NOTHING`,
			s.ClaimSnapshotID, s.ClaimProcedureID, s.ClaimID,
			s.ProcedureID, s.PatientID, s.PlanID, string(s.Trigger), s.EstimatedWriteOff.Float64(),
			s.InsurancePaymentEstimate.Float64(), s.FeeAmount.Float64(), s.EntryTimestamp,
			s.ActualPaidAmount.Float64(), s.ActualWriteOff.Float64(), s.ActualAllowed.Float64(),
			amountPtr(s.PaymentVariance), amountPtr(s.WriteOffVariance), s.DaysToPayment,
			s.PaymentDateAnomaly, s.StatusNote)
	}
	results := r.conn(ctx).SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("append snapshot: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

const snapCols = `claim_snapshot_id, claim_procedure_id, claim_id, procedure_id,
	patient_id, plan_id, snapshot_trigger, estimated_write_off,
	insurance_payment_estimate, fee_amount, entry_timestamp, actual_paid_amount,
	actual_write_off, actual_allowed, payment_variance, write_off_variance,
	days_to_payment, payment_date_anomaly, status_note`

func (r *repoPG) ListByClaim(ctx context.Context, claimID int64) ([]*Snapshot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snapCols+` FROM claim_snapshot
		WHERE claim_id = $1
		ORDER BY entry_timestamp, claim_snapshot_id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *repoPG) ListAsOf(ctx context.Context, claimID int64, t time.Time) ([]*Snapshot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snapCols+` FROM claim_snapshot
		WHERE claim_id = $1 AND entry_timestamp <= $2
		ORDER BY entry_timestamp, claim_snapshot_id`, claimID, t)
	if err != nil {
		return nil, fmt.Errorf("list snapshots as of %s: %w", t.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func collectSnapshots(rows pgx.Rows) ([]*Snapshot, error) {
	var out []*Snapshot
	for rows.Next() {
		var s Snapshot
		var trigger string
		var estWriteOff, payEstimate, fee, actualPaid, actualWriteOff, actualAllowed float64
		var payVar, woVar *float64
		err := rows.Scan(&s.ClaimSnapshotID, &s.ClaimProcedureID, &s.ClaimID, &s.ProcedureID,
			&s.PatientID, &s.PlanID, &trigger, &estWriteOff,
			&payEstimate, &fee, &s.EntryTimestamp, &actualPaid,
			&actualWriteOff, &actualAllowed, &payVar, &woVar,
			&s.DaysToPayment, &s.PaymentDateAnomaly, &s.StatusNote)
		if err != nil {
			return nil, err
		}
		s.Trigger = Trigger(trigger)
		s.EstimatedWriteOff = money.FromFloat(estWriteOff)
		s.InsurancePaymentEstimate = money.FromFloat(payEstimate)
		s.FeeAmount = money.FromFloat(fee)
		s.ActualPaidAmount = money.FromFloat(actualPaid)
		s.ActualWriteOff = money.FromFloat(actualWriteOff)
		s.ActualAllowed = money.FromFloat(actualAllowed)
		s.PaymentVariance = floatAmount(payVar)
		s.WriteOffVariance = floatAmount(woVar)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func amountPtr(a *money.Amount) *float64 {
	if a == nil {
		return nil
	}
	v := a.Float64()
	return &v
}

func floatAmount(f *float64) *money.Amount {
	if f == nil {
		return nil
	}
	v := money.FromFloat(*f)
	return &v
}
