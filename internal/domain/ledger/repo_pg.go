package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentledger/dentledger/internal/domain/claim"
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

// NewRepoPG returns a PostgreSQL-backed ledger repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) ReplaceClaimDetails(ctx context.Context, rows []ClaimDetail) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM claim_detail`); err != nil {
		return fmt.Errorf("clear claim_detail: %w", err)
	}
	batch := &pgx.Batch{}
	for _, d := range rows {
		batch.Queue(`
			INSERT INTO claim_detail (claim_detail_id, claim_id, patient_id, plan_id,
				procedure_id, claim_procedure_id, claim_status, claim_type, claim_date,
				last_tracking_date, billed_amount, allowed_amount, paid_amount,
				write_off_amount, patient_responsibility, procedure_status,
				procedure_code, procedure_description, insurance_plan_id, carrier_id,
				subscriber_id, plan_type, group_number, group_name, verification_date,
				coverage_active, coverage_incomplete)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
			d.ClaimDetailID, d.ClaimID, d.PatientID, d.PlanID,
			d.ProcedureID, d.ClaimProcedureID, d.ClaimStatus, string(d.ClaimType), d.ClaimDate,
			d.LastTrackingDate, d.BilledAmount.Float64(), d.AllowedAmount.Float64(), d.PaidAmount.Float64(),
			d.WriteOffAmount.Float64(), d.PatientResponsibility.Float64(), d.ProcedureStatus,
			d.ProcedureCode, d.ProcedureDescription, d.InsurancePlanID, d.CarrierID,
			d.SubscriberID, d.PlanType, d.GroupNumber, d.GroupName, d.VerificationDate,
			d.CoverageActive, d.CoverageIncomplete)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert claim_detail rows: %w", err)
	}
	return nil
}

func (r *repoPG) ReplacePaymentDetails(ctx context.Context, rows []ClaimPaymentDetail) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM claim_payment_detail`); err != nil {
		return fmt.Errorf("clear claim_payment_detail: %w", err)
	}
	batch := &pgx.Batch{}
	for _, d := range rows {
		var checkAmount *float64
		if d.CheckAmount != nil {
			v := d.CheckAmount.Float64()
			checkAmount = &v
		}
		batch.Queue(`
			INSERT INTO claim_payment_detail (claim_payment_detail_id, claim_id,
				procedure_id, claim_procedure_id, claim_payment_id, billed_amount,
				allowed_amount, paid_amount, write_off_amount, patient_responsibility,
				check_amount, check_date, payment_type, is_partial, eob_attachment_ids)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			d.ClaimPaymentDetailID, d.ClaimID,
			d.ProcedureID, d.ClaimProcedureID, d.ClaimPaymentID, d.BilledAmount.Float64(),
			d.AllowedAmount.Float64(), d.PaidAmount.Float64(), d.WriteOffAmount.Float64(), d.PatientResponsibility.Float64(),
			checkAmount, d.CheckDate, d.PaymentType, d.IsPartial, d.EOBAttachmentIDs)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert claim_payment_detail rows: %w", err)
	}
	return nil
}

func (r *repoPG) ListClaimDetailsByClaim(ctx context.Context, claimID int64) ([]*ClaimDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT claim_detail_id, claim_id, patient_id, plan_id, procedure_id,
			claim_procedure_id, claim_status, claim_type, claim_date, last_tracking_date,
			billed_amount, allowed_amount, paid_amount, write_off_amount,
			patient_responsibility, procedure_status, procedure_code, procedure_description,
			insurance_plan_id, carrier_id, subscriber_id, plan_type, group_number,
			group_name, verification_date, coverage_active, coverage_incomplete
		FROM claim_detail WHERE claim_id = $1
		ORDER BY procedure_id, claim_procedure_id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list claim_detail: %w", err)
	}
	defer rows.Close()

	var out []*ClaimDetail
	for rows.Next() {
		var d ClaimDetail
		var claimType string
		var billed, allowed, paid, writeOff, patientResp float64
		err := rows.Scan(&d.ClaimDetailID, &d.ClaimID, &d.PatientID, &d.PlanID, &d.ProcedureID,
			&d.ClaimProcedureID, &d.ClaimStatus, &claimType, &d.ClaimDate, &d.LastTrackingDate,
			&billed, &allowed, &paid, &writeOff,
			&patientResp, &d.ProcedureStatus, &d.ProcedureCode, &d.ProcedureDescription,
			&d.InsurancePlanID, &d.CarrierID, &d.SubscriberID, &d.PlanType, &d.GroupNumber,
			&d.GroupName, &d.VerificationDate, &d.CoverageActive, &d.CoverageIncomplete)
		if err != nil {
			return nil, err
		}
		d.ClaimType = claim.Type(claimType)
		d.BilledAmount = money.FromFloat(billed)
		d.AllowedAmount = money.FromFloat(allowed)
		d.PaidAmount = money.FromFloat(paid)
		d.WriteOffAmount = money.FromFloat(writeOff)
		d.PatientResponsibility = money.FromFloat(patientResp)
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *repoPG) CountClaimDetails(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_detail`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count claim_detail: %w", err)
	}
	return n, nil
}
