package coverage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentledger/dentledger/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a PostgreSQL-backed coverage repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const covCols = `insurance_plan_id, patient_id, carrier_id, subscriber_id,
	plan_type, group_number, group_name, verification_date, benefit_details,
	is_active, effective_date, termination_date, is_incomplete_record`

func scanCoverage(row pgx.Row) (*InsuranceCoverage, error) {
	var c InsuranceCoverage
	err := row.Scan(&c.InsurancePlanID, &c.PatientID, &c.CarrierID, &c.SubscriberID,
		&c.PlanType, &c.GroupNumber, &c.GroupName, &c.VerificationDate, &c.BenefitDetails,
		&c.IsActive, &c.EffectiveDate, &c.TerminationDate, &c.IsIncompleteRecord)
	return &c, err
}

func (r *repoPG) Upsert(ctx context.Context, c *InsuranceCoverage) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_coverage (insurance_plan_id, patient_id, carrier_id, subscriber_id,
			plan_type, group_number, group_name, verification_date, benefit_details,
			is_active, effective_date, termination_date, is_incomplete_record)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (insurance_plan_id, patient_id) DO UPDATE SET
			carrier_id = EXCLUDED.carrier_id,
			subscriber_id = EXCLUDED.subscriber_id,
			plan_type = EXCLUDED.plan_type,
			group_number = EXCLUDED.group_number,
			group_name = EXCLUDED.group_name,
			verification_date = EXCLUDED.verification_date,
			benefit_details = EXCLUDED.benefit_details,
			is_active = EXCLUDED.is_active,
			effective_date = EXCLUDED.effective_date,
			termination_date = EXCLUDED.termination_date,
			is_incomplete_record = EXCLUDED.is_incomplete_record`,
		c.InsurancePlanID, c.PatientID, c.CarrierID, c.SubscriberID,
		c.PlanType, c.GroupNumber, c.GroupName, c.VerificationDate, c.BenefitDetails,
		c.IsActive, c.EffectiveDate, c.TerminationDate, c.IsIncompleteRecord)
	if err != nil {
		return fmt.Errorf("upsert coverage: %w", err)
	}
	return nil
}

func (r *repoPG) GetByPlan(ctx context.Context, patientID, planID int64) (*InsuranceCoverage, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+covCols+` FROM insurance_coverage
		WHERE patient_id = $1 AND insurance_plan_id = $2`, patientID, planID)
	c, err := scanCoverage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coverage: %w", err)
	}
	return c, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*InsuranceCoverage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+covCols+` FROM insurance_coverage
		WHERE patient_id = $1
		ORDER BY effective_date, insurance_plan_id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list coverage: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) ListCoveringAt(ctx context.Context, patientID int64, t time.Time) ([]*InsuranceCoverage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+covCols+` FROM insurance_coverage
		WHERE patient_id = $1
		  AND effective_date <= $2
		  AND (termination_date IS NULL OR termination_date > $2)
		ORDER BY effective_date, insurance_plan_id`, patientID, t)
	if err != nil {
		return nil, fmt.Errorf("list coverage at %s: %w", t.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*InsuranceCoverage, error) {
	var out []*InsuranceCoverage
	for rows.Next() {
		c, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
