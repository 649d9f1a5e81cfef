package violation

import (
	"context"
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a PostgreSQL-backed violation repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) InsertRun(ctx context.Context, runTS time.Time, violations []Violation) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM violation_report WHERE run_ts = $1`, runTS); err != nil {
		return fmt.Errorf("clear violation report: %w", err)
	}
	if len(violations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, v := range violations {
		batch.Queue(`
			INSERT INTO violation_report (run_ts, rule_id, severity, entity_key, message)
			VALUES ($1,$2,$3,$4,$5)`,
			runTS, string(v.RuleID), string(v.Severity), v.EntityKey, v.Message)
	}
	results := q.SendBatch(ctx, batch)
	defer results.Close()
	for range violations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
	}
	return nil
}

func (r *repoPG) ListByRun(ctx context.Context, runTS time.Time) ([]Violation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT rule_id, severity, entity_key, message FROM violation_report
		WHERE run_ts = $1
		ORDER BY severity, rule_id, entity_key, message`, runTS)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		var rule, sev string
		if err := rows.Scan(&rule, &sev, &v.EntityKey, &v.Message); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.RuleID, v.Severity = Rule(rule), Severity(sev)
		out = append(out, v)
	}
	return out, rows.Err()
}
