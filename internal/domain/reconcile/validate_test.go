package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dentledger/dentledger/internal/domain/ledger"
	"github.com/dentledger/dentledger/internal/domain/snapshot"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/money"
)

func detail(id byte, billed, allowed, paid, writeOff, patientResp money.Amount) ledger.ClaimDetail {
	return ledger.ClaimDetail{
		ClaimDetailID:         uuid.UUID{id},
		ClaimID:               int64(id),
		ClaimProcedureID:      int64(id) * 10,
		ClaimDate:             time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		BilledAmount:          billed,
		AllowedAmount:         allowed,
		PaidAmount:            paid,
		WriteOffAmount:        writeOff,
		PatientResponsibility: patientResp,
	}
}

func countRule(violations []violation.Violation, rule violation.Rule) int {
	n := 0
	for _, v := range violations {
		if v.RuleID == rule {
			n++
		}
	}
	return n
}

func TestValidateFinancialInvariant(t *testing.T) {
	report := violation.NewReport()
	rows := []ledger.ClaimDetail{
		// 150 = 90 + 30 + 30, balanced.
		detail(1, money.FromCents(15000), money.FromCents(12000), money.FromCents(9000),
			money.FromCents(3000), money.FromCents(3000)),
		// Split exceeds billed.
		detail(2, money.FromCents(10000), money.FromCents(10000), money.FromCents(9000),
			money.FromCents(3000), money.FromCents(0)),
	}
	Validate(rows, nil, nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	if got := countRule(report.All(), violation.RuleFinancialReconciliation); got != 1 {
		t.Fatalf("financial violations = %d, want 1", got)
	}
}

func TestValidateSentinelSkipsFinancialCheck(t *testing.T) {
	report := violation.NewReport()
	rows := []ledger.ClaimDetail{
		// Paid not yet determined: split cannot be checked.
		detail(1, money.FromCents(10000), money.Sentinel, money.Sentinel,
			money.FromCents(9000), money.FromCents(9000)),
	}
	Validate(rows, nil, nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	if got := countRule(report.All(), violation.RuleFinancialReconciliation); got != 0 {
		t.Fatalf("financial violations = %d, want 0 for sentinel row", got)
	}
}

func TestValidateAllowedExceedsBilled(t *testing.T) {
	report := violation.NewReport()
	rows := []ledger.ClaimDetail{
		// Allowed 1200.00 against billed 120.00: decimal slipped two places.
		detail(1, money.FromCents(12000), money.FromCents(120000), money.FromCents(9000),
			money.FromCents(1500), money.FromCents(1500)),
	}
	Validate(rows, nil, nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	warns := report.ByRule(violation.RuleDataQuality)
	if len(warns) != 1 {
		t.Fatalf("data-quality warns = %d, want 1", len(warns))
	}
	if warns[0].Severity != violation.SeverityWarn {
		t.Errorf("allowed > billed must be a warning, got %s", warns[0].Severity)
	}
}

func TestValidateDuplicateOutputIDs(t *testing.T) {
	report := violation.NewReport()
	a := detail(1, money.FromCents(10000), money.FromCents(10000), money.FromCents(5000),
		money.FromCents(2500), money.FromCents(2500))
	Validate([]ledger.ClaimDetail{a, a}, nil, nil,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	if got := countRule(report.All(), violation.RuleDeduplication); got != 1 {
		t.Fatalf("dedup violations = %d, want 1", got)
	}
	if got := len(report.Errors()); got != 1 {
		t.Fatalf("errors = %d, want 1 (duplicate output id is an error)", got)
	}
}

func TestValidateImplausibleDates(t *testing.T) {
	report := violation.NewReport()
	runAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	old := detail(1, money.FromCents(100), money.Sentinel, money.Sentinel,
		money.Sentinel, money.Sentinel)
	old.ClaimDate = time.Date(1987, 6, 1, 0, 0, 0, 0, time.UTC)

	future := detail(2, money.FromCents(100), money.Sentinel, money.Sentinel,
		money.Sentinel, money.Sentinel)
	future.ClaimDate = runAt.AddDate(2, 0, 0)

	Validate([]ledger.ClaimDetail{old, future}, nil, nil, runAt, report)

	if got := countRule(report.All(), violation.RuleDataQuality); got != 2 {
		t.Fatalf("data-quality warns = %d, want 2", got)
	}
}

func TestValidateNegativeAmounts(t *testing.T) {
	report := violation.NewReport()
	rows := []ledger.ClaimDetail{
		detail(1, money.FromCents(-500), money.Sentinel, money.Sentinel,
			money.Sentinel, money.Sentinel),
	}
	Validate(rows, nil, nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	warns := report.ByRule(violation.RuleDataQuality)
	if len(warns) != 1 {
		t.Fatalf("warns = %d, want 1 for negative billed", len(warns))
	}
}

func TestValidateSnapshotDuplicates(t *testing.T) {
	report := violation.NewReport()
	s := snapshot.Snapshot{
		ClaimSnapshotID:          uuid.UUID{9},
		ClaimID:                  1,
		EstimatedWriteOff:        money.FromCents(1000),
		InsurancePaymentEstimate: money.FromCents(5000),
		FeeAmount:                money.FromCents(10000),
		EntryTimestamp:           time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	}
	Validate(nil, nil, []snapshot.Snapshot{s, s},
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report)

	if got := countRule(report.All(), violation.RuleDeduplication); got != 1 {
		t.Fatalf("dedup violations = %d, want 1", got)
	}
}
