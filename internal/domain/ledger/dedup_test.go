package ledger

import (
	"testing"
	"time"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/money"
)

func ptrInt64(v int64) *int64 { return &v }

func proc(claimID, procedureID, claimProcedureID int64, paymentID *int64, paid money.Amount) claim.Procedure {
	return claim.Procedure{
		ClaimID:          claimID,
		ProcedureID:      procedureID,
		ClaimProcedureID: claimProcedureID,
		ClaimPaymentID:   paymentID,
		BilledAmount:     money.FromCents(15000),
		PaidAmount:       paid,
	}
}

func TestDedupHighestPaidWins(t *testing.T) {
	report := violation.NewReport()
	out := Dedup([]claim.Procedure{
		proc(1, 7, 11, ptrInt64(900), money.FromCents(5000)),
		proc(1, 7, 11, ptrInt64(900), money.FromCents(7500)),
	}, nil, report)

	if len(out) != 1 {
		t.Fatalf("dedup kept %d records, want 1", len(out))
	}
	if out[0].PaidAmount != money.FromCents(7500) {
		t.Errorf("retained paid = %s, want 75.00", out[0].PaidAmount)
	}
	if report.Len() != 0 {
		t.Errorf("unexpected violations: %+v", report.All())
	}
}

func TestDedupCheckDateBreaksPaidTie(t *testing.T) {
	older := claim.Payment{ClaimPaymentID: 900, CheckDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	newer := claim.Payment{ClaimPaymentID: 901, CheckDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)}
	payments := map[int64]claim.Payment{900: older, 901: newer}

	// Same paid amount, same detail grain, different payments: separate keys
	// survive; the detail-grain collapse prefers the newer check.
	a := proc(1, 7, 11, ptrInt64(900), money.FromCents(5000))
	b := proc(1, 7, 11, ptrInt64(901), money.FromCents(5000))

	out := dedupDetailGrain([]claim.Procedure{a, b}, payments)
	if len(out) != 1 {
		t.Fatalf("detail grain kept %d records, want 1", len(out))
	}
	if *out[0].ClaimPaymentID != 901 {
		t.Errorf("retained payment = %d, want 901 (most recent check)", *out[0].ClaimPaymentID)
	}
}

func TestDedupStableOnFullTie(t *testing.T) {
	report := violation.NewReport()
	first := proc(1, 7, 11, ptrInt64(900), money.FromCents(5000))
	first.ProcedureStatus = "first"
	second := proc(1, 7, 11, ptrInt64(900), money.FromCents(5000))
	second.ProcedureStatus = "second"

	out := Dedup([]claim.Procedure{first, second}, nil, report)
	if len(out) != 1 {
		t.Fatalf("dedup kept %d records, want 1", len(out))
	}
	if out[0].ProcedureStatus != "first" {
		t.Errorf("full tie must keep the first record by input order, got %q", out[0].ProcedureStatus)
	}
}

func TestDedupDistinctKeysUntouched(t *testing.T) {
	report := violation.NewReport()
	out := Dedup([]claim.Procedure{
		proc(1, 7, 11, ptrInt64(900), money.FromCents(5000)),
		proc(1, 7, 11, nil, money.Sentinel),
		proc(2, 7, 21, ptrInt64(900), money.FromCents(2500)),
	}, nil, report)

	if len(out) != 3 {
		t.Errorf("dedup kept %d records, want all 3 distinct keys", len(out))
	}
}

func TestPolicySentinelLosesToRealAmount(t *testing.T) {
	var p Policy
	real := Candidate{Proc: claim.Procedure{PaidAmount: money.FromCents(0)}}
	sentinel := Candidate{Proc: claim.Procedure{PaidAmount: money.Sentinel}, order: 1}
	if !p.Better(real, sentinel) {
		t.Error("a determined amount must beat the sentinel")
	}
}
