package ingest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/money"
)

func ptrInt64(v int64) *int64 { return &v }

func TestNormalizeClaims(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.Claims([]RawClaim{
		{ClaimID: ptrInt64(1), PatientID: ptrInt64(100), PlanID: ptrInt64(10),
			Status: " Sent ", Type: "Primary", ClaimDate: "2024-03-01"},
		{ClaimID: ptrInt64(2), PatientID: ptrInt64(101),
			Status: "received", Type: "Tertiary", ClaimDate: "2024-03-02 10:30:00",
			LastTrackingDate: "1900-01-01"},
		{PatientID: ptrInt64(102), Status: "sent", Type: "Primary", ClaimDate: "2024-03-03"},
		{ClaimID: ptrInt64(4), PatientID: ptrInt64(103), Status: "sent", Type: "Primary", ClaimDate: "0001-01-01"},
	}, report)

	if len(out) != 2 {
		t.Fatalf("normalized %d claims, want 2", len(out))
	}
	if out[0].Status != "sent" {
		t.Errorf("status = %q, want trimmed lowercase sent", out[0].Status)
	}
	if out[1].Type != claim.TypeOther {
		t.Errorf("unknown type mapped to %q, want Other", out[1].Type)
	}
	if out[1].LastTrackingDate != nil {
		t.Error("placeholder last_tracking_date must become nil")
	}
	if got := len(report.ByRule(violation.RuleMissingKeyComponent)); got != 1 {
		t.Errorf("MissingKeyComponent violations = %d, want 1", got)
	}
	if got := len(report.ByRule(violation.RuleNormalization)); got != 1 {
		t.Errorf("NormalizationError violations = %d, want 1", got)
	}
}

func TestNormalizeProcedures(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.Procedures([]RawProcedure{
		{ClaimID: ptrInt64(1), ProcedureID: ptrInt64(7), ClaimProcedureID: ptrInt64(11),
			ClaimPaymentID: ptrInt64(900), BilledAmount: "150.00", PaidAmount: "100.00",
			WriteOffAmount: "30.00", PatientResponsibility: "20.00", ProcedureStatus: "Received"},
		{ClaimID: ptrInt64(1), ProcedureID: ptrInt64(8), ClaimProcedureID: ptrInt64(12),
			BilledAmount: "80.00", ProcedureStatus: "estimate"},
		{ClaimID: ptrInt64(1), ProcedureID: ptrInt64(9), ClaimProcedureID: ptrInt64(13),
			BilledAmount: "not-a-number", ProcedureStatus: "estimate"},
	}, report)

	if len(out) != 2 {
		t.Fatalf("normalized %d procedures, want 2", len(out))
	}
	if out[0].PaidAmount != money.Amount(10000) {
		t.Errorf("paid = %s, want 100.00", out[0].PaidAmount)
	}
	// Absent amounts stay "not yet determined", never zero.
	if !out[1].PaidAmount.IsSentinel() || !out[1].AllowedAmount.IsSentinel() {
		t.Error("absent amounts must normalize to the sentinel")
	}
	if got := len(report.ByRule(violation.RuleNormalization)); got != 1 {
		t.Errorf("NormalizationError violations = %d, want 1", got)
	}
}

func TestNormalizePayments(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.Payments([]RawPayment{
		{ClaimPaymentID: ptrInt64(900), CheckAmount: "250.00", CheckDate: "2024-03-08", PaymentType: "Check", IsPartial: "Y"},
		{ClaimPaymentID: ptrInt64(901), CheckAmount: "10.00", CheckDate: "2024-03-09", IsPartial: "maybe"},
		{CheckAmount: "10.00", CheckDate: "2024-03-09"},
	}, report)

	if len(out) != 2 {
		t.Fatalf("normalized %d payments, want 2", len(out))
	}
	if !out[0].IsPartial {
		t.Error("Y must coerce to true")
	}
	if out[1].IsPartial {
		t.Error("ambiguous flag must coerce to false")
	}
	if got := len(report.ByRule(violation.RuleDataQuality)); got != 1 {
		t.Errorf("DataQualityWarning violations = %d, want 1", got)
	}
}

func TestNormalizeCoverageKeepsIncomplete(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.Coverage([]RawCoverage{
		{PatientID: ptrInt64(1), PlanID: ptrInt64(10), PlanType: " PPO ", GroupNumber: "G1", GroupName: "Acme",
			VerificationDate: "2024-01-15", CreatedAt: "2023-01-01", IsPending: "0"},
		{PatientID: ptrInt64(2), PlanID: ptrInt64(20), SubscriberID: ptrInt64(5)},
	}, report)

	if len(out) != 2 {
		t.Fatalf("normalized %d coverage records, want 2", len(out))
	}
	if out[0].PlanType != "PPO" {
		t.Errorf("plan type = %q, want trimmed PPO", out[0].PlanType)
	}
	// A missing carrier is not a normalization failure; completeness is the
	// resolver's concern.
	if out[1].CarrierID != nil {
		t.Error("missing carrier must stay nil at this stage")
	}
	if report.Len() != 0 {
		t.Errorf("unexpected violations: %+v", report.All())
	}
}

func TestNormalizeTrackingEntries(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.TrackingEntries([]RawTrackingEntry{
		{ClaimTrackingID: ptrInt64(1), ClaimID: ptrInt64(1), TrackingType: "status-change",
			EntryTimestamp: "2024-03-10T09:00:00Z", Note: "  resubmitted to carrier  "},
		{ClaimTrackingID: ptrInt64(2), ClaimID: ptrInt64(1), TrackingType: "phone-call",
			EntryTimestamp: "2024-03-10T10:00:00Z"},
		{ClaimTrackingID: ptrInt64(3), ClaimID: ptrInt64(1), TrackingType: "user-note",
			EntryTimestamp: "2024-03-11T10:00:00Z", Note: "   "},
	}, report)

	if len(out) != 2 {
		t.Fatalf("normalized %d entries, want 2", len(out))
	}
	if out[0].Note == nil || *out[0].Note != "resubmitted to carrier" {
		t.Errorf("note = %v, want trimmed text", out[0].Note)
	}
	if out[1].Note != nil {
		t.Error("blank note must become nil")
	}
}

func TestNormalizeSnapshots(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	report := violation.NewReport()

	out := n.Snapshots([]RawSnapshot{
		{ClaimProcedureID: ptrInt64(11), SnapshotTrigger: "Initial",
			EstimatedWriteOff: "30.00", InsurancePaymentEstimate: "120.00", FeeAmount: "150.00",
			EntryTimestamp: "2024-03-01T00:00:00Z"},
		{ClaimProcedureID: ptrInt64(11), SnapshotTrigger: "Ceremony",
			EntryTimestamp: "2024-03-02T00:00:00Z"},
	}, report)

	if len(out) != 1 {
		t.Fatalf("normalized %d snapshots, want 1", len(out))
	}
	if out[0].InsurancePaymentEstimate != money.Amount(12000) {
		t.Errorf("estimate = %s, want 120.00", out[0].InsurancePaymentEstimate)
	}
	if got := len(report.ByRule(violation.RuleNormalization)); got != 1 {
		t.Errorf("NormalizationError violations = %d, want 1", got)
	}
}

func TestParseDatePlaceholders(t *testing.T) {
	for _, s := range []string{"", "0001-01-01", "1900-01-01", "1753-01-01", "1900-01-01 00:00:00"} {
		got, err := parseDate(s)
		if err != nil {
			t.Errorf("parseDate(%q): unexpected error %v", s, err)
		}
		if got != nil {
			t.Errorf("parseDate(%q) = %v, want nil", s, got)
		}
	}
	got, err := parseDate("2024-03-10T00:00:00Z")
	if err != nil || got == nil {
		t.Fatalf("parseDate(RFC3339) = %v, %v", got, err)
	}
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseDate = %s, want %s", got, want)
	}
	if _, err := parseDate("03/10/2024"); err == nil {
		t.Error("unrecognized layout must error")
	}
}
