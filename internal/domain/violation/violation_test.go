package violation

import "testing"

func TestReportSeveritySplit(t *testing.T) {
	r := NewReport()
	r.Addf(RuleFinancialReconciliation, SeverityError, "CLM-1/1", "billed 10.00 < allocated 12.00")
	r.Addf(RuleDataQuality, SeverityWarn, "CLM-2/1", "allowed amount exceeds billed")
	r.Addf(RuleDeduplication, SeverityError, "CLM-3/2", "group collapsed to zero records")

	if got := len(r.Errors()); got != 2 {
		t.Errorf("Errors() = %d, want 2", got)
	}
	if got := len(r.Warnings()); got != 1 {
		t.Errorf("Warnings() = %d, want 1", got)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestReportAllStableOrder(t *testing.T) {
	r := NewReport()
	r.Addf(RuleDataQuality, SeverityWarn, "b", "w1")
	r.Addf(RuleFinancialReconciliation, SeverityError, "z", "e1")
	r.Addf(RuleDataQuality, SeverityWarn, "a", "w2")
	r.Addf(RuleDeduplication, SeverityError, "a", "e2")

	all := r.All()
	if len(all) != 4 {
		t.Fatalf("All() = %d rows, want 4", len(all))
	}
	// Errors first, then rule/key ordering.
	if all[0].Severity != SeverityError || all[1].Severity != SeverityError {
		t.Errorf("errors must sort before warnings: %+v", all)
	}
	if all[0].RuleID != RuleDeduplication {
		t.Errorf("first = %s, want DeduplicationError", all[0].RuleID)
	}
	if all[2].EntityKey != "a" || all[3].EntityKey != "b" {
		t.Errorf("warnings not ordered by key: %+v", all[2:])
	}
}

func TestReportMerge(t *testing.T) {
	a := NewReport()
	a.Addf(RuleNormalization, SeverityWarn, "k1", "bad date")
	b := NewReport()
	b.Addf(RuleSnapshotKeyCollision, SeverityWarn, "k2", "dup id")

	a.Merge(b)
	a.Merge(nil)
	if a.Len() != 2 {
		t.Errorf("merged Len() = %d, want 2", a.Len())
	}
	if got := a.ByRule(RuleSnapshotKeyCollision); len(got) != 1 {
		t.Errorf("ByRule = %d, want 1", len(got))
	}
}

func TestSeverityValid(t *testing.T) {
	if !SeverityError.Valid() || !SeverityWarn.Valid() {
		t.Error("known severities must validate")
	}
	if Severity("fatal").Valid() {
		t.Error("unknown severity must not validate")
	}
}
