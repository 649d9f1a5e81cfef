package coverage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func ptrInt64(v int64) *int64        { return &v }
func ptrTime(t time.Time) *time.Time { return &t }

func TestResolveNoSource(t *testing.T) {
	r := NewResolver(zerolog.Nop(), nil)
	if got := r.Resolve(1, 10); got != nil {
		t.Errorf("expected nil for unknown pair, got %+v", got)
	}
}

func TestResolveActive(t *testing.T) {
	verified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	r := NewResolver(zerolog.Nop(), []Source{{
		PatientID:        1,
		PlanID:           10,
		CarrierID:        ptrInt64(500),
		SubscriberID:     ptrInt64(600),
		PlanType:         "PPO",
		GroupNumber:      "G-77",
		GroupName:        "Acme Dental Group",
		VerificationDate: ptrTime(verified),
		CreatedAt:        ptrTime(created),
	}})

	cov := r.Resolve(1, 10)
	if cov == nil {
		t.Fatal("expected a coverage record")
	}
	if !cov.IsActive {
		t.Error("verified non-pending coverage must be active")
	}
	if cov.IsIncompleteRecord {
		t.Error("fully resolved coverage must not be flagged incomplete")
	}
	if cov.CarrierID != 500 || cov.SubscriberID != 600 {
		t.Errorf("ids = %d/%d, want 500/600", cov.CarrierID, cov.SubscriberID)
	}
	if !cov.EffectiveDate.Equal(created) {
		t.Errorf("effective date = %s, want %s", cov.EffectiveDate, created)
	}
	if cov.TerminationDate != nil {
		t.Error("non-pending coverage must have an open interval")
	}
}

func TestResolveIncompleteCarrier(t *testing.T) {
	r := NewResolver(zerolog.Nop(), []Source{{
		PatientID:    1,
		PlanID:       10,
		SubscriberID: ptrInt64(600),
		PlanType:     "HMO",
	}})

	cov := r.Resolve(1, 10)
	if cov == nil {
		t.Fatal("incomplete data must still resolve to a record")
	}
	if !cov.IsIncompleteRecord {
		t.Error("missing carrier must flag the record incomplete")
	}
	if cov.CarrierID != UnresolvedRef {
		t.Errorf("carrier_id = %d, want sentinel %d", cov.CarrierID, UnresolvedRef)
	}
	if cov.SubscriberID != 600 {
		t.Errorf("subscriber_id = %d, want 600", cov.SubscriberID)
	}
}

func TestResolveUnverifiedInactive(t *testing.T) {
	r := NewResolver(zerolog.Nop(), []Source{{PatientID: 2, PlanID: 20, CarrierID: ptrInt64(1), SubscriberID: ptrInt64(2)}})
	cov := r.Resolve(2, 20)
	if cov == nil {
		t.Fatal("expected a coverage record")
	}
	if cov.IsActive {
		t.Error("coverage without a verification date must be inactive")
	}
	if !cov.EffectiveDate.Equal(EpochFloor) {
		t.Errorf("effective date = %s, want epoch floor", cov.EffectiveDate)
	}
}

func TestResolvePendingTerminated(t *testing.T) {
	verified := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := NewResolver(zerolog.Nop(), []Source{{
		PatientID:        3,
		PlanID:           30,
		CarrierID:        ptrInt64(1),
		SubscriberID:     ptrInt64(2),
		IsPending:        true,
		VerificationDate: ptrTime(verified),
	}})
	cov := r.Resolve(3, 30)
	if cov.IsActive {
		t.Error("pending coverage must be inactive even when verified")
	}
	if cov.TerminationDate == nil {
		t.Fatal("pending coverage must carry a termination date")
	}
	if !cov.TerminationDate.Equal(verified) {
		t.Errorf("termination = %s, want %s", cov.TerminationDate, verified)
	}
}

func TestResolveCollapsesMultipleSources(t *testing.T) {
	early := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	late := time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)
	verified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewResolver(zerolog.Nop(), []Source{
		{PatientID: 4, PlanID: 40, PlanType: "PPO", GroupNumber: "OLD", CreatedAt: ptrTime(late)},
		{PatientID: 4, PlanID: 40, CarrierID: ptrInt64(9), SubscriberID: ptrInt64(8),
			PlanType: "PPO", GroupNumber: "NEW", VerificationDate: ptrTime(verified), CreatedAt: ptrTime(early)},
	})

	cov := r.Resolve(4, 40)
	if cov.GroupNumber != "NEW" {
		t.Errorf("scalar fields must come from the last source, got group %q", cov.GroupNumber)
	}
	if !cov.EffectiveDate.Equal(early) {
		t.Errorf("effective date = %s, want earliest creation %s", cov.EffectiveDate, early)
	}
	if !cov.IsActive {
		t.Error("collapsed record should be active")
	}
}

func TestAllReturnsSortedIntervals(t *testing.T) {
	verified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewResolver(zerolog.Nop(), []Source{
		{PatientID: 5, PlanID: 51, CarrierID: ptrInt64(9), SubscriberID: ptrInt64(8),
			VerificationDate: ptrTime(verified)},
		{PatientID: 4, PlanID: 42, CarrierID: ptrInt64(9), SubscriberID: ptrInt64(8),
			VerificationDate: ptrTime(verified)},
		{PatientID: 4, PlanID: 40, CarrierID: ptrInt64(9), SubscriberID: ptrInt64(8),
			VerificationDate: ptrTime(verified)},
	})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("collapsed %d intervals, want 3", len(all))
	}
	want := []struct{ patient, plan int64 }{{4, 40}, {4, 42}, {5, 51}}
	for i, w := range want {
		if all[i].PatientID != w.patient || all[i].InsurancePlanID != w.plan {
			t.Errorf("position %d: got (%d,%d), want (%d,%d)",
				i, all[i].PatientID, all[i].InsurancePlanID, w.patient, w.plan)
		}
	}
}

func TestCoversAt(t *testing.T) {
	eff := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	term := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	open := InsuranceCoverage{EffectiveDate: eff}
	closed := InsuranceCoverage{EffectiveDate: eff, TerminationDate: &term}

	if open.CoversAt(eff.Add(-time.Hour)) {
		t.Error("before effective date must not be covered")
	}
	if !open.CoversAt(eff) {
		t.Error("effective instant must be covered")
	}
	if !open.CoversAt(term.AddDate(5, 0, 0)) {
		t.Error("open interval must cover the far future")
	}
	if closed.CoversAt(term) {
		t.Error("termination instant must not be covered")
	}
	if !closed.CoversAt(term.Add(-time.Second)) {
		t.Error("instant before termination must be covered")
	}
}
