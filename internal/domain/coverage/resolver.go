package coverage

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

type pairKey struct {
	patientID int64
	planID    int64
}

// Resolver answers (patient, plan) lookups over the normalized coverage
// sources of one run. Completeness is tracked, not enforced: a pair whose
// carrier or subscriber cannot be resolved still yields a record, flagged
// incomplete and carrying sentinel ids.
type Resolver struct {
	log     zerolog.Logger
	sources map[pairKey][]Source
}

// NewResolver indexes the sources by (patient, plan). Input order is
// preserved within a pair.
func NewResolver(log zerolog.Logger, sources []Source) *Resolver {
	idx := make(map[pairKey][]Source)
	for _, s := range sources {
		k := pairKey{patientID: s.PatientID, planID: s.PlanID}
		idx[k] = append(idx[k], s)
	}
	return &Resolver{log: log, sources: idx}
}

// Resolve returns the coverage interval for the pair, or nil when no source
// record mentions it at all ("no insurance", as opposed to corrupted
// insurance data).
func (r *Resolver) Resolve(patientID, planID int64) *InsuranceCoverage {
	group, ok := r.sources[pairKey{patientID: patientID, planID: planID}]
	if !ok {
		return nil
	}
	return r.collapse(group)
}

// All collapses every indexed pair and returns the resulting intervals
// sorted by (patient, plan), so the persisted coverage set is stable across
// runs.
func (r *Resolver) All() []InsuranceCoverage {
	out := make([]InsuranceCoverage, 0, len(r.sources))
	for _, group := range r.sources {
		out = append(out, *r.collapse(group))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PatientID != b.PatientID {
			return a.PatientID < b.PatientID
		}
		return a.InsurancePlanID < b.InsurancePlanID
	})
	return out
}

// collapse merges the source records for one pair into a single interval.
// The last source by input order supplies the scalar fields (the feed is
// emitted in source-system modification order); the effective date is the
// earliest creation timestamp seen anywhere in the group.
func (r *Resolver) collapse(group []Source) *InsuranceCoverage {
	primary := group[len(group)-1]

	cov := &InsuranceCoverage{
		InsurancePlanID: primary.PlanID,
		PatientID:       primary.PatientID,
		CarrierID:       UnresolvedRef,
		SubscriberID:    UnresolvedRef,
		PlanType:        primary.PlanType,
		GroupNumber:     primary.GroupNumber,
		GroupName:       primary.GroupName,
		BenefitDetails:  primary.BenefitDetails,
		EffectiveDate:   EpochFloor,
	}

	if primary.CarrierID != nil {
		cov.CarrierID = *primary.CarrierID
	}
	if primary.SubscriberID != nil {
		cov.SubscriberID = *primary.SubscriberID
	}
	cov.IsIncompleteRecord = primary.CarrierID == nil || primary.SubscriberID == nil
	if cov.IsIncompleteRecord {
		r.log.Warn().
			Int64("patient_id", primary.PatientID).
			Int64("plan_id", primary.PlanID).
			Msg("coverage record incomplete, carrier or subscriber unresolved")
	}

	cov.VerificationDate = primary.VerificationDate
	cov.IsActive = !primary.IsPending && primary.VerificationDate != nil

	var earliest *time.Time
	for i := range group {
		created := group[i].CreatedAt
		if created == nil {
			continue
		}
		if earliest == nil || created.Before(*earliest) {
			earliest = created
		}
	}
	if earliest != nil {
		cov.EffectiveDate = *earliest
	}

	// Termination is only known for pending coverage; everything else is an
	// open interval.
	if primary.IsPending {
		if primary.VerificationDate != nil {
			t := *primary.VerificationDate
			cov.TerminationDate = &t
		} else {
			t := cov.EffectiveDate
			cov.TerminationDate = &t
		}
	}

	return cov
}
