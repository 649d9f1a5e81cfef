// Package coverage resolves insurance-plan context for claims. Coverage is
// modeled as immutable interval-valued records (effective/termination dates
// plus an active flag) so "what plan applied on date X" is a range
// containment check, never a mutable lookup.
package coverage

import (
	"encoding/json"
	"time"
)

// UnresolvedRef is the reserved id used when a carrier or subscriber
// reference cannot be resolved. Downstream joins stay total: an incomplete
// record is distinguishable from "no insurance", which is a nil coverage.
const UnresolvedRef int64 = -1

// EpochFloor is the default effective date when no contributing source
// record carries a creation timestamp.
var EpochFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// InsuranceCoverage is one resolved plan interval for a patient.
type InsuranceCoverage struct {
	InsurancePlanID    int64           `db:"insurance_plan_id" json:"insurance_plan_id"`
	PatientID          int64           `db:"patient_id" json:"patient_id"`
	CarrierID          int64           `db:"carrier_id" json:"carrier_id"`
	SubscriberID       int64           `db:"subscriber_id" json:"subscriber_id"`
	PlanType           string          `db:"plan_type" json:"plan_type"`
	GroupNumber        string          `db:"group_number" json:"group_number"`
	GroupName          string          `db:"group_name" json:"group_name"`
	VerificationDate   *time.Time      `db:"verification_date" json:"verification_date,omitempty"`
	BenefitDetails     json.RawMessage `db:"benefit_details" json:"benefit_details,omitempty"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	EffectiveDate      time.Time       `db:"effective_date" json:"effective_date"`
	TerminationDate    *time.Time      `db:"termination_date" json:"termination_date,omitempty"`
	IsIncompleteRecord bool            `db:"is_incomplete_record" json:"is_incomplete_record"`
}

// CoversAt reports whether the interval contains t. A nil termination date
// is an open interval.
func (c *InsuranceCoverage) CoversAt(t time.Time) bool {
	if t.Before(c.EffectiveDate) {
		return false
	}
	if c.TerminationDate != nil && !t.Before(*c.TerminationDate) {
		return false
	}
	return true
}

// Source is one normalized coverage record from the practice-management
// feed. Several sources may describe the same (patient, plan) pair; the
// resolver collapses them into one interval.
type Source struct {
	PatientID        int64           `json:"patient_id"`
	PlanID           int64           `json:"plan_id"`
	CarrierID        *int64          `json:"carrier_id,omitempty"`
	SubscriberID     *int64          `json:"subscriber_id,omitempty"`
	PlanType         string          `json:"plan_type"`
	GroupNumber      string          `json:"group_number"`
	GroupName        string          `json:"group_name"`
	VerificationDate *time.Time      `json:"verification_date,omitempty"`
	CreatedAt        *time.Time      `json:"created_at,omitempty"`
	IsPending        bool            `json:"is_pending"`
	BenefitDetails   json.RawMessage `json:"benefit_details,omitempty"`
}
