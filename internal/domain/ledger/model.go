// Package ledger builds the reconciled claim ledgers: one ClaimDetail row
// per billed procedure and one ClaimPaymentDetail row per procedure/payment
// split. Ledger rows are rebuilt from scratch every run, never mutated in
// place.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/platform/money"
)

// ClaimDetail is one reconciled (claim, procedure) ledger row: claim and
// procedure state joined with catalog metadata and resolved coverage.
// Coverage fields are nil when the claim carries no plan ("no insurance" is
// valid state, not an error).
type ClaimDetail struct {
	ClaimDetailID    uuid.UUID  `db:"claim_detail_id" json:"claim_detail_id"`
	ClaimID          int64      `db:"claim_id" json:"claim_id"`
	PatientID        int64      `db:"patient_id" json:"patient_id"`
	PlanID           *int64     `db:"plan_id" json:"plan_id,omitempty"`
	ProcedureID      int64      `db:"procedure_id" json:"procedure_id"`
	ClaimProcedureID int64      `db:"claim_procedure_id" json:"claim_procedure_id"`
	ClaimStatus      string     `db:"claim_status" json:"claim_status"`
	ClaimType        claim.Type `db:"claim_type" json:"claim_type"`
	ClaimDate        time.Time  `db:"claim_date" json:"claim_date"`
	LastTrackingDate *time.Time `db:"last_tracking_date" json:"last_tracking_date,omitempty"`

	BilledAmount          money.Amount `db:"billed_amount" json:"billed_amount"`
	AllowedAmount         money.Amount `db:"allowed_amount" json:"allowed_amount"`
	PaidAmount            money.Amount `db:"paid_amount" json:"paid_amount"`
	WriteOffAmount        money.Amount `db:"write_off_amount" json:"write_off_amount"`
	PatientResponsibility money.Amount `db:"patient_responsibility" json:"patient_responsibility"`
	ProcedureStatus       string       `db:"procedure_status" json:"procedure_status"`

	ProcedureCode        *string `db:"procedure_code" json:"procedure_code,omitempty"`
	ProcedureDescription *string `db:"procedure_description" json:"procedure_description,omitempty"`

	InsurancePlanID    *int64     `db:"insurance_plan_id" json:"insurance_plan_id,omitempty"`
	CarrierID          *int64     `db:"carrier_id" json:"carrier_id,omitempty"`
	SubscriberID       *int64     `db:"subscriber_id" json:"subscriber_id,omitempty"`
	PlanType           *string    `db:"plan_type" json:"plan_type,omitempty"`
	GroupNumber        *string    `db:"group_number" json:"group_number,omitempty"`
	GroupName          *string    `db:"group_name" json:"group_name,omitempty"`
	VerificationDate   *time.Time `db:"verification_date" json:"verification_date,omitempty"`
	CoverageActive     *bool      `db:"coverage_active" json:"coverage_active,omitempty"`
	CoverageIncomplete *bool      `db:"coverage_incomplete" json:"coverage_incomplete,omitempty"`
}

// ClaimPaymentDetail is one reconciled financial split: a procedure's
// amounts joined with check-level payment data and EOB document references.
// Payment fields are nil while the procedure is unpaid.
type ClaimPaymentDetail struct {
	ClaimPaymentDetailID uuid.UUID `db:"claim_payment_detail_id" json:"claim_payment_detail_id"`
	ClaimID              int64     `db:"claim_id" json:"claim_id"`
	ProcedureID          int64     `db:"procedure_id" json:"procedure_id"`
	ClaimProcedureID     int64     `db:"claim_procedure_id" json:"claim_procedure_id"`
	ClaimPaymentID       *int64    `db:"claim_payment_id" json:"claim_payment_id,omitempty"`

	BilledAmount          money.Amount `db:"billed_amount" json:"billed_amount"`
	AllowedAmount         money.Amount `db:"allowed_amount" json:"allowed_amount"`
	PaidAmount            money.Amount `db:"paid_amount" json:"paid_amount"`
	WriteOffAmount        money.Amount `db:"write_off_amount" json:"write_off_amount"`
	PatientResponsibility money.Amount `db:"patient_responsibility" json:"patient_responsibility"`

	CheckAmount *money.Amount `db:"check_amount" json:"check_amount,omitempty"`
	CheckDate   *time.Time    `db:"check_date" json:"check_date,omitempty"`
	PaymentType *string       `db:"payment_type" json:"payment_type,omitempty"`
	IsPartial   *bool         `db:"is_partial" json:"is_partial,omitempty"`

	EOBAttachmentIDs []string `db:"eob_attachment_ids" json:"eob_attachment_ids,omitempty"`
}
