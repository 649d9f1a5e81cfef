// Package ingest maps the raw practice-management feed records into the
// canonical entity types. Raw records keep dates, amounts and flags as
// strings because the source system emits placeholder dates, tri-state
// booleans and occasionally unparseable values; the normalizer cleans these
// up and routes anything it cannot salvage to the violation report.
package ingest

import "encoding/json"

// RawClaim is one claims-feed record.
type RawClaim struct {
	ClaimID          *int64 `json:"claim_id"`
	PatientID        *int64 `json:"patient_id"`
	PlanID           *int64 `json:"plan_id,omitempty"`
	Status           string `json:"status"`
	Type             string `json:"type"`
	ClaimDate        string `json:"claim_date"`
	LastTrackingDate string `json:"last_tracking_date,omitempty"`
}

// RawProcedure is one claim-procedures-feed record.
type RawProcedure struct {
	ClaimID               *int64 `json:"claim_id"`
	ProcedureID           *int64 `json:"procedure_id"`
	ClaimProcedureID      *int64 `json:"claim_procedure_id"`
	ClaimPaymentID        *int64 `json:"claim_payment_id,omitempty"`
	BilledAmount          string `json:"billed_amount"`
	AllowedAmount         string `json:"allowed_amount,omitempty"`
	PaidAmount            string `json:"paid_amount,omitempty"`
	WriteOffAmount        string `json:"write_off_amount,omitempty"`
	PatientResponsibility string `json:"patient_responsibility,omitempty"`
	ProcedureStatus       string `json:"procedure_status"`
}

// RawPayment is one claim-payments-feed record.
type RawPayment struct {
	ClaimPaymentID *int64 `json:"claim_payment_id"`
	CheckAmount    string `json:"check_amount"`
	CheckDate      string `json:"check_date"`
	PaymentType    string `json:"payment_type"`
	IsPartial      string `json:"is_partial"`
}

// RawCoverage is one coverage-feed record.
type RawCoverage struct {
	PatientID        *int64          `json:"patient_id"`
	PlanID           *int64          `json:"plan_id"`
	CarrierID        *int64          `json:"carrier_id,omitempty"`
	SubscriberID     *int64          `json:"subscriber_id,omitempty"`
	PlanType         string          `json:"plan_type"`
	GroupNumber      string          `json:"group_number"`
	GroupName        string          `json:"group_name"`
	VerificationDate string          `json:"verification_date,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"`
	IsPending        string          `json:"is_pending,omitempty"`
	BenefitDetails   json.RawMessage `json:"benefit_details,omitempty"`
}

// RawTrackingEntry is one tracking-entries-feed record.
type RawTrackingEntry struct {
	ClaimTrackingID *int64 `json:"claim_tracking_id"`
	ClaimID         *int64 `json:"claim_id"`
	TrackingType    string `json:"tracking_type"`
	EntryTimestamp  string `json:"entry_timestamp"`
	Note            string `json:"note,omitempty"`
}

// RawSnapshot is one claim-snapshots-feed record.
type RawSnapshot struct {
	ClaimProcedureID         *int64 `json:"claim_procedure_id"`
	SnapshotTrigger          string `json:"snapshot_trigger"`
	EstimatedWriteOff        string `json:"estimated_write_off"`
	InsurancePaymentEstimate string `json:"insurance_payment_estimate"`
	FeeAmount                string `json:"fee_amount"`
	EntryTimestamp           string `json:"entry_timestamp"`
}

// RawEOBAttachment is one eob-attachments-feed record.
type RawEOBAttachment struct {
	ClaimPaymentID *int64 `json:"claim_payment_id"`
	AttachmentID   string `json:"attachment_id"`
	FileName       string `json:"file_name,omitempty"`
}

// RawCatalogProcedure is one procedure-catalog-feed record: the procedure
// metadata joined into the claim-detail ledger.
type RawCatalogProcedure struct {
	ProcedureID *int64 `json:"procedure_id"`
	Code        string `json:"procedure_code"`
	Description string `json:"description,omitempty"`
}
