// Package claim holds the canonical entities the reconciliation pipeline
// operates on: claims, billed procedures, insurer payments and the
// append-only tracking trail. The entity normalizer produces these from the
// raw practice-management feeds; every later stage consumes them.
package claim

import (
	"strings"
	"time"

	"github.com/dentledger/dentledger/internal/platform/money"
)

// Type is the closed set of claim types.
type Type string

const (
	TypePrimary    Type = "Primary"
	TypeSecondary  Type = "Secondary"
	TypePreAuth    Type = "PreAuth"
	TypeCapitation Type = "Capitation"
	TypeOther      Type = "Other"
)

// Valid reports whether t is a known claim type.
func (t Type) Valid() bool {
	switch t {
	case TypePrimary, TypeSecondary, TypePreAuth, TypeCapitation, TypeOther:
		return true
	}
	return false
}

// TrackingType categorizes a tracking-trail entry.
type TrackingType string

const (
	TrackingStatusChange      TrackingType = "status-change"
	TrackingUserNote          TrackingType = "user-note"
	TrackingProcedureReceived TrackingType = "procedure-received"
)

// Valid reports whether t is a known tracking type.
func (t TrackingType) Valid() bool {
	switch t {
	case TrackingStatusChange, TrackingUserNote, TrackingProcedureReceived:
		return true
	}
	return false
}

// Claim is one reimbursement request submitted to an insurer. Created when
// first submitted upstream, mutated as status changes, never deleted.
type Claim struct {
	ClaimID          int64      `db:"claim_id" json:"claim_id"`
	PatientID        int64      `db:"patient_id" json:"patient_id"`
	PlanID           *int64     `db:"plan_id" json:"plan_id,omitempty"`
	Status           string     `db:"status" json:"status"`
	Type             Type       `db:"type" json:"type"`
	ClaimDate        time.Time  `db:"claim_date" json:"claim_date"`
	LastTrackingDate *time.Time `db:"last_tracking_date" json:"last_tracking_date,omitempty"`
}

// held/waiting statuses keep a claim out of the primary-coverage rule.
var heldStatuses = map[string]bool{
	"hold": true, "waiting": true, "pending": true,
}

// verified statuses mean the claim has actually gone to (or come back from)
// the carrier.
var verifiedStatuses = map[string]bool{
	"sent": true, "received": true, "supplemental": true,
}

// IsHeld reports whether the claim sits in a held or waiting status.
func (c *Claim) IsHeld() bool {
	return heldStatuses[strings.ToLower(strings.TrimSpace(c.Status))]
}

// IsVerified reports whether the claim has been submitted to the carrier.
func (c *Claim) IsVerified() bool {
	return verifiedStatuses[strings.ToLower(strings.TrimSpace(c.Status))]
}

// Procedure is one billed procedure within a claim. Amounts default to the
// money sentinel until the source system determines them.
type Procedure struct {
	ClaimID               int64        `db:"claim_id" json:"claim_id"`
	ProcedureID           int64        `db:"procedure_id" json:"procedure_id"`
	ClaimProcedureID      int64        `db:"claim_procedure_id" json:"claim_procedure_id"`
	ClaimPaymentID        *int64       `db:"claim_payment_id" json:"claim_payment_id,omitempty"`
	BilledAmount          money.Amount `db:"billed_amount" json:"billed_amount"`
	AllowedAmount         money.Amount `db:"allowed_amount" json:"allowed_amount"`
	PaidAmount            money.Amount `db:"paid_amount" json:"paid_amount"`
	WriteOffAmount        money.Amount `db:"write_off_amount" json:"write_off_amount"`
	PatientResponsibility money.Amount `db:"patient_responsibility" json:"patient_responsibility"`
	ProcedureStatus       string       `db:"procedure_status" json:"procedure_status"`
}

// Payment is one insurer check. A single payment may cover procedures across
// several claims.
type Payment struct {
	ClaimPaymentID int64        `db:"claim_payment_id" json:"claim_payment_id"`
	CheckAmount    money.Amount `db:"check_amount" json:"check_amount"`
	CheckDate      time.Time    `db:"check_date" json:"check_date"`
	PaymentType    string       `db:"payment_type" json:"payment_type"`
	IsPartial      bool         `db:"is_partial" json:"is_partial"`
}

// TrackingEntry is one append-only audit-trail row for a claim, ordered by
// entry timestamp.
type TrackingEntry struct {
	ClaimTrackingID int64        `db:"claim_tracking_id" json:"claim_tracking_id"`
	ClaimID         int64        `db:"claim_id" json:"claim_id"`
	TrackingType    TrackingType `db:"tracking_type" json:"tracking_type"`
	EntryTimestamp  time.Time    `db:"entry_timestamp" json:"entry_timestamp"`
	Note            *string      `db:"note" json:"note,omitempty"`
}

// CatalogProcedure is the practice catalog metadata for a procedure code,
// joined into the claim-detail ledger.
type CatalogProcedure struct {
	ProcedureID int64   `db:"procedure_id" json:"procedure_id"`
	Code        string  `db:"procedure_code" json:"procedure_code"`
	Description *string `db:"description" json:"description,omitempty"`
}

// EOBAttachment references one explanation-of-benefits document attached to
// a payment. Referenced, never parsed.
type EOBAttachment struct {
	ClaimPaymentID int64  `db:"claim_payment_id" json:"claim_payment_id"`
	AttachmentID   string `db:"attachment_id" json:"attachment_id"`
	FileName       string `db:"file_name" json:"file_name"`
}
