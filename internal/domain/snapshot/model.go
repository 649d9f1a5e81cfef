// Package snapshot builds the append-only claim-snapshot history: one
// immutable row per point-in-time belief about a claim procedure, enriched
// with the actual amounts known today so estimate-vs-actual variance falls
// out of a single row.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentledger/dentledger/internal/platform/money"
)

// Trigger is the event category that caused a snapshot to be recorded.
type Trigger string

const (
	TriggerInitial    Trigger = "Initial"
	TriggerResubmit   Trigger = "Resubmit"
	TriggerPayment    Trigger = "Payment"
	TriggerAdjustment Trigger = "Adjustment"
	TriggerDenial     Trigger = "Denial"
	TriggerAppeal     Trigger = "Appeal"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerInitial, TriggerResubmit, TriggerPayment, TriggerAdjustment, TriggerDenial, TriggerAppeal:
		return true
	}
	return false
}

// Source is one normalized snapshot record from the feed, before enrichment.
type Source struct {
	ClaimProcedureID         int64        `json:"claim_procedure_id"`
	Trigger                  Trigger      `json:"snapshot_trigger"`
	EstimatedWriteOff        money.Amount `json:"estimated_write_off"`
	InsurancePaymentEstimate money.Amount `json:"insurance_payment_estimate"`
	FeeAmount                money.Amount `json:"fee_amount"`
	EntryTimestamp           time.Time    `json:"entry_timestamp"`
}

// Snapshot is one row of the claim-snapshot history. Immutable once written:
// it represents claim state as believed at EntryTimestamp, with the actual
// amounts and variances attached at build time.
type Snapshot struct {
	ClaimSnapshotID          uuid.UUID    `db:"claim_snapshot_id" json:"claim_snapshot_id"`
	ClaimProcedureID         int64        `db:"claim_procedure_id" json:"claim_procedure_id"`
	ClaimID                  int64        `db:"claim_id" json:"claim_id"`
	ProcedureID              int64        `db:"procedure_id" json:"procedure_id"`
	PatientID                int64        `db:"patient_id" json:"patient_id"`
	PlanID                   *int64       `db:"plan_id" json:"plan_id,omitempty"`
	Trigger                  Trigger      `db:"snapshot_trigger" json:"snapshot_trigger"`
	EstimatedWriteOff        money.Amount `db:"estimated_write_off" json:"estimated_write_off"`
	InsurancePaymentEstimate money.Amount `db:"insurance_payment_estimate" json:"insurance_payment_estimate"`
	FeeAmount                money.Amount `db:"fee_amount" json:"fee_amount"`
	EntryTimestamp           time.Time    `db:"entry_timestamp" json:"entry_timestamp"`

	ActualPaidAmount money.Amount `db:"actual_paid_amount" json:"actual_paid_amount"`
	ActualWriteOff   money.Amount `db:"actual_write_off" json:"actual_write_off"`
	ActualAllowed    money.Amount `db:"actual_allowed" json:"actual_allowed"`

	// Variances are nil when either side is still the sentinel.
	PaymentVariance  *money.Amount `db:"payment_variance" json:"payment_variance,omitempty"`
	WriteOffVariance *money.Amount `db:"write_off_variance" json:"write_off_variance,omitempty"`

	// DaysToPayment is nil while unpaid; 0 with the anomaly flag set when
	// the payment predates the snapshot.
	DaysToPayment      *int    `db:"days_to_payment" json:"days_to_payment,omitempty"`
	PaymentDateAnomaly bool    `db:"payment_date_anomaly" json:"payment_date_anomaly"`
	StatusNote         *string `db:"status_note" json:"status_note,omitempty"`
}
