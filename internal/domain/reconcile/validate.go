package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentledger/dentledger/internal/domain/ledger"
	"github.com/dentledger/dentledger/internal/domain/snapshot"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/money"
)

// Dates before this are implausible for a live practice feed.
var minPlausibleDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Validate runs the cross-cutting integrity checks over the built outputs
// and records findings on report. Checks never mutate rows: a violating row
// stays in the output so the caller can inspect it alongside the finding.
func Validate(details []ledger.ClaimDetail, payDetails []ledger.ClaimPaymentDetail,
	snaps []snapshot.Snapshot, runTS time.Time, report *violation.Report) {

	maxPlausibleDate := runTS.AddDate(1, 0, 0)

	seenDetail := make(map[uuid.UUID]bool, len(details))
	for _, d := range details {
		key := d.ClaimDetailID.String()

		if seenDetail[d.ClaimDetailID] {
			report.Addf(violation.RuleDeduplication, violation.SeverityError, key,
				"duplicate claim_detail_id for claim %d procedure %d", d.ClaimID, d.ClaimProcedureID)
		}
		seenDetail[d.ClaimDetailID] = true

		checkFinancials(key, d.BilledAmount, d.AllowedAmount, d.PaidAmount,
			d.WriteOffAmount, d.PatientResponsibility, report)
		checkDate(key, "claim_date", d.ClaimDate, maxPlausibleDate, report)
		if d.LastTrackingDate != nil {
			checkDate(key, "last_tracking_date", *d.LastTrackingDate, maxPlausibleDate, report)
		}
	}

	seenPay := make(map[uuid.UUID]bool, len(payDetails))
	for _, d := range payDetails {
		key := d.ClaimPaymentDetailID.String()

		if seenPay[d.ClaimPaymentDetailID] {
			report.Addf(violation.RuleDeduplication, violation.SeverityError, key,
				"duplicate claim_payment_detail_id for claim %d procedure %d", d.ClaimID, d.ClaimProcedureID)
		}
		seenPay[d.ClaimPaymentDetailID] = true

		checkFinancials(key, d.BilledAmount, d.AllowedAmount, d.PaidAmount,
			d.WriteOffAmount, d.PatientResponsibility, report)
		if d.CheckDate != nil {
			checkDate(key, "check_date", *d.CheckDate, maxPlausibleDate, report)
		}
	}

	seenSnap := make(map[uuid.UUID]bool, len(snaps))
	for _, s := range snaps {
		key := s.ClaimSnapshotID.String()
		if seenSnap[s.ClaimSnapshotID] {
			report.Addf(violation.RuleDeduplication, violation.SeverityError, key,
				"duplicate claim_snapshot_id for claim %d", s.ClaimID)
		}
		seenSnap[s.ClaimSnapshotID] = true

		checkDate(key, "entry_timestamp", s.EntryTimestamp, maxPlausibleDate, report)
		checkNegative(key, "estimated_write_off", s.EstimatedWriteOff, report)
		checkNegative(key, "insurance_payment_estimate", s.InsurancePaymentEstimate, report)
		checkNegative(key, "fee_amount", s.FeeAmount, report)
	}
}

// checkFinancials enforces billed >= paid + write_off + patient_responsibility.
// A sentinel in any of the four terms means the split is not yet known, so
// the inequality is skipped for that row. Allowed exceeding billed is a warn
// only: it is most often a decimal-placement typo in the carrier feed, not a
// reconciliation failure.
func checkFinancials(key string, billed, allowed, paid, writeOff, patientResp money.Amount,
	report *violation.Report) {

	checkNegative(key, "billed_amount", billed, report)
	checkNegative(key, "allowed_amount", allowed, report)
	checkNegative(key, "paid_amount", paid, report)
	checkNegative(key, "write_off_amount", writeOff, report)
	checkNegative(key, "patient_responsibility", patientResp, report)

	if billed.IsSentinel() || paid.IsSentinel() || writeOff.IsSentinel() || patientResp.IsSentinel() {
		return
	}
	if paid+writeOff+patientResp > billed {
		report.Addf(violation.RuleFinancialReconciliation, violation.SeverityError, key,
			"paid %s + write-off %s + patient %s exceeds billed %s",
			paid, writeOff, patientResp, billed)
	}
	if !allowed.IsSentinel() && allowed > billed {
		report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
			"allowed %s exceeds billed %s (possible decimal placement error)", allowed, billed)
	}
}

func checkNegative(key, field string, amount money.Amount, report *violation.Report) {
	if amount.IsSentinel() || amount >= 0 {
		return
	}
	report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
		"%s is negative: %s", field, amount)
}

func checkDate(key, field string, t time.Time, max time.Time, report *violation.Report) {
	if t.Before(minPlausibleDate) {
		report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
			"%s %s predates plausible range", field, t.Format("2006-01-02"))
		return
	}
	if t.After(max) {
		report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
			"%s %s is further than a year in the future", field, t.Format("2006-01-02"))
	}
}
