package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/coverage"
	"github.com/dentledger/dentledger/internal/domain/snapshot"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/money"
)

// placeholder dates the source system emits instead of null.
var placeholderDates = map[string]bool{
	"":           true,
	"0001-01-01": true,
	"1753-01-01": true,
	"1900-01-01": true,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer converts raw feed records into canonical entities. Records that
// cannot be normalized are reported and dropped; the run never aborts.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer returns a Normalizer logging through log.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Claims normalizes the claims feed.
func (n *Normalizer) Claims(raw []RawClaim, report *violation.Report) []claim.Claim {
	out := make([]claim.Claim, 0, len(raw))
	for i, r := range raw {
		key := rawKey("claim", r.ClaimID, i)
		if r.ClaimID == nil || r.PatientID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"claim record missing claim_id or patient_id")
			continue
		}
		claimDate, err := parseDate(r.ClaimDate)
		if err != nil || claimDate == nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"claim record has no usable claim_date (%q)", r.ClaimDate)
			continue
		}
		lastTracking, err := parseDate(r.LastTrackingDate)
		if err != nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"unparseable last_tracking_date %q, treated as null", r.LastTrackingDate)
			lastTracking = nil
		}

		ct := claim.Type(strings.TrimSpace(r.Type))
		if !ct.Valid() {
			report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
				"unknown claim type %q mapped to Other", r.Type)
			ct = claim.TypeOther
		}

		out = append(out, claim.Claim{
			ClaimID:          *r.ClaimID,
			PatientID:        *r.PatientID,
			PlanID:           r.PlanID,
			Status:           strings.ToLower(strings.TrimSpace(r.Status)),
			Type:             ct,
			ClaimDate:        *claimDate,
			LastTrackingDate: lastTracking,
		})
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized claims")
	return out
}

// Procedures normalizes the claim-procedures feed. Absent amounts become the
// money sentinel, never zero, so "not yet determined" survives the join.
func (n *Normalizer) Procedures(raw []RawProcedure, report *violation.Report) []claim.Procedure {
	out := make([]claim.Procedure, 0, len(raw))
	for i, r := range raw {
		key := rawKey("claim_procedure", r.ClaimProcedureID, i)
		if r.ClaimID == nil || r.ProcedureID == nil || r.ClaimProcedureID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"procedure record missing claim_id, procedure_id or claim_procedure_id")
			continue
		}
		p := claim.Procedure{
			ClaimID:          *r.ClaimID,
			ProcedureID:      *r.ProcedureID,
			ClaimProcedureID: *r.ClaimProcedureID,
			ClaimPaymentID:   r.ClaimPaymentID,
			ProcedureStatus:  strings.ToLower(strings.TrimSpace(r.ProcedureStatus)),
		}
		amounts := []struct {
			name string
			src  string
			dst  *money.Amount
		}{
			{"billed_amount", r.BilledAmount, &p.BilledAmount},
			{"allowed_amount", r.AllowedAmount, &p.AllowedAmount},
			{"paid_amount", r.PaidAmount, &p.PaidAmount},
			{"write_off_amount", r.WriteOffAmount, &p.WriteOffAmount},
			{"patient_responsibility", r.PatientResponsibility, &p.PatientResponsibility},
		}
		ok := true
		for _, a := range amounts {
			v, err := parseAmount(a.src)
			if err != nil {
				report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
					"unparseable %s %q, record dropped", a.name, a.src)
				ok = false
				break
			}
			*a.dst = v
		}
		if !ok {
			continue
		}
		out = append(out, p)
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized procedures")
	return out
}

// Payments normalizes the claim-payments feed.
func (n *Normalizer) Payments(raw []RawPayment, report *violation.Report) []claim.Payment {
	out := make([]claim.Payment, 0, len(raw))
	for i, r := range raw {
		key := rawKey("claim_payment", r.ClaimPaymentID, i)
		if r.ClaimPaymentID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"payment record missing claim_payment_id")
			continue
		}
		checkDate, err := parseDate(r.CheckDate)
		if err != nil || checkDate == nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"payment record has no usable check_date (%q)", r.CheckDate)
			continue
		}
		amount, err := parseAmount(r.CheckAmount)
		if err != nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"unparseable check_amount %q, record dropped", r.CheckAmount)
			continue
		}
		partial, known := parseBool(r.IsPartial)
		if !known && strings.TrimSpace(r.IsPartial) != "" {
			report.Addf(violation.RuleDataQuality, violation.SeverityWarn, key,
				"ambiguous is_partial flag %q treated as false", r.IsPartial)
		}
		out = append(out, claim.Payment{
			ClaimPaymentID: *r.ClaimPaymentID,
			CheckAmount:    amount,
			CheckDate:      *checkDate,
			PaymentType:    strings.ToLower(strings.TrimSpace(r.PaymentType)),
			IsPartial:      partial,
		})
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized payments")
	return out
}

// Coverage normalizes the coverage feed into resolver source records.
// Missing carrier or subscriber ids are legal here; the resolver tracks
// completeness instead of enforcing it.
func (n *Normalizer) Coverage(raw []RawCoverage, report *violation.Report) []coverage.Source {
	out := make([]coverage.Source, 0, len(raw))
	for i, r := range raw {
		key := rawKey("coverage", r.PlanID, i)
		if r.PatientID == nil || r.PlanID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"coverage record missing patient_id or plan_id")
			continue
		}
		verification, err := parseDate(r.VerificationDate)
		if err != nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"unparseable verification_date %q, treated as unverified", r.VerificationDate)
			verification = nil
		}
		created, err := parseDate(r.CreatedAt)
		if err != nil {
			created = nil
		}
		pending, _ := parseBool(r.IsPending)
		out = append(out, coverage.Source{
			PatientID:        *r.PatientID,
			PlanID:           *r.PlanID,
			CarrierID:        r.CarrierID,
			SubscriberID:     r.SubscriberID,
			PlanType:         strings.TrimSpace(r.PlanType),
			GroupNumber:      strings.TrimSpace(r.GroupNumber),
			GroupName:        strings.TrimSpace(r.GroupName),
			VerificationDate: verification,
			CreatedAt:        created,
			IsPending:        pending,
			BenefitDetails:   r.BenefitDetails,
		})
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized coverage")
	return out
}

// TrackingEntries normalizes the tracking feed.
func (n *Normalizer) TrackingEntries(raw []RawTrackingEntry, report *violation.Report) []claim.TrackingEntry {
	out := make([]claim.TrackingEntry, 0, len(raw))
	for i, r := range raw {
		key := rawKey("claim_tracking", r.ClaimTrackingID, i)
		if r.ClaimTrackingID == nil || r.ClaimID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"tracking record missing claim_tracking_id or claim_id")
			continue
		}
		ts, err := parseDate(r.EntryTimestamp)
		if err != nil || ts == nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"tracking record has no usable entry_timestamp (%q)", r.EntryTimestamp)
			continue
		}
		tt := claim.TrackingType(strings.TrimSpace(r.TrackingType))
		if !tt.Valid() {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"unknown tracking_type %q, record dropped", r.TrackingType)
			continue
		}
		out = append(out, claim.TrackingEntry{
			ClaimTrackingID: *r.ClaimTrackingID,
			ClaimID:         *r.ClaimID,
			TrackingType:    tt,
			EntryTimestamp:  *ts,
			Note:            trimToNil(r.Note),
		})
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized tracking entries")
	return out
}

// Snapshots normalizes the claim-snapshots feed.
func (n *Normalizer) Snapshots(raw []RawSnapshot, report *violation.Report) []snapshot.Source {
	out := make([]snapshot.Source, 0, len(raw))
	for i, r := range raw {
		key := rawKey("claim_snapshot", r.ClaimProcedureID, i)
		if r.ClaimProcedureID == nil {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"snapshot record missing claim_procedure_id")
			continue
		}
		ts, err := parseDate(r.EntryTimestamp)
		if err != nil || ts == nil {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"snapshot record has no usable entry_timestamp (%q)", r.EntryTimestamp)
			continue
		}
		trig := snapshot.Trigger(strings.TrimSpace(r.SnapshotTrigger))
		if !trig.Valid() {
			report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
				"unknown snapshot_trigger %q, record dropped", r.SnapshotTrigger)
			continue
		}
		s := snapshot.Source{
			ClaimProcedureID: *r.ClaimProcedureID,
			Trigger:          trig,
			EntryTimestamp:   *ts,
		}
		amounts := []struct {
			name string
			src  string
			dst  *money.Amount
		}{
			{"estimated_write_off", r.EstimatedWriteOff, &s.EstimatedWriteOff},
			{"insurance_payment_estimate", r.InsurancePaymentEstimate, &s.InsurancePaymentEstimate},
			{"fee_amount", r.FeeAmount, &s.FeeAmount},
		}
		ok := true
		for _, a := range amounts {
			v, err := parseAmount(a.src)
			if err != nil {
				report.Addf(violation.RuleNormalization, violation.SeverityWarn, key,
					"unparseable %s %q, record dropped", a.name, a.src)
				ok = false
				break
			}
			*a.dst = v
		}
		if !ok {
			continue
		}
		out = append(out, s)
	}
	n.log.Debug().Int("in", len(raw)).Int("out", len(out)).Msg("normalized snapshots")
	return out
}

// EOBAttachments normalizes the eob-attachments feed.
func (n *Normalizer) EOBAttachments(raw []RawEOBAttachment, report *violation.Report) []claim.EOBAttachment {
	out := make([]claim.EOBAttachment, 0, len(raw))
	for i, r := range raw {
		key := rawKey("eob_attachment", r.ClaimPaymentID, i)
		attachmentID := strings.TrimSpace(r.AttachmentID)
		if r.ClaimPaymentID == nil || attachmentID == "" {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"eob attachment missing claim_payment_id or attachment_id")
			continue
		}
		out = append(out, claim.EOBAttachment{
			ClaimPaymentID: *r.ClaimPaymentID,
			AttachmentID:   attachmentID,
			FileName:       strings.TrimSpace(r.FileName),
		})
	}
	return out
}

// Catalog normalizes the procedure-catalog feed.
func (n *Normalizer) Catalog(raw []RawCatalogProcedure, report *violation.Report) []claim.CatalogProcedure {
	out := make([]claim.CatalogProcedure, 0, len(raw))
	for i, r := range raw {
		key := rawKey("procedure", r.ProcedureID, i)
		code := strings.TrimSpace(r.Code)
		if r.ProcedureID == nil || code == "" {
			report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key,
				"catalog record missing procedure_id or procedure_code")
			continue
		}
		out = append(out, claim.CatalogProcedure{
			ProcedureID: *r.ProcedureID,
			Code:        code,
			Description: trimToNil(r.Description),
		})
	}
	return out
}

// parseDate reads a feed date. Placeholder dates the source system uses in
// place of null come back as (nil, nil); a malformed value is an error.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if placeholderDates[s] || placeholderDates[strings.SplitN(s, " ", 2)[0]] || placeholderDates[strings.SplitN(s, "T", 2)[0]] {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount reads a feed amount. Empty means "not supplied" and becomes
// the sentinel, preserving "not yet determined".
func parseAmount(s string) (money.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return money.Sentinel, nil
	}
	return money.Parse(s)
}

// parseBool coerces the source system's tri-state flags. The second return
// reports whether the value was recognized; unrecognized and empty values
// coerce to false.
func parseBool(s string) (value, known bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "y", "yes":
		return true, true
	case "0", "false", "f", "n", "no":
		return false, true
	}
	return false, false
}

func trimToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func rawKey(kind string, id *int64, index int) string {
	if id != nil {
		return fmt.Sprintf("%s:%d", kind, *id)
	}
	return fmt.Sprintf("%s:record[%d]", kind, index)
}
