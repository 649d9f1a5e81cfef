package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/keygen"
	"github.com/dentledger/dentledger/internal/platform/money"
)

// Tracker enriches raw snapshot sources into history rows: actual amounts
// from the linked procedure, variance against the estimates, elapsed days to
// payment, and the same-day tracking note.
type Tracker struct {
	log zerolog.Logger
}

// NewTracker returns a Tracker logging through log.
func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{log: log}
}

// Build produces the snapshot history for one run. Derived ids are stable,
// so appending the result to previously emitted history never duplicates
// rows. When two distinct sources derive the same id (a known upstream
// data-quality pattern), the row with the lower claim_id is retained; this
// tie-break is inferred from observed behavior and pending product-owner
// confirmation.
func (t *Tracker) Build(sources []Source, claims []claim.Claim, procs []claim.Procedure,
	payments []claim.Payment, tracking []claim.TrackingEntry,
	report *violation.Report) []Snapshot {

	claimIdx := make(map[int64]claim.Claim, len(claims))
	for _, c := range claims {
		claimIdx[c.ClaimID] = c
	}
	// The snapshot feed joins on claim_procedure_id alone, which is only
	// guaranteed unique within a claim. Keep the first occurrence and flag
	// cross-claim collisions rather than overwriting silently.
	procIdx := make(map[int64]claim.Procedure, len(procs))
	for _, p := range procs {
		prev, dup := procIdx[p.ClaimProcedureID]
		if dup {
			if prev.ClaimID != p.ClaimID {
				report.Addf(violation.RuleDataQuality, violation.SeverityWarn,
					fmt.Sprintf("claim_procedure:%d", p.ClaimProcedureID),
					"claim_procedure_id %d appears under claims %d and %d, snapshots join to claim %d",
					p.ClaimProcedureID, prev.ClaimID, p.ClaimID, prev.ClaimID)
			}
			continue
		}
		procIdx[p.ClaimProcedureID] = p
	}
	payIdx := make(map[int64]claim.Payment, len(payments))
	for _, p := range payments {
		payIdx[p.ClaimPaymentID] = p
	}
	trackIdx := make(map[int64][]claim.TrackingEntry)
	for _, e := range tracking {
		trackIdx[e.ClaimID] = append(trackIdx[e.ClaimID], e)
	}
	for id := range trackIdx {
		entries := trackIdx[id]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].EntryTimestamp.Before(entries[j].EntryTimestamp)
		})
	}

	byID := make(map[uuid.UUID]Snapshot)
	var order []uuid.UUID
	for _, src := range sources {
		s, ok := t.buildRow(src, claimIdx, procIdx, payIdx, trackIdx, report)
		if !ok {
			continue
		}
		existing, seen := byID[s.ClaimSnapshotID]
		if !seen {
			byID[s.ClaimSnapshotID] = s
			order = append(order, s.ClaimSnapshotID)
			continue
		}
		report.Addf(violation.RuleSnapshotKeyCollision, violation.SeverityWarn,
			s.ClaimSnapshotID.String(),
			"snapshot id collision between claims %d and %d", existing.ClaimID, s.ClaimID)
		if s.ClaimID < existing.ClaimID {
			byID[s.ClaimSnapshotID] = s
		}
	}

	out := make([]Snapshot, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ClaimID != b.ClaimID {
			return a.ClaimID < b.ClaimID
		}
		if a.ClaimProcedureID != b.ClaimProcedureID {
			return a.ClaimProcedureID < b.ClaimProcedureID
		}
		if !a.EntryTimestamp.Equal(b.EntryTimestamp) {
			return a.EntryTimestamp.Before(b.EntryTimestamp)
		}
		return a.ClaimSnapshotID.String() < b.ClaimSnapshotID.String()
	})
	t.log.Info().Int("rows", len(out)).Msg("built claim snapshot history")
	return out
}

func (t *Tracker) buildRow(src Source, claimIdx map[int64]claim.Claim, procIdx map[int64]claim.Procedure,
	payIdx map[int64]claim.Payment, trackIdx map[int64][]claim.TrackingEntry,
	report *violation.Report) (Snapshot, bool) {

	p, ok := procIdx[src.ClaimProcedureID]
	if !ok {
		report.Addf(violation.RuleReferentialIntegrity, violation.SeverityWarn,
			keyFor(src), "snapshot references missing claim procedure %d", src.ClaimProcedureID)
		return Snapshot{}, false
	}
	c, ok := claimIdx[p.ClaimID]
	if !ok {
		report.Addf(violation.RuleReferentialIntegrity, violation.SeverityWarn,
			keyFor(src), "snapshot procedure references missing claim %d", p.ClaimID)
		return Snapshot{}, false
	}

	id, err := keygen.Hash(
		keygen.Int64("claim_procedure_id", src.ClaimProcedureID),
		keygen.String("snapshot_trigger", string(src.Trigger)),
		keygen.Int64("entry_timestamp", src.EntryTimestamp.UnixNano()),
	)
	if err != nil {
		report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError,
			keyFor(src), "cannot derive claim_snapshot_id: %v", err)
		return Snapshot{}, false
	}

	s := Snapshot{
		ClaimSnapshotID:          id,
		ClaimProcedureID:         src.ClaimProcedureID,
		ClaimID:                  p.ClaimID,
		ProcedureID:              p.ProcedureID,
		PatientID:                c.PatientID,
		PlanID:                   c.PlanID,
		Trigger:                  src.Trigger,
		EstimatedWriteOff:        src.EstimatedWriteOff,
		InsurancePaymentEstimate: src.InsurancePaymentEstimate,
		FeeAmount:                src.FeeAmount,
		EntryTimestamp:           src.EntryTimestamp,
		ActualPaidAmount:         p.PaidAmount,
		ActualWriteOff:           p.WriteOffAmount,
		ActualAllowed:            p.AllowedAmount,
	}

	s.PaymentVariance = variance(p.PaidAmount, src.InsurancePaymentEstimate)
	s.WriteOffVariance = variance(p.WriteOffAmount, src.EstimatedWriteOff)

	if p.ClaimPaymentID != nil {
		if pay, ok := payIdx[*p.ClaimPaymentID]; ok {
			days := wholeDays(src.EntryTimestamp, pay.CheckDate)
			if days < 0 {
				// A check dated before the snapshot is a data anomaly, not
				// negative elapsed time.
				zero := 0
				s.DaysToPayment = &zero
				s.PaymentDateAnomaly = true
				report.Addf(violation.RuleDataQuality, violation.SeverityWarn,
					keyFor(src), "payment %d dated %s precedes snapshot at %s",
					pay.ClaimPaymentID,
					pay.CheckDate.Format("2006-01-02"),
					src.EntryTimestamp.Format(time.RFC3339))
			} else {
				s.DaysToPayment = &days
			}
		}
	}

	if entries := trackIdx[p.ClaimID]; len(entries) > 0 {
		day := src.EntryTimestamp.UTC().Truncate(24 * time.Hour)
		// entries are sorted ascending; walk backwards for the latest entry
		// on the snapshot's calendar day.
		for i := len(entries) - 1; i >= 0; i-- {
			entryDay := entries[i].EntryTimestamp.UTC().Truncate(24 * time.Hour)
			if entryDay.Equal(day) {
				s.StatusNote = entries[i].Note
				break
			}
			if entryDay.Before(day) {
				break
			}
		}
	}

	return s, true
}

// variance returns actual - estimate, or nil when either side is still the
// sentinel.
func variance(actual, estimate money.Amount) *money.Amount {
	if actual.IsSentinel() || estimate.IsSentinel() {
		return nil
	}
	v := actual - estimate
	return &v
}

// wholeDays returns the whole-day difference between the snapshot instant
// and the check date; negative when the check precedes the snapshot.
func wholeDays(snapshotAt, checkDate time.Time) int {
	d := checkDate.Sub(snapshotAt)
	if d < 0 {
		return -1
	}
	return int(d / (24 * time.Hour))
}

func keyFor(src Source) string {
	return fmt.Sprintf("claim_snapshot:%d/%s/%s", src.ClaimProcedureID, src.Trigger,
		src.EntryTimestamp.Format(time.RFC3339))
}
