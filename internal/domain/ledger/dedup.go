package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/violation"
)

// paymentKey is the composite grain at which duplicate payment records are
// collapsed.
type paymentKey struct {
	claimID          int64
	procedureID      int64
	claimProcedureID int64
	claimPaymentID   int64
	hasPayment       bool
}

func (k paymentKey) String() string {
	if !k.hasPayment {
		return fmt.Sprintf("claim_procedure:%d/%d/%d", k.claimID, k.procedureID, k.claimProcedureID)
	}
	return fmt.Sprintf("claim_procedure:%d/%d/%d/payment:%d", k.claimID, k.procedureID, k.claimProcedureID, k.claimPaymentID)
}

// Candidate is one duplicate procedure record competing for a composite key.
type Candidate struct {
	Proc claim.Procedure
	// CheckDate comes from the linked payment; nil while unpaid.
	CheckDate *time.Time
	order     int
}

// Policy is the explicit tie-break that decides which of several records
// describing the same logical payment is authoritative. The rule set is a
// policy decision, not a join artifact:
//
//  1. largest paid_amount wins ("most authoritative payment record"),
//  2. then the most recent check_date,
//  3. then the first record by input order (stable).
//
// Both rules were inferred from observed source-system behavior and are
// pending product-owner confirmation.
type Policy struct{}

// Better reports whether a should be retained over b.
func (Policy) Better(a, b Candidate) bool {
	if a.Proc.PaidAmount != b.Proc.PaidAmount {
		return a.Proc.PaidAmount > b.Proc.PaidAmount
	}
	switch {
	case a.CheckDate == nil && b.CheckDate == nil:
	case a.CheckDate == nil:
		return false
	case b.CheckDate == nil:
		return true
	case !a.CheckDate.Equal(*b.CheckDate):
		return a.CheckDate.After(*b.CheckDate)
	}
	return a.order < b.order
}

// Select returns the surviving candidate for one key group.
func (p Policy) Select(group []Candidate) (Candidate, bool) {
	if len(group) == 0 {
		return Candidate{}, false
	}
	best := group[0]
	for _, c := range group[1:] {
		if p.Better(c, best) {
			best = c
		}
	}
	return best, true
}

// Dedup collapses duplicate procedure records to exactly one per composite
// key. A group of two or more candidates that yields no survivor is
// reported as a DeduplicationError; it should be logically impossible.
func Dedup(procs []claim.Procedure, payments map[int64]claim.Payment, report *violation.Report) []claim.Procedure {
	groups := make(map[paymentKey][]Candidate)
	var keys []paymentKey
	for i, p := range procs {
		k := paymentKey{
			claimID:          p.ClaimID,
			procedureID:      p.ProcedureID,
			claimProcedureID: p.ClaimProcedureID,
		}
		if p.ClaimPaymentID != nil {
			k.claimPaymentID = *p.ClaimPaymentID
			k.hasPayment = true
		}
		c := Candidate{Proc: p, order: i}
		if p.ClaimPaymentID != nil {
			if pay, ok := payments[*p.ClaimPaymentID]; ok {
				d := pay.CheckDate
				c.CheckDate = &d
			}
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}

	var policy Policy
	out := make([]claim.Procedure, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		best, ok := policy.Select(group)
		if !ok {
			report.Addf(violation.RuleDeduplication, violation.SeverityError, k.String(),
				"key group with %d candidates collapsed to zero records", len(group))
			continue
		}
		out = append(out, best.Proc)
	}
	return out
}

// dedupDetailGrain collapses the payment-grain survivors down to one record
// per (claim, procedure, claim_procedure), the grain of the claim-detail
// ledger, using the same policy.
func dedupDetailGrain(procs []claim.Procedure, payments map[int64]claim.Payment) []claim.Procedure {
	type detailKey struct {
		claimID          int64
		procedureID      int64
		claimProcedureID int64
	}
	groups := make(map[detailKey][]Candidate)
	var keys []detailKey
	for i, p := range procs {
		k := detailKey{p.ClaimID, p.ProcedureID, p.ClaimProcedureID}
		c := Candidate{Proc: p, order: i}
		if p.ClaimPaymentID != nil {
			if pay, ok := payments[*p.ClaimPaymentID]; ok {
				d := pay.CheckDate
				c.CheckDate = &d
			}
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.claimID != b.claimID {
			return a.claimID < b.claimID
		}
		if a.procedureID != b.procedureID {
			return a.procedureID < b.procedureID
		}
		return a.claimProcedureID < b.claimProcedureID
	})

	var policy Policy
	out := make([]claim.Procedure, 0, len(keys))
	for _, k := range keys {
		if best, ok := policy.Select(groups[k]); ok {
			out = append(out, best.Proc)
		}
	}
	return out
}
