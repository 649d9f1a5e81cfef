package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/coverage"
	"github.com/dentledger/dentledger/internal/domain/violation"
	"github.com/dentledger/dentledger/internal/platform/keygen"
)

// Builder joins the normalized entities into the two ledgers. All joins are
// left joins from the procedure side: a procedure without a resolvable
// payment or coverage still yields a row with nil fields.
type Builder struct {
	log    zerolog.Logger
	shards int
}

// NewBuilder returns a Builder. shards > 1 enables parallel builds; output
// is canonical-ordered either way.
func NewBuilder(log zerolog.Logger, shards int) *Builder {
	if shards < 1 {
		shards = 1
	}
	return &Builder{log: log, shards: shards}
}

// BuildClaimDetails builds the claim-detail ledger from procedures already
// collapsed to the payment grain. Sharding partitions by claim_id: no
// claim-detail join crosses a claim boundary.
func (b *Builder) BuildClaimDetails(ctx context.Context, claims []claim.Claim, procs []claim.Procedure,
	payments []claim.Payment, catalog []claim.CatalogProcedure, res *coverage.Resolver,
	report *violation.Report) ([]ClaimDetail, error) {

	claimIdx := make(map[int64]claim.Claim, len(claims))
	for _, c := range claims {
		claimIdx[c.ClaimID] = c
	}
	catalogIdx := make(map[int64]claim.CatalogProcedure, len(catalog))
	for _, cp := range catalog {
		catalogIdx[cp.ProcedureID] = cp
	}
	payIdx := indexPayments(payments)

	detailProcs := dedupDetailGrain(procs, payIdx)

	// A verified primary claim that is not held must name a plan. Checked
	// once per claim entering the ledger, not per joined row.
	withRows := make(map[int64]bool)
	for _, p := range detailProcs {
		withRows[p.ClaimID] = true
	}
	for _, c := range claims {
		if !withRows[c.ClaimID] {
			continue
		}
		if c.Type == claim.TypePrimary && c.IsVerified() && !c.IsHeld() && c.PlanID == nil {
			report.Addf(violation.RuleReferentialIntegrity, violation.SeverityError,
				fmt.Sprintf("claim:%d", c.ClaimID),
				"verified primary claim %d has no insurance plan", c.ClaimID)
		}
	}

	build := func(shard []claim.Procedure, out *[]ClaimDetail, rep *violation.Report) {
		for _, p := range shard {
			if row, ok := b.buildDetailRow(p, claimIdx, catalogIdx, res, rep); ok {
				*out = append(*out, row)
			}
		}
	}

	var rows []ClaimDetail
	if b.shards <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		build(detailProcs, &rows, report)
	} else {
		buckets := make([][]claim.Procedure, b.shards)
		for _, p := range detailProcs {
			i := shardIndex(p.ClaimID, b.shards)
			buckets[i] = append(buckets[i], p)
		}
		outs := make([][]ClaimDetail, b.shards)
		reps := make([]*violation.Report, b.shards)
		g, _ := errgroup.WithContext(ctx)
		for i := range buckets {
			i := i
			reps[i] = violation.NewReport()
			g.Go(func() error {
				build(buckets[i], &outs[i], reps[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range outs {
			rows = append(rows, outs[i]...)
			report.Merge(reps[i])
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, r := rows[i], rows[j]
		if a.ClaimID != r.ClaimID {
			return a.ClaimID < r.ClaimID
		}
		if a.ProcedureID != r.ProcedureID {
			return a.ProcedureID < r.ProcedureID
		}
		return a.ClaimProcedureID < r.ClaimProcedureID
	})
	b.log.Info().Int("rows", len(rows)).Msg("built claim detail ledger")
	return rows, nil
}

func (b *Builder) buildDetailRow(p claim.Procedure, claimIdx map[int64]claim.Claim,
	catalogIdx map[int64]claim.CatalogProcedure, res *coverage.Resolver,
	report *violation.Report) (ClaimDetail, bool) {

	key := paymentKey{claimID: p.ClaimID, procedureID: p.ProcedureID, claimProcedureID: p.ClaimProcedureID}

	c, ok := claimIdx[p.ClaimID]
	if !ok {
		report.Addf(violation.RuleReferentialIntegrity, violation.SeverityWarn, key.String(),
			"procedure references missing claim %d", p.ClaimID)
		return ClaimDetail{}, false
	}

	id, err := keygen.Hash(
		keygen.Int64("claim_id", p.ClaimID),
		keygen.Int64("procedure_id", p.ProcedureID),
		keygen.Int64("claim_procedure_id", p.ClaimProcedureID),
	)
	if err != nil {
		report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key.String(),
			"cannot derive claim_detail_id: %v", err)
		return ClaimDetail{}, false
	}

	row := ClaimDetail{
		ClaimDetailID:         id,
		ClaimID:               p.ClaimID,
		PatientID:             c.PatientID,
		PlanID:                c.PlanID,
		ProcedureID:           p.ProcedureID,
		ClaimProcedureID:      p.ClaimProcedureID,
		ClaimStatus:           c.Status,
		ClaimType:             c.Type,
		ClaimDate:             c.ClaimDate,
		LastTrackingDate:      c.LastTrackingDate,
		BilledAmount:          p.BilledAmount,
		AllowedAmount:         p.AllowedAmount,
		PaidAmount:            p.PaidAmount,
		WriteOffAmount:        p.WriteOffAmount,
		PatientResponsibility: p.PatientResponsibility,
		ProcedureStatus:       p.ProcedureStatus,
	}

	if meta, ok := catalogIdx[p.ProcedureID]; ok {
		code := meta.Code
		row.ProcedureCode = &code
		row.ProcedureDescription = meta.Description
	}

	if c.PlanID != nil {
		if cov := res.Resolve(c.PatientID, *c.PlanID); cov != nil {
			planID := cov.InsurancePlanID
			carrier := cov.CarrierID
			subscriber := cov.SubscriberID
			planType := cov.PlanType
			groupNumber := cov.GroupNumber
			groupName := cov.GroupName
			active := cov.IsActive
			incomplete := cov.IsIncompleteRecord
			row.InsurancePlanID = &planID
			row.CarrierID = &carrier
			row.SubscriberID = &subscriber
			row.PlanType = &planType
			row.GroupNumber = &groupNumber
			row.GroupName = &groupName
			row.VerificationDate = cov.VerificationDate
			row.CoverageActive = &active
			row.CoverageIncomplete = &incomplete
		} else {
			report.Addf(violation.RuleReferentialIntegrity, violation.SeverityWarn, key.String(),
				"claim %d references plan %d with no coverage record", c.ClaimID, *c.PlanID)
		}
	}

	return row, true
}

// BuildPaymentDetails builds the payment-detail ledger. Sharding partitions
// by claim_payment_id because one check may span claims; unpaid procedures
// fall back to the claim shard.
func (b *Builder) BuildPaymentDetails(ctx context.Context, procs []claim.Procedure,
	payments []claim.Payment, eobs []claim.EOBAttachment,
	report *violation.Report) ([]ClaimPaymentDetail, error) {

	payIdx := indexPayments(payments)
	eobIdx := make(map[int64][]string)
	for _, a := range eobs {
		eobIdx[a.ClaimPaymentID] = append(eobIdx[a.ClaimPaymentID], a.AttachmentID)
	}
	for id := range eobIdx {
		sort.Strings(eobIdx[id])
	}

	build := func(shard []claim.Procedure, out *[]ClaimPaymentDetail, rep *violation.Report) {
		for _, p := range shard {
			if row, ok := b.buildPaymentRow(p, payIdx, eobIdx, rep); ok {
				*out = append(*out, row)
			}
		}
	}

	var rows []ClaimPaymentDetail
	if b.shards <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		build(procs, &rows, report)
	} else {
		buckets := make([][]claim.Procedure, b.shards)
		for _, p := range procs {
			key := p.ClaimID
			if p.ClaimPaymentID != nil {
				key = *p.ClaimPaymentID
			}
			buckets[shardIndex(key, b.shards)] = append(buckets[shardIndex(key, b.shards)], p)
		}
		outs := make([][]ClaimPaymentDetail, b.shards)
		reps := make([]*violation.Report, b.shards)
		g, _ := errgroup.WithContext(ctx)
		for i := range buckets {
			i := i
			reps[i] = violation.NewReport()
			g.Go(func() error {
				build(buckets[i], &outs[i], reps[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range outs {
			rows = append(rows, outs[i]...)
			report.Merge(reps[i])
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, r := rows[i], rows[j]
		if a.ClaimID != r.ClaimID {
			return a.ClaimID < r.ClaimID
		}
		if a.ProcedureID != r.ProcedureID {
			return a.ProcedureID < r.ProcedureID
		}
		if a.ClaimProcedureID != r.ClaimProcedureID {
			return a.ClaimProcedureID < r.ClaimProcedureID
		}
		return derefInt64(a.ClaimPaymentID) < derefInt64(r.ClaimPaymentID)
	})
	b.log.Info().Int("rows", len(rows)).Msg("built claim payment detail ledger")
	return rows, nil
}

func (b *Builder) buildPaymentRow(p claim.Procedure, payIdx map[int64]claim.Payment,
	eobIdx map[int64][]string, report *violation.Report) (ClaimPaymentDetail, bool) {

	key := paymentKey{claimID: p.ClaimID, procedureID: p.ProcedureID, claimProcedureID: p.ClaimProcedureID}
	if p.ClaimPaymentID != nil {
		key.claimPaymentID = *p.ClaimPaymentID
		key.hasPayment = true
	}

	id, err := keygen.Hash(
		keygen.Int64("claim_id", p.ClaimID),
		keygen.Int64("procedure_id", p.ProcedureID),
		keygen.Int64("claim_procedure_id", p.ClaimProcedureID),
		keygen.OptInt64("claim_payment_id", p.ClaimPaymentID),
	)
	if err != nil {
		report.Addf(violation.RuleMissingKeyComponent, violation.SeverityError, key.String(),
			"cannot derive claim_payment_detail_id: %v", err)
		return ClaimPaymentDetail{}, false
	}

	row := ClaimPaymentDetail{
		ClaimPaymentDetailID:  id,
		ClaimID:               p.ClaimID,
		ProcedureID:           p.ProcedureID,
		ClaimProcedureID:      p.ClaimProcedureID,
		ClaimPaymentID:        p.ClaimPaymentID,
		BilledAmount:          p.BilledAmount,
		AllowedAmount:         p.AllowedAmount,
		PaidAmount:            p.PaidAmount,
		WriteOffAmount:        p.WriteOffAmount,
		PatientResponsibility: p.PatientResponsibility,
	}

	if p.ClaimPaymentID != nil {
		if pay, ok := payIdx[*p.ClaimPaymentID]; ok {
			amount := pay.CheckAmount
			date := pay.CheckDate
			payType := pay.PaymentType
			partial := pay.IsPartial
			row.CheckAmount = &amount
			row.CheckDate = &date
			row.PaymentType = &payType
			row.IsPartial = &partial
			row.EOBAttachmentIDs = eobIdx[*p.ClaimPaymentID]
		} else {
			report.Addf(violation.RuleReferentialIntegrity, violation.SeverityWarn, key.String(),
				"procedure references missing payment %d", *p.ClaimPaymentID)
		}
	}

	return row, true
}

func indexPayments(payments []claim.Payment) map[int64]claim.Payment {
	idx := make(map[int64]claim.Payment, len(payments))
	for _, p := range payments {
		idx[p.ClaimPaymentID] = p
	}
	return idx
}

func shardIndex(key int64, shards int) int {
	i := int(key % int64(shards))
	if i < 0 {
		i += shards
	}
	return i
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return -1
	}
	return *p
}
