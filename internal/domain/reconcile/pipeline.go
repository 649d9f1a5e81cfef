// Package reconcile orchestrates a full reconciliation run: normalize the
// raw feeds, collapse duplicate payment splits, resolve coverage, build the
// two ledgers and the snapshot history, then validate the result. A run is a
// pure function of its inputs plus the run timestamp, so re-running the same
// feeds always produces the same ledgers.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentledger/dentledger/internal/domain/claim"
	"github.com/dentledger/dentledger/internal/domain/coverage"
	"github.com/dentledger/dentledger/internal/domain/ingest"
	"github.com/dentledger/dentledger/internal/domain/ledger"
	"github.com/dentledger/dentledger/internal/domain/snapshot"
	"github.com/dentledger/dentledger/internal/domain/violation"
)

// Inputs are the raw practice-management feeds for one run.
type Inputs struct {
	Claims          []ingest.RawClaim            `json:"claims"`
	Procedures      []ingest.RawProcedure        `json:"procedures"`
	Payments        []ingest.RawPayment          `json:"payments"`
	Coverage        []ingest.RawCoverage         `json:"coverage"`
	TrackingEntries []ingest.RawTrackingEntry    `json:"tracking_entries"`
	Snapshots       []ingest.RawSnapshot         `json:"snapshots"`
	EOBAttachments  []ingest.RawEOBAttachment    `json:"eob_attachments"`
	Catalog         []ingest.RawCatalogProcedure `json:"procedure_catalog"`
}

// Outputs are the reconciled artifacts of one run.
type Outputs struct {
	ClaimDetails   []ledger.ClaimDetail         `json:"claim_details"`
	PaymentDetails []ledger.ClaimPaymentDetail  `json:"payment_details"`
	Snapshots      []snapshot.Snapshot          `json:"snapshots"`
	Coverage       []coverage.InsuranceCoverage `json:"coverage"`
	Violations     []violation.Violation        `json:"violations"`
}

// Pipeline runs the reconciliation stages in order.
type Pipeline struct {
	log    zerolog.Logger
	shards int
}

// NewPipeline returns a Pipeline. shards controls ledger-build parallelism;
// values below 2 run serially.
func NewPipeline(log zerolog.Logger, shards int) *Pipeline {
	return &Pipeline{log: log, shards: shards}
}

// Run executes one reconciliation over the given feeds. runTS anchors the
// date plausibility checks; it is normally time.Now() but is explicit so a
// run can be replayed. Outputs are deterministically ordered.
func (p *Pipeline) Run(ctx context.Context, in Inputs, runTS time.Time) (*Outputs, error) {
	report := violation.NewReport()

	norm := ingest.NewNormalizer(p.log)
	claims := norm.Claims(in.Claims, report)
	procs := norm.Procedures(in.Procedures, report)
	payments := norm.Payments(in.Payments, report)
	covSources := norm.Coverage(in.Coverage, report)
	tracking := norm.TrackingEntries(in.TrackingEntries, report)
	snapSources := norm.Snapshots(in.Snapshots, report)
	eobs := norm.EOBAttachments(in.EOBAttachments, report)
	catalog := norm.Catalog(in.Catalog, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.log.Info().
		Int("claims", len(claims)).
		Int("procedures", len(procs)).
		Int("payments", len(payments)).
		Msg("feeds normalized")

	payIdx := make(map[int64]claim.Payment, len(payments))
	for _, pay := range payments {
		payIdx[pay.ClaimPaymentID] = pay
	}
	procs = ledger.Dedup(procs, payIdx, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolver := coverage.NewResolver(p.log, covSources)

	builder := ledger.NewBuilder(p.log, p.shards)
	details, err := builder.BuildClaimDetails(ctx, claims, procs, payments, catalog, resolver, report)
	if err != nil {
		return nil, err
	}
	payDetails, err := builder.BuildPaymentDetails(ctx, procs, payments, eobs, report)
	if err != nil {
		return nil, err
	}

	tracker := snapshot.NewTracker(p.log)
	snaps := tracker.Build(snapSources, claims, procs, payments, tracking, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	Validate(details, payDetails, snaps, runTS, report)

	p.log.Info().
		Int("claim_details", len(details)).
		Int("payment_details", len(payDetails)).
		Int("snapshots", len(snaps)).
		Int("violations", report.Len()).
		Msg("reconciliation run complete")

	return &Outputs{
		ClaimDetails:   details,
		PaymentDetails: payDetails,
		Snapshots:      snaps,
		Coverage:       resolver.All(),
		Violations:     report.All(),
	}, nil
}
