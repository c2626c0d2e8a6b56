// Package audit runs the provably-fair checklist over a bet dataset:
// commit/reveal, nonce sequencing, entropy sources, outcome determinism,
// payout parity, display-table agreement and theoretical RTP bounds.
//
// Checks report failures as Findings. Errors are reserved for input the
// checks cannot evaluate at all.
package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xtding233/plinko-audit/internal/dataset"
	"github.com/xtding233/plinko-audit/internal/plinko"
)

// Result collects everything the checklist produced.
type Result struct {
	Determinism    []plinko.Verification
	Payouts        []PayoutEntry
	TheoreticalRTP []ConfigRTP
	// GameRTP is the unweighted mean of TheoreticalRTP.
	GameRTP      float64
	VerifiedBets int
	Findings     []Finding
}

// Passed reports whether no check failed.
func (r Result) Passed() bool { return len(r.Findings) == 0 }

// FindingsFor returns the findings of one check.
func (r Result) FindingsFor(check string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Check == check {
			out = append(out, f)
		}
	}
	return out
}

// Auditor runs the checklist against one payout table.
type Auditor struct {
	source plinko.OutcomeSource
	table  *plinko.Table
	logger *zap.Logger

	// MinVerifiedBets fails coverage when fewer bets could be verified.
	MinVerifiedBets int
}

// New creates an Auditor. A nil source uses a fresh Cache; a nil logger
// discards output.
func New(source plinko.OutcomeSource, table *plinko.Table, logger *zap.Logger) *Auditor {
	if source == nil {
		source = plinko.NewCache(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{source: source, table: table, logger: logger}
}

// Run executes every check against d.
func (a *Auditor) Run(ctx context.Context, d *dataset.Dataset) (Result, error) {
	_, span := otel.Tracer("github.com/xtding233/plinko-audit/internal/audit").Start(ctx, "audit.Run")
	defer span.End()

	bets, err := d.ResolvedBets()
	if err != nil {
		return Result{}, fmt.Errorf("resolve bets: %w", err)
	}
	res := Result{VerifiedBets: len(bets)}
	span.SetAttributes(attribute.Int("audit.bets", len(d.Bets)), attribute.Int("audit.verified_bets", len(bets)))

	if len(bets) == 0 || len(bets) < a.MinVerifiedBets {
		res.Findings = append(res.Findings, Finding{
			Check:   CheckCoverage,
			Message: fmt.Sprintf("expected at least %d verified bets, got %d", max(a.MinVerifiedBets, 1), len(bets)),
		})
	}

	a.add(&res, CheckCommitment, Commitments(bets))
	a.add(&res, CheckNonce, NonceSequence(d.Bets))
	a.add(&res, CheckEntropy, EntropySources(d.Bets))

	verifications, findings, err := Determinism(a.source, bets)
	if err != nil {
		return Result{}, err
	}
	res.Determinism = verifications
	a.add(&res, CheckDeterminism, findings)

	payouts, findings := Payouts(d.Bets)
	res.Payouts = payouts
	a.add(&res, CheckPayout, findings)

	a.add(&res, CheckDisplayTable, DisplayTable(bets, a.table))

	rtps, findings, err := TheoreticalRTP(a.table)
	if err != nil {
		return Result{}, err
	}
	res.TheoreticalRTP = rtps
	var sum float64
	for _, r := range rtps {
		sum += r.TheoreticalRTP
	}
	if len(rtps) > 0 {
		res.GameRTP = sum / float64(len(rtps))
	}
	a.add(&res, CheckTheoretical, findings)

	a.logger.Info("audit finished",
		zap.Int("bets", len(d.Bets)),
		zap.Int("verified_bets", len(bets)),
		zap.Int("findings", len(res.Findings)),
		zap.Float64("game_rtp", res.GameRTP),
	)
	return res, nil
}

func (a *Auditor) add(res *Result, check string, findings []Finding) {
	if len(findings) == 0 {
		a.logger.Debug("check passed", zap.String("check", check))
		return
	}
	a.logger.Warn("check failed",
		zap.String("check", check),
		zap.Int("findings", len(findings)),
		zap.String("first", findings[0].Message),
	)
	res.Findings = append(res.Findings, findings...)
}
