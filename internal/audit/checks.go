package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/xtding233/plinko-audit/internal/dataset"
	"github.com/xtding233/plinko-audit/internal/plinko"
)

// Tolerances and bounds applied by the checks.
const (
	PayoutTolerance       = 0.000001
	DisplayTableTolerance = 0.02
	MinTheoreticalRTP     = 0.985
	MaxTheoreticalRTP     = 1.01
)

// Check names used in findings.
const (
	CheckCommitment   = "commitment"
	CheckNonce        = "nonce_sequence"
	CheckEntropy      = "entropy_sources"
	CheckDeterminism  = "determinism"
	CheckPayout       = "payout_parity"
	CheckDisplayTable = "display_table"
	CheckTheoretical  = "theoretical_rtp"
	CheckCoverage     = "coverage"
)

// Finding is one failed expectation.
type Finding struct {
	Check   string `json:"check"`
	BetID   string `json:"betId,omitempty"`
	Config  string `json:"config,omitempty"`
	Message string `json:"message"`
}

// PayoutEntry is one row of the payout log.
type PayoutEntry struct {
	BetID            string  `json:"betId"`
	BetAmount        float64 `json:"betAmount"`
	Result           int     `json:"result"`
	GameMode         string  `json:"gameMode"`
	LivePayout       float64 `json:"livePayout"`
	CalculatedPayout float64 `json:"calculatedPayout"`
	Match            bool    `json:"match"`
}

// ConfigRTP is the expected return of one configuration.
type ConfigRTP struct {
	Config         plinko.Config `json:"-"`
	Mode           string        `json:"mode"`
	TheoreticalRTP float64       `json:"theoreticalRTP"`
	ProbabilitySum float64       `json:"probabilitySum"`
}

// Commitments checks sha256(hexdecode(serverSeed)) against the published hash.
func Commitments(bets []plinko.Bet) []Finding {
	var out []Finding
	for _, b := range bets {
		raw, err := hex.DecodeString(b.ServerSeed)
		if err != nil {
			out = append(out, Finding{Check: CheckCommitment, BetID: b.ID, Message: fmt.Sprintf("server seed is not hex: %v", err)})
			continue
		}
		sum := sha256.Sum256(raw)
		if got := hex.EncodeToString(sum[:]); got != b.ServerSeedHashed {
			out = append(out, Finding{
				Check:   CheckCommitment,
				BetID:   b.ID,
				Message: fmt.Sprintf("nonce %d: sha256(serverSeed) %s does not match committed hash %s", b.Nonce, got, b.ServerSeedHashed),
			})
		}
	}
	return out
}

// NonceSequence checks that consecutive bets on the same seed pair advance
// the nonce by exactly one.
func NonceSequence(records []dataset.BetRecord) []Finding {
	var out []Finding
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Response, records[i].Response
		if prev.ServerSeedHashed != cur.ServerSeedHashed || prev.ClientSeed != cur.ClientSeed {
			continue
		}
		if cur.Nonce != prev.Nonce+1 {
			out = append(out, Finding{
				Check:   CheckNonce,
				BetID:   string(cur.ID),
				Message: fmt.Sprintf("nonce gap between bets %d and %d: expected %d, got %d", i-1, i, prev.Nonce+1, cur.Nonce),
			})
		}
	}
	return out
}

// EntropySources checks that no external randomness was mixed in.
func EntropySources(records []dataset.BetRecord) []Finding {
	var out []Finding
	for _, rec := range records {
		r := rec.Response
		if r.DrandRound != nil {
			out = append(out, Finding{Check: CheckEntropy, BetID: string(r.ID), Message: "drand_round should be null"})
		}
		if r.DrandRandomness != nil {
			out = append(out, Finding{Check: CheckEntropy, BetID: string(r.ID), Message: "drand_randomness should be null"})
		}
	}
	return out
}

// Determinism recomputes every bet and reports each mismatch.
func Determinism(src plinko.OutcomeSource, bets []plinko.Bet) ([]plinko.Verification, []Finding, error) {
	records, err := plinko.Verify(src, bets)
	if err != nil {
		return nil, nil, err
	}
	var out []Finding
	for i, r := range records {
		if r.Match {
			continue
		}
		out = append(out, Finding{
			Check:   CheckDeterminism,
			BetID:   r.BetID,
			Config:  plinko.Config{Risk: bets[i].Risk, Rows: bets[i].Rows}.String(),
			Message: fmt.Sprintf("nonce %d: expected slot %d, got %d", r.Nonce, r.Recorded, r.Recomputed),
		})
	}
	return records, out, nil
}

// Payouts checks win == amount × multiplier as reported by the API, in
// decimal arithmetic.
func Payouts(records []dataset.BetRecord) ([]PayoutEntry, []Finding) {
	tolerance := decimal.NewFromFloat(PayoutTolerance)
	entries := make([]PayoutEntry, 0, len(records))
	var out []Finding
	for _, rec := range records {
		r := rec.Response
		calculated := r.AmountCurrency.Mul(r.PayoutMultiplier)
		diff := r.WinAmount.Sub(calculated).Abs()
		match := diff.LessThan(tolerance)

		entries = append(entries, PayoutEntry{
			BetID:            string(r.ID),
			BetAmount:        r.AmountCurrency.InexactFloat64(),
			Result:           r.FinalSlot,
			GameMode:         fmt.Sprintf("%s/%drows", r.RiskLevel, r.Rows),
			LivePayout:       r.WinAmount.InexactFloat64(),
			CalculatedPayout: calculated.InexactFloat64(),
			Match:            match,
		})
		if !match {
			out = append(out, Finding{
				Check:   CheckPayout,
				BetID:   string(r.ID),
				Message: fmt.Sprintf("expected %s, got %s, diff=%s", calculated, r.WinAmount, diff),
			})
		}
	}
	return entries, out
}

// DisplayTable checks the live win against bet × table multiplier, allowing
// DisplayTableTolerance relative error.
func DisplayTable(bets []plinko.Bet, table *plinko.Table) []Finding {
	var out []Finding
	for _, b := range bets {
		cfg := plinko.Config{Risk: b.Risk, Rows: b.Rows}.String()
		tableWin, err := table.Resolve(b.BetAmount, b.Bucket, b.Rows, b.Risk)
		if err != nil {
			out = append(out, Finding{Check: CheckDisplayTable, BetID: b.ID, Config: cfg, Message: err.Error()})
			continue
		}
		if tableWin == 0 {
			if b.WinAmount != 0 {
				out = append(out, Finding{Check: CheckDisplayTable, BetID: b.ID, Config: cfg, Message: "table pays 0 but live win is not 0"})
			}
			continue
		}
		relErr := math.Abs(b.WinAmount-tableWin) / tableWin
		if relErr >= DisplayTableTolerance {
			out = append(out, Finding{
				Check:   CheckDisplayTable,
				BetID:   b.ID,
				Config:  cfg,
				Message: fmt.Sprintf("nonce %d: relative error %.2f%% exceeds %.0f%%", b.Nonce, relErr*100, DisplayTableTolerance*100),
			})
		}
	}
	return out
}

// TheoreticalRTP computes every configuration's expected return and checks
// the probabilities sum to 1 and the return lies in [MinTheoreticalRTP, MaxTheoreticalRTP).
func TheoreticalRTP(table *plinko.Table) ([]ConfigRTP, []Finding, error) {
	configs := plinko.Configs()
	rtps := make([]ConfigRTP, 0, len(configs))
	var out []Finding
	for _, c := range configs {
		rtp, err := table.TheoreticalRTP(c.Risk, c.Rows)
		if err != nil {
			return nil, nil, err
		}
		var probSum float64
		for k := 0; k <= c.Rows; k++ {
			probSum += plinko.BucketProbability(c.Rows, k)
		}
		rtps = append(rtps, ConfigRTP{Config: c, Mode: c.String(), TheoreticalRTP: rtp, ProbabilitySum: probSum})

		if math.Abs(probSum-1) >= 1e-9 {
			out = append(out, Finding{Check: CheckTheoretical, Config: c.String(), Message: fmt.Sprintf("probabilities sum to %v", probSum)})
		}
		switch {
		case rtp < MinTheoreticalRTP:
			out = append(out, Finding{Check: CheckTheoretical, Config: c.String(), Message: fmt.Sprintf("RTP=%.2f%% too low", rtp*100)})
		case rtp >= MaxTheoreticalRTP:
			out = append(out, Finding{Check: CheckTheoretical, Config: c.String(), Message: fmt.Sprintf("RTP=%.2f%% too high", rtp*100)})
		}
	}
	return rtps, out, nil
}
