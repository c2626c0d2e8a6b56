package plinko

import "fmt"

// Bet is one historical round as recorded by the live game.
type Bet struct {
	ID string
	SeedPair
	Nonce            uint64
	Rows             int
	Risk             Risk
	Bucket           int
	BetAmount        float64
	WinAmount        float64
	PayoutMultiplier float64
}

// Verification compares a recorded bucket with the recomputed one.
type Verification struct {
	BetID            string `json:"betId"`
	ServerSeedHashed string `json:"serverSeedHashed"`
	ClientSeed       string `json:"clientSeed"`
	Nonce            uint64 `json:"nonce"`
	Recorded         int    `json:"liveResult"`
	Recomputed       int    `json:"recomputedResult"`
	Match            bool   `json:"match"`
}

// VerifyBet recomputes one bet. A mismatch is reported in the result, not as
// an error; errors only come from out-of-domain input.
func VerifyBet(src OutcomeSource, bet Bet) (Verification, error) {
	bucket, err := src.Outcome(bet.ServerSeed, bet.ClientSeed, bet.Nonce, bet.Rows)
	if err != nil {
		return Verification{}, fmt.Errorf("bet %s: %w", bet.ID, err)
	}
	return Verification{
		BetID:            bet.ID,
		ServerSeedHashed: bet.ServerSeedHashed,
		ClientSeed:       bet.ClientSeed,
		Nonce:            bet.Nonce,
		Recorded:         bet.Bucket,
		Recomputed:       bucket,
		Match:            bucket == bet.Bucket,
	}, nil
}

// Verify recomputes every bet in order.
func Verify(src OutcomeSource, bets []Bet) ([]Verification, error) {
	out := make([]Verification, 0, len(bets))
	for _, bet := range bets {
		v, err := VerifyBet(src, bet)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Mismatches counts records whose Match is false.
func Mismatches(records []Verification) int {
	n := 0
	for _, r := range records {
		if !r.Match {
			n++
		}
	}
	return n
}
