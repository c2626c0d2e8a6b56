// Package dataset decodes the historical bet export used by the audit: the
// revealed seed pairs and the raw bet responses recorded by the live game.
package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/xtding233/plinko-audit/internal/plinko"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dataset is one export file.
type Dataset struct {
	Seeds []SeedRecord `json:"seeds"`
	Bets  []BetRecord  `json:"bets"`

	// Name is the file's base name and Hash the hex SHA-256 of its bytes;
	// both are empty for datasets decoded from a reader.
	Name string `json:"-"`
	Hash string `json:"-"`

	seeds *seedIndex
}

type SeedRecord struct {
	Seed plinko.SeedPair `json:"seed"`
}

type BetRecord struct {
	Response BetResponse `json:"response"`
}

// BetResponse is the game server's reply for one bet. Amounts arrive as
// decimal strings.
type BetResponse struct {
	ID               BetID           `json:"id"`
	ServerSeedHashed string          `json:"server_seed_hashed"`
	ClientSeed       string          `json:"client_seed"`
	Nonce            uint64          `json:"nonce"`
	Rows             int             `json:"rows"`
	RiskLevel        string          `json:"risk_level"`
	FinalSlot        int             `json:"final_slot"`
	AmountCurrency   decimal.Decimal `json:"amount_currency"`
	WinAmount        decimal.Decimal `json:"win_amount"`
	PayoutMultiplier decimal.Decimal `json:"payout_multiplier"`
	DrandRound       any             `json:"drand_round"`
	DrandRandomness  any             `json:"drand_randomness"`
}

// BetID accepts both string and numeric ids.
type BetID string

func (id *BetID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("bet id: %w", err)
		}
		*id = BetID(s)
		return nil
	}
	*id = BetID(b)
	return nil
}

// Open reads and decodes the dataset at path.
func Open(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	d, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sum := sha256.Sum256(b)
	d.Name = filepath.Base(path)
	d.Hash = hex.EncodeToString(sum[:])
	return d, nil
}

// Decode reads a dataset from r.
func Decode(r io.Reader) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a dataset from b.
func Parse(b []byte) (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &d, nil
}

// SeedPairs returns the revealed seed pairs in file order.
func (d *Dataset) SeedPairs() []plinko.SeedPair {
	out := make([]plinko.SeedPair, 0, len(d.Seeds))
	for _, s := range d.Seeds {
		out = append(out, s.Seed)
	}
	return out
}

// ServerSeed returns the revealed seed committed to by hashed.
func (d *Dataset) ServerSeed(hashed string) (string, bool) {
	if d.seeds == nil {
		d.seeds = newSeedIndex(d.Seeds)
	}
	return d.seeds.lookup(hashed)
}

// ResolvedBets converts the raw responses into verifiable bets. Bets whose
// seed commitment has no revealed seed in the dataset are skipped.
func (d *Dataset) ResolvedBets() ([]plinko.Bet, error) {
	out := make([]plinko.Bet, 0, len(d.Bets))
	for i, rec := range d.Bets {
		r := rec.Response
		serverSeed, ok := d.ServerSeed(r.ServerSeedHashed)
		if !ok {
			continue
		}
		risk, err := plinko.ParseRisk(r.RiskLevel)
		if err != nil {
			return nil, fmt.Errorf("bet %d (%s): %w", i, r.ID, err)
		}
		out = append(out, plinko.Bet{
			ID: string(r.ID),
			SeedPair: plinko.SeedPair{
				ServerSeed:       serverSeed,
				ServerSeedHashed: r.ServerSeedHashed,
				ClientSeed:       r.ClientSeed,
			},
			Nonce:            r.Nonce,
			Rows:             r.Rows,
			Risk:             risk,
			Bucket:           r.FinalSlot,
			BetAmount:        r.AmountCurrency.InexactFloat64(),
			WinAmount:        r.WinAmount.InexactFloat64(),
			PayoutMultiplier: r.PayoutMultiplier.InexactFloat64(),
		})
	}
	return out, nil
}

// seedIndex resolves a commitment to its revealed seed, remembering every
// hit so repeated bets on one seed skip the scan.
type seedIndex struct {
	seeds []SeedRecord
	found map[string]string
}

func newSeedIndex(seeds []SeedRecord) *seedIndex {
	return &seedIndex{seeds: seeds, found: make(map[string]string)}
}

func (s *seedIndex) lookup(hashed string) (string, bool) {
	if seed, ok := s.found[hashed]; ok {
		return seed, true
	}
	for _, rec := range s.seeds {
		if rec.Seed.ServerSeedHashed == hashed && rec.Seed.ServerSeed != "" {
			s.found[hashed] = rec.Seed.ServerSeed
			return rec.Seed.ServerSeed, true
		}
	}
	return "", false
}
