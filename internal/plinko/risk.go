// Package plinko re-derives Plinko outcomes from revealed seeds, resolves
// payouts from the multiplier table and drives Monte Carlo RTP simulation
// across every risk/rows configuration.
package plinko

import (
	"fmt"
	"strings"

	"github.com/xtding233/plinko-audit/internal/validate"
)

// Risk is the payout tier chosen by the player.
type Risk uint8

const (
	Low Risk = iota
	Medium
	High
)

const riskCount = 3

// Row bounds accepted by the generator and the payout table.
const (
	MinRows = 8
	MaxRows = 16

	rowSpan = MaxRows - MinRows + 1
)

// Risks lists the tiers in enumeration order.
var Risks = [riskCount]Risk{Low, Medium, High}

func (r Risk) String() string {
	switch r {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	}
	return fmt.Sprintf("risk(%d)", uint8(r))
}

// Valid reports whether r is one of the declared tiers.
func (r Risk) Valid() bool { return r < riskCount }

// MarshalText encodes the tier name.
func (r Risk) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, validate.Fieldf("risk", "unknown tier %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts the tier name, case-insensitively.
func (r *Risk) UnmarshalText(b []byte) error {
	parsed, err := ParseRisk(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRisk maps "low", "medium" or "high" (any case) to a Risk.
func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return 0, validate.Fieldf("risk", "must be one of low, medium, high, got %q", s)
}

// Config is one cell of the risk × rows grid.
type Config struct {
	Risk Risk
	Rows int
}

// String renders the config as the audit mode name, e.g. "low_8rows".
func (c Config) String() string {
	return fmt.Sprintf("%s_%drows", c.Risk, c.Rows)
}

// Configs enumerates the 27 configurations: risk outer in declared order,
// rows inner ascending.
func Configs() []Config {
	out := make([]Config, 0, riskCount*rowSpan)
	for _, risk := range Risks {
		for rows := MinRows; rows <= MaxRows; rows++ {
			out = append(out, Config{Risk: risk, Rows: rows})
		}
	}
	return out
}

func validateRows(rows int) error {
	if rows < MinRows || rows > MaxRows {
		return validate.Fieldf("rows", "must be an integer in [%d,%d], got %d", MinRows, MaxRows, rows)
	}
	return nil
}

func validateRisk(risk Risk) error {
	if !risk.Valid() {
		return validate.Fieldf("risk", "unknown tier %d", uint8(risk))
	}
	return nil
}

func validateBucket(bucket, rows int) error {
	if bucket < 0 || bucket > rows {
		return validate.Fieldf("bucket", "must be an integer in [0,%d], got %d", rows, bucket)
	}
	return nil
}
