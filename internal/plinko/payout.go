package plinko

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/plinko-audit/internal/validate"
)

// Table holds rows+1 multipliers per configuration, indexed [risk][rows-MinRows].
type Table [riskCount][rowSpan][]float64

// Multipliers returns a copy of the multipliers for one configuration.
func (t *Table) Multipliers(risk Risk, rows int) ([]float64, error) {
	m, err := t.lookup(risk, rows)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), m...), nil
}

// Multiplier returns the multiplier of one bucket.
func (t *Table) Multiplier(risk Risk, rows, bucket int) (float64, error) {
	m, err := t.lookup(risk, rows)
	if err != nil {
		return 0, err
	}
	if err := validateBucket(bucket, rows); err != nil {
		return 0, err
	}
	return m[bucket], nil
}

// Resolve returns betAmount times the multiplier of bucket.
// Each argument is checked in turn; the first violation is returned
// without clamping.
func (t *Table) Resolve(betAmount float64, bucket, rows int, risk Risk) (float64, error) {
	if err := validate.NonNegative("betAmount", betAmount); err != nil {
		return 0, err
	}
	multiplier, err := t.Multiplier(risk, rows, bucket)
	if err != nil {
		return 0, err
	}
	return betAmount * multiplier, nil
}

// SetMultipliers replaces one configuration. The slice is copied; table
// invariants are checked by Validate, not here.
func (t *Table) SetMultipliers(risk Risk, rows int, m []float64) error {
	if err := validateRisk(risk); err != nil {
		return err
	}
	if err := validateRows(rows); err != nil {
		return err
	}
	t[risk][rows-MinRows] = append([]float64(nil), m...)
	return nil
}

// TheoreticalRTP is Σ C(rows,k)/2^rows × m[k]: the expected multiplier
// when every bounce is a fair coin.
func (t *Table) TheoreticalRTP(risk Risk, rows int) (float64, error) {
	m, err := t.lookup(risk, rows)
	if err != nil {
		return 0, err
	}
	var rtp float64
	for k := 0; k <= rows; k++ {
		rtp += BucketProbability(rows, k) * m[k]
	}
	return rtp, nil
}

// MeanTheoreticalRTP averages TheoreticalRTP over all 27 configurations
// with equal weight.
func (t *Table) MeanTheoreticalRTP() (float64, error) {
	configs := Configs()
	var sum float64
	for _, c := range configs {
		rtp, err := t.TheoreticalRTP(c.Risk, c.Rows)
		if err != nil {
			return 0, err
		}
		sum += rtp
	}
	return sum / float64(len(configs)), nil
}

// Validate checks every configuration: rows+1 entries, each positive and
// finite, symmetric around the centre, and for High the centre must not
// exceed the edge.
func (t *Table) Validate() error {
	var errs []string
	for _, c := range Configs() {
		m := t[c.Risk][c.Rows-MinRows]
		if len(m) != c.Rows+1 {
			errs = append(errs, fmt.Sprintf("%s: expected %d multipliers, got %d", c, c.Rows+1, len(m)))
			continue
		}
		for slot, v := range m {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				errs = append(errs, fmt.Sprintf("%s: slot %d must be positive and finite, got %v", c, slot, v))
			}
			if mirror := m[c.Rows-slot]; v != mirror {
				errs = append(errs, fmt.Sprintf("%s: slot %d (%v) differs from slot %d (%v)", c, slot, v, c.Rows-slot, mirror))
			}
		}
		if c.Risk == High && m[c.Rows/2] > m[0] {
			errs = append(errs, fmt.Sprintf("%s: centre %v exceeds edge %v", c, m[c.Rows/2], m[0]))
		}
	}
	if len(errs) > 0 {
		return &validate.Error{Field: "table", Reason: strings.Join(errs, "; ")}
	}
	return nil
}

func (t *Table) lookup(risk Risk, rows int) ([]float64, error) {
	if t == nil {
		return nil, errors.New("payout table is nil")
	}
	if err := validateRisk(risk); err != nil {
		return nil, err
	}
	if err := validateRows(rows); err != nil {
		return nil, err
	}
	m := t[risk][rows-MinRows]
	if len(m) != rows+1 {
		return nil, fmt.Errorf("payout table %s: expected %d multipliers, got %d", Config{risk, rows}, rows+1, len(m))
	}
	return m, nil
}

// BucketProbability is C(rows,k)/2^rows, 0 outside [0, rows].
func BucketProbability(rows, k int) float64 {
	return binomial(rows, k) / math.Ldexp(1, rows)
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := 1; i <= k; i++ {
		result = result * float64(n-k+i) / float64(i)
	}
	return math.Round(result)
}
