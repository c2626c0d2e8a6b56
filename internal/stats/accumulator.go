// Package stats accumulates return-to-player statistics in a single pass.
//
// An Accumulator never stores raw samples: it folds each round into
// Welford's running mean and sum of squared deviations, keeps total bet and
// total win for the dollar-weighted RTP, and takes a checkpoint every
// SamplingStep rounds so convergence can be charted afterwards.
package stats

import (
	"math"

	"github.com/xtding233/plinko-audit/internal/validate"
)

// DefaultSamplingStep is the checkpoint interval of a new Accumulator.
const DefaultSamplingStep = 10000

// Point is one (round count, value) pair of a convergence series.
type Point struct {
	N     int     `json:"n"`
	Value float64 `json:"value"`
}

// moments is the full running state at one instant.
type moments struct {
	n        int
	mean     float64
	m2       float64
	totalBet float64
	totalWin float64
}

func (m moments) rtp() float64 {
	if m.totalBet == 0 {
		return 0
	}
	return m.totalWin / m.totalBet
}

func (m moments) variance() float64 {
	if m.n == 0 {
		return 0
	}
	return m.m2 / float64(m.n)
}

func (m moments) standardError() float64 {
	if m.n == 0 {
		return 0
	}
	return math.Sqrt(m.variance()) / math.Sqrt(float64(m.n))
}

// combine merges two disjoint sample sets (Chan et al. parallel variance).
func combine(a, b moments) moments {
	n := a.n + b.n
	if n == 0 {
		return moments{totalBet: a.totalBet + b.totalBet, totalWin: a.totalWin + b.totalWin}
	}
	delta := b.mean - a.mean
	na, nb, nf := float64(a.n), float64(b.n), float64(n)
	return moments{
		n:        n,
		mean:     a.mean + delta*nb/nf,
		m2:       a.m2 + b.m2 + delta*delta*na*nb/nf,
		totalBet: a.totalBet + b.totalBet,
		totalWin: a.totalWin + b.totalWin,
	}
}

// Accumulator is not safe for concurrent use; give each goroutine its own
// and Merge them afterwards.
type Accumulator struct {
	moments
	winCount     int
	samplingStep int

	// checkpoints keeps insertion order; index maps n to its position so a
	// count reached again after Reset overwrites in place.
	checkpoints []moments
	index       map[int]int
}

// NewAccumulator returns an empty accumulator sampling every
// DefaultSamplingStep rounds.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		samplingStep: DefaultSamplingStep,
		index:        make(map[int]int),
	}
}

// SetSamplingStep changes the checkpoint interval.
func (a *Accumulator) SetSamplingStep(step int) error {
	if step <= 0 {
		return validate.Fieldf("samplingStep", "must be > 0, got %d", step)
	}
	a.samplingStep = step
	return nil
}

func (a *Accumulator) SamplingStep() int { return a.samplingStep }

// Record folds one round into the running statistics.
// bet must be finite and > 0, win finite and >= 0.
func (a *Accumulator) Record(bet, win float64) error {
	if err := validate.Positive("bet", bet); err != nil {
		return err
	}
	if err := validate.NonNegative("win", win); err != nil {
		return err
	}

	a.totalBet += bet
	a.totalWin += win
	if win > 0 {
		a.winCount++
	}

	r := win / bet
	a.n++
	delta := r - a.mean
	a.mean += delta / float64(a.n)
	delta2 := r - a.mean
	a.m2 += delta * delta2

	if a.n%a.samplingStep == 0 {
		a.checkpoint(a.moments)
	}
	return nil
}

func (a *Accumulator) checkpoint(m moments) {
	if i, ok := a.index[m.n]; ok {
		a.checkpoints[i] = m
		return
	}
	a.index[m.n] = len(a.checkpoints)
	a.checkpoints = append(a.checkpoints, m)
}

// Count is the number of recorded rounds.
func (a *Accumulator) Count() int { return a.n }

// Mean is the Welford mean of the per-round win/bet ratios. It equals RTP
// only when every bet has the same size.
func (a *Accumulator) Mean() float64 { return a.mean }

// RTP is total win over total bet; 0 before anything is recorded.
func (a *Accumulator) RTP() float64 { return a.moments.rtp() }

// Variance is the population variance of the per-round ratios.
func (a *Accumulator) Variance() float64 { return a.moments.variance() }

// SampleVariance is the unbiased (n-1) variance; 0 below two rounds.
func (a *Accumulator) SampleVariance() float64 {
	if a.n < 2 {
		return 0
	}
	return a.m2 / float64(a.n-1)
}

func (a *Accumulator) StandardDeviation() float64 { return math.Sqrt(a.Variance()) }

// StandardErrorOfRTP is StandardDeviation / sqrt(n); 0 when empty.
func (a *Accumulator) StandardErrorOfRTP() float64 { return a.moments.standardError() }

func (a *Accumulator) TotalBet() float64 { return a.totalBet }
func (a *Accumulator) TotalWin() float64 { return a.totalWin }
func (a *Accumulator) WinCount() int     { return a.winCount }

// Convergence returns the RTP recorded at every checkpoint.
func (a *Accumulator) Convergence() []Point {
	out := make([]Point, len(a.checkpoints))
	for i, c := range a.checkpoints {
		out[i] = Point{N: c.n, Value: c.rtp()}
	}
	return out
}

// ConvergenceSE returns the standard error recorded at every checkpoint.
func (a *Accumulator) ConvergenceSE() []Point {
	out := make([]Point, len(a.checkpoints))
	for i, c := range a.checkpoints {
		out[i] = Point{N: c.n, Value: c.standardError()}
	}
	return out
}

// Reset zeroes the count, the running moments and the totals. The
// convergence series and the win count are kept; checkpoints recorded after
// a Reset overwrite earlier points at the same count.
func (a *Accumulator) Reset() {
	a.moments = moments{}
}

// Merge folds other into a as if other's rounds had been recorded after a's.
// Checkpoints of other are rebased onto a's count and kept when the rebased
// count is a multiple of a's sampling step; when every merged accumulator
// holds a multiple of the step this reproduces sequential recording.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	base := a.moments
	theirs := append([]moments(nil), other.checkpoints...)
	current := other.moments
	wins := other.winCount

	for _, c := range theirs {
		merged := combine(base, c)
		if merged.n%a.samplingStep != 0 {
			continue
		}
		a.checkpoint(merged)
	}
	a.moments = combine(base, current)
	a.winCount += wins
}
