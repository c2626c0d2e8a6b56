package stats

import (
	"math"
	"time"
)

// DetailSamplingStep thins the convergence series kept in Details.
const DetailSamplingStep = 100000

// Snapshot is a point-in-time copy of an Accumulator. It shares no memory
// with the accumulator it came from.
type Snapshot struct {
	Count              int     `json:"count"`
	RTP                float64 `json:"rtp"`
	StandardErrorOfRTP float64 `json:"standardErrorOfRTP"`
	StandardDeviation  float64 `json:"standardDeviation"`
	Convergence        []Point `json:"rtpConvergence"`
	ConvergenceSE      []Point `json:"rtpConvergenceSE"`
	Details            Details `json:"simulationDetails"`
}

// Details is the per-run summary written next to convergence charts.
type Details struct {
	Description    string  `json:"simulationDescription"`
	TotalRounds    int     `json:"totalRounds"`
	SimulatedRTP   float64 `json:"simulatedRTP"`
	TheoreticalRTP float64 `json:"theoreticalRTP"`
	Deviation      float64 `json:"simulatedTheoreticalRTPDifference"`
	WinCount       int     `json:"winCounts"`
	LossCount      int     `json:"lossCounts"`
	// WinLossRatio is wins over total rounds.
	WinLossRatio  float64       `json:"winLossRatio"`
	RunTime       time.Duration `json:"-"`
	RunTimeMillis int64         `json:"simulationRunTimeInMs"`
	SeedCount     int           `json:"seedCount"`
	Convergence   []Point       `json:"rtpConvergence"`
	ConvergenceSE []Point       `json:"rtpConvergenceSE"`
}

// Snapshot copies the current statistics.
func (a *Accumulator) Snapshot() Snapshot {
	convergence := a.Convergence()
	convergenceSE := a.ConvergenceSE()
	return Snapshot{
		Count:              a.n,
		RTP:                a.RTP(),
		StandardErrorOfRTP: a.StandardErrorOfRTP(),
		StandardDeviation:  a.StandardDeviation(),
		Convergence:        convergence,
		ConvergenceSE:      convergenceSE,
		Details:            newDetails(a.n, a.winCount, a.RTP(), convergence, convergenceSE),
	}
}

func newDetails(totalRounds, winCount int, rtp float64, convergence, convergenceSE []Point) Details {
	d := Details{
		TotalRounds:   totalRounds,
		SimulatedRTP:  rtp,
		WinCount:      winCount,
		LossCount:     totalRounds - winCount,
		Convergence:   thin(convergence, DetailSamplingStep),
		ConvergenceSE: thin(convergenceSE, DetailSamplingStep),
	}
	if totalRounds > 0 {
		d.WinLossRatio = float64(winCount) / float64(totalRounds)
	}
	d.Deviation = math.Abs(d.TheoreticalRTP - d.SimulatedRTP)
	return d
}

// WithTheoreticalRTP returns a copy carrying the expected RTP and the
// absolute deviation from it.
func (d Details) WithTheoreticalRTP(rtp float64) Details {
	d.TheoreticalRTP = rtp
	d.Deviation = math.Abs(rtp - d.SimulatedRTP)
	return d
}

// WithRunTime returns a copy carrying the wall-clock duration.
func (d Details) WithRunTime(elapsed time.Duration) Details {
	d.RunTime = elapsed
	d.RunTimeMillis = elapsed.Milliseconds()
	return d
}

func thin(points []Point, step int) []Point {
	out := []Point{}
	for _, p := range points {
		if p.N%step == 0 {
			out = append(out, p)
		}
	}
	return out
}
