// Package report writes the audit evidence files: the determinism log, the
// payout log, the simulation summary and one simulation-details file per
// simulated configuration.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xtding233/plinko-audit/internal/audit"
	"github.com/xtding233/plinko-audit/internal/plinko"
	"github.com/xtding233/plinko-audit/internal/stats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// File and directory names under the output directory.
const (
	DeterminismFile      = "determinism-log.json"
	PayoutFile           = "payout-log.json"
	SummaryFile          = "simulation-summary.json"
	FindingsFile         = "audit-findings.json"
	ResultsDir           = "audit-results"
	ProfileDir           = "profile-dependent-convergence"
	DetailsDir           = "simulation-details"
	AggregateDetailsName = "Plinko_RTP_Convergence_All"
	detailsNameFormat    = "Plinko_RTP_%s"
)

// Writer writes reports into one directory.
type Writer struct {
	dir    string
	game   string
	commit string
	now    func() time.Time
}

// NewWriter returns a writer for dir. commit is recorded verbatim; now
// defaults to time.Now.
func NewWriter(dir, game, commit string, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{dir: dir, game: game, commit: commit, now: now}
}

func (w *Writer) generatedAt() string {
	return w.now().UTC().Format(time.RFC3339Nano)
}

type determinismMeta struct {
	Game        string `json:"game"`
	Dataset     string `json:"dataset"`
	DatasetHash string `json:"datasetHash"`
	Commit      string `json:"commit"`
	GeneratedAt string `json:"generatedAt"`
	TotalBets   int    `json:"totalBets"`
	Matched     int    `json:"matched"`
	Mismatched  int    `json:"mismatched"`
}

type determinismLog struct {
	Meta    determinismMeta       `json:"meta"`
	Results []plinko.Verification `json:"results"`
}

// Determinism writes determinism-log.json.
func (w *Writer) Determinism(dataset, datasetHash string, records []plinko.Verification) (string, error) {
	mismatched := plinko.Mismatches(records)
	if records == nil {
		records = []plinko.Verification{}
	}
	return w.write(DeterminismFile, determinismLog{
		Meta: determinismMeta{
			Game:        w.game,
			Dataset:     dataset,
			DatasetHash: datasetHash,
			Commit:      w.commit,
			GeneratedAt: w.generatedAt(),
			TotalBets:   len(records),
			Matched:     len(records) - mismatched,
			Mismatched:  mismatched,
		},
		Results: records,
	})
}

type payoutMeta struct {
	Game                  string  `json:"game"`
	Dataset               string  `json:"dataset"`
	Commit                string  `json:"commit"`
	GeneratedAt           string  `json:"generatedAt"`
	TotalBets             int     `json:"totalBets"`
	Matched               int     `json:"matched"`
	Mismatched            int     `json:"mismatched"`
	TotalLivePayout       float64 `json:"totalLivePayout"`
	TotalCalculatedPayout float64 `json:"totalCalculatedPayout"`
}

type payoutLog struct {
	Meta    payoutMeta          `json:"meta"`
	Results []audit.PayoutEntry `json:"results"`
}

// Payouts writes payout-log.json.
func (w *Writer) Payouts(dataset string, entries []audit.PayoutEntry) (string, error) {
	meta := payoutMeta{
		Game:        w.game,
		Dataset:     dataset,
		Commit:      w.commit,
		GeneratedAt: w.generatedAt(),
		TotalBets:   len(entries),
	}
	for _, e := range entries {
		meta.TotalLivePayout += e.LivePayout
		meta.TotalCalculatedPayout += e.CalculatedPayout
		if e.Match {
			meta.Matched++
		} else {
			meta.Mismatched++
		}
	}
	if entries == nil {
		entries = []audit.PayoutEntry{}
	}
	return w.write(PayoutFile, payoutLog{Meta: meta, Results: entries})
}

type findingsLog struct {
	Game         string            `json:"game"`
	Commit       string            `json:"commit"`
	GeneratedAt  string            `json:"generatedAt"`
	VerifiedBets int               `json:"verifiedBets"`
	GameRTP      float64           `json:"theoreticalGameRTP"`
	Passed       bool              `json:"passed"`
	Theoretical  []audit.ConfigRTP `json:"theoreticalRTP"`
	Findings     []audit.Finding   `json:"findings"`
}

// Findings writes audit-findings.json.
func (w *Writer) Findings(res audit.Result) (string, error) {
	findings := res.Findings
	if findings == nil {
		findings = []audit.Finding{}
	}
	return w.write(FindingsFile, findingsLog{
		Game:         w.game,
		Commit:       w.commit,
		GeneratedAt:  w.generatedAt(),
		VerifiedBets: res.VerifiedBets,
		GameRTP:      res.GameRTP,
		Passed:       res.Passed(),
		Theoretical:  res.TheoreticalRTP,
		Findings:     findings,
	})
}

type summaryMeta struct {
	Game                    string  `json:"game"`
	Commit                  string  `json:"commit"`
	GeneratedAt             string  `json:"generatedAt"`
	TotalRounds             int     `json:"totalRounds"`
	ExecutionTimeMs         int64   `json:"executionTimeMs"`
	AggregateSimulatedRTP   float64 `json:"aggregateSimulatedRTP"`
	AggregateTheoreticalRTP float64 `json:"aggregateTheoreticalRTP"`
	AggregateDeviation      float64 `json:"aggregateDeviation"`
}

type summaryMode struct {
	Mode           string  `json:"mode"`
	SimulatedRTP   float64 `json:"simulatedRTP"`
	SampleSize     int     `json:"sampleSize"`
	StdError       float64 `json:"stdError"`
	TheoreticalRTP float64 `json:"theoreticalRTP"`
	Deviation      float64 `json:"deviation"`
}

type summary struct {
	Meta  summaryMeta   `json:"meta"`
	Modes []summaryMode `json:"modes"`
}

// SimulationSummary writes simulation-summary.json. Aggregates are weighted
// by each configuration's sample size; deviations are signed.
func (w *Writer) SimulationSummary(res plinko.Result) (string, error) {
	s := summary{
		Meta: summaryMeta{
			Game:            w.game,
			Commit:          w.commit,
			GeneratedAt:     w.generatedAt(),
			ExecutionTimeMs: res.Duration.Milliseconds(),
		},
		Modes: make([]summaryMode, 0, len(res.Configs)),
	}
	var weightedSim, weightedTheo float64
	for _, c := range res.Configs {
		snap := c.Snapshot
		s.Meta.TotalRounds += snap.Count
		weightedSim += snap.RTP * float64(snap.Count)
		weightedTheo += c.TheoreticalRTP * float64(snap.Count)
		s.Modes = append(s.Modes, summaryMode{
			Mode:           c.Config.String(),
			SimulatedRTP:   snap.RTP,
			SampleSize:     snap.Count,
			StdError:       snap.StandardErrorOfRTP,
			TheoreticalRTP: c.TheoreticalRTP,
			Deviation:      snap.RTP - c.TheoreticalRTP,
		})
	}
	if s.Meta.TotalRounds > 0 {
		s.Meta.AggregateSimulatedRTP = weightedSim / float64(s.Meta.TotalRounds)
		s.Meta.AggregateTheoreticalRTP = weightedTheo / float64(s.Meta.TotalRounds)
	}
	s.Meta.AggregateDeviation = s.Meta.AggregateSimulatedRTP - s.Meta.AggregateTheoreticalRTP
	return w.write(SummaryFile, s)
}

type detailsFile struct {
	stats.Details
	LastCommitHash string            `json:"lastCommitHash"`
	Seeds          []plinko.SeedPair `json:"seeds"`
}

// SimulationDetails writes one file per configuration under
// audit-results/profile-dependent-convergence/simulation-details and the
// aggregate under audit-results/simulation-details. It returns the paths in
// the order written.
func (w *Writer) SimulationDetails(res plinko.Result, seeds []plinko.SeedPair) ([]string, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("simulation details: no seeds were set")
	}
	paths := make([]string, 0, len(res.Configs)+1)
	for _, c := range res.Configs {
		name := filepath.Join(ResultsDir, ProfileDir, DetailsDir, fmt.Sprintf(detailsNameFormat, c.Config)+".json")
		p, err := w.write(name, detailsFile{Details: c.Snapshot.Details, LastCommitHash: w.commit, Seeds: seeds})
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	name := filepath.Join(ResultsDir, DetailsDir, AggregateDetailsName+".json")
	p, err := w.write(name, detailsFile{Details: res.Aggregate.Details, LastCommitHash: w.commit, Seeds: seeds})
	if err != nil {
		return paths, err
	}
	return append(paths, p), nil
}

func (w *Writer) write(name string, v any) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
