// Package plinkoaudit runs the full audit over one dataset export: the
// provably-fair checklist, the Monte Carlo convergence simulation and the
// evidence files.
package plinkoaudit

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xtding233/plinko-audit/internal/audit"
	"github.com/xtding233/plinko-audit/internal/dataset"
	"github.com/xtding233/plinko-audit/internal/paytable"
	"github.com/xtding233/plinko-audit/internal/platform/config"
	"github.com/xtding233/plinko-audit/internal/plinko"
	"github.com/xtding233/plinko-audit/internal/report"
)

// ErrFindings is returned by Run after every report was written when at
// least one check failed.
var ErrFindings = errors.New("audit reported findings")

// Config holds audit command configuration.
type Config struct {
	Dataset          string `env:"PLINKO_DATASET"`
	OutputDir        string `env:"PLINKO_OUTPUT_DIR" envDefault:"."`
	Paytable         string `env:"PLINKO_PAYTABLE"`
	SamplesPerConfig int    `env:"PLINKO_SAMPLES_PER_CONFIG" envDefault:"200000"`
	SamplingStep     int    `env:"PLINKO_SAMPLING_STEP" envDefault:"10000"`
	Parallelism      int    `env:"PLINKO_PARALLELISM" envDefault:"1"`
	SkipSimulation   bool   `env:"PLINKO_SKIP_SIMULATION"`
	MinVerifiedBets  int    `env:"PLINKO_MIN_VERIFIED_BETS" envDefault:"1000"`
	LogLevel         string `env:"PLINKO_LOG_LEVEL" envDefault:"info"`

	// Commit is stamped into every report.
	Commit string
}

// ParseConfig parses environment and flags into a Config. A positional
// argument names the dataset.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, "path to the bet export JSON")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for report files")
	fs.StringVar(&cfg.Paytable, "paytable", cfg.Paytable, "optional YAML payout table override")
	fs.IntVar(&cfg.SamplesPerConfig, "samples", cfg.SamplesPerConfig, "simulated drops per configuration")
	fs.IntVar(&cfg.SamplingStep, "step", cfg.SamplingStep, "convergence checkpoint spacing")
	fs.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "configurations simulated concurrently")
	fs.BoolVar(&cfg.SkipSimulation, "skip-simulation", cfg.SkipSimulation, "only run the checklist")
	fs.IntVar(&cfg.MinVerifiedBets, "min-verified-bets", cfg.MinVerifiedBets, "fail coverage below this many verified bets")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		cfg.Dataset = fs.Arg(0)
	}
	return cfg, nil
}

// Run audits cfg.Dataset and writes the reports under cfg.OutputDir. A
// short human summary goes to out.
func Run(ctx context.Context, cfg Config, out io.Writer, logger *zap.Logger) error {
	if cfg.Dataset == "" {
		return errors.New("dataset is required")
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d, err := dataset.Open(cfg.Dataset)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded",
		zap.String("dataset", d.Name),
		zap.String("sha256", d.Hash),
		zap.Int("seeds", len(d.Seeds)),
		zap.Int("bets", len(d.Bets)),
	)

	table, err := paytable.NewLoader(cfg.Paytable).Table()
	if err != nil {
		return fmt.Errorf("payout table: %w", err)
	}

	cache := plinko.NewCache(nil)
	auditor := audit.New(cache, table, logger)
	auditor.MinVerifiedBets = cfg.MinVerifiedBets
	res, err := auditor.Run(ctx, d)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	w := report.NewWriter(cfg.OutputDir, "plinko", cfg.Commit, nil)
	var written []string
	path, err := w.Determinism(d.Name, d.Hash, res.Determinism)
	if err != nil {
		return err
	}
	written = append(written, path)
	if path, err = w.Payouts(d.Name, res.Payouts); err != nil {
		return err
	}
	written = append(written, path)
	if path, err = w.Findings(res); err != nil {
		return err
	}
	written = append(written, path)

	fmt.Fprintf(out, "verified bets: %d of %d\n", res.VerifiedBets, len(d.Bets))
	fmt.Fprintf(out, "determinism mismatches: %d\n", plinko.Mismatches(res.Determinism))
	fmt.Fprintf(out, "theoretical game RTP: %.4f%%\n", res.GameRTP*100)

	if !cfg.SkipSimulation {
		paths, err := simulate(ctx, cfg, d, cache, table, w, out, logger)
		if err != nil {
			return err
		}
		written = append(written, paths...)
	}

	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}
	if !res.Passed() {
		for _, f := range res.Findings {
			subject := f.BetID
			if subject == "" {
				subject = f.Config
			}
			fmt.Fprintf(out, "FAIL %s [%s] %s\n", f.Check, subject, f.Message)
		}
		return fmt.Errorf("%w: %d", ErrFindings, len(res.Findings))
	}
	fmt.Fprintln(out, "all checks passed")
	return nil
}

func simulate(ctx context.Context, cfg Config, d *dataset.Dataset, cache *plinko.Cache, table *plinko.Table,
	w *report.Writer, out io.Writer, logger *zap.Logger) ([]string, error) {
	seeds := d.SeedPairs()
	sim := plinko.NewSimulator(cache, table, logger)
	res, err := sim.Run(ctx, seeds, plinko.Options{
		SamplesPerConfig: cfg.SamplesPerConfig,
		SamplingStep:     cfg.SamplingStep,
		Parallelism:      cfg.Parallelism,
	})
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	summary, err := w.SimulationSummary(res)
	if err != nil {
		return nil, err
	}
	details, err := w.SimulationDetails(res, seeds)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "simulated rounds: %d in %s, RTP %.4f%% (theoretical %.4f%%)\n",
		res.Aggregate.Count, res.Duration, res.Aggregate.RTP*100, res.TheoreticalRTP*100)
	return append([]string{summary}, details...), nil
}
