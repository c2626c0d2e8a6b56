package plinko

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/plinko-audit/internal/stats"
	"github.com/xtding233/plinko-audit/internal/validate"
)

const tracerName = "github.com/xtding233/plinko-audit/internal/plinko"

// DefaultSamplesPerConfig is the number of drops simulated per configuration
// when Options leaves it unset.
const DefaultSamplesPerConfig = 200000

// Options controls one simulation run.
type Options struct {
	// SamplesPerConfig is the target drop count of every configuration.
	SamplesPerConfig int
	// SamplingStep is the checkpoint interval; 0 means stats.DefaultSamplingStep.
	SamplingStep int
	// Parallelism > 1 simulates that many configurations at once.
	Parallelism int
	// Configs restricts the grid; nil runs all of Configs().
	Configs []Config
}

// ConfigResult is the outcome of one configuration.
type ConfigResult struct {
	Config         Config
	TheoreticalRTP float64
	Snapshot       stats.Snapshot
}

// Result holds every configuration in enumeration order plus the aggregate.
type Result struct {
	Configs   []ConfigResult
	Aggregate stats.Snapshot
	// TheoreticalRTP is the unweighted mean over the simulated configurations.
	TheoreticalRTP float64
	Duration       time.Duration
}

// Snapshots returns the per-configuration snapshots followed by the aggregate.
func (r Result) Snapshots() []stats.Snapshot {
	out := make([]stats.Snapshot, 0, len(r.Configs)+1)
	for _, c := range r.Configs {
		out = append(out, c.Snapshot)
	}
	return append(out, r.Aggregate)
}

// Simulator drives Monte Carlo drops over the risk × rows grid.
type Simulator struct {
	source OutcomeSource
	table  *Table
	logger *zap.Logger
	tracer trace.Tracer
}

// NewSimulator builds a simulator. A nil source gets a fresh Cache over
// HMACGenerator; a nil logger discards output.
func NewSimulator(source OutcomeSource, table *Table, logger *zap.Logger) *Simulator {
	if source == nil {
		source = NewCache(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		source: source,
		table:  table,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Run simulates every configuration in opts against seeds.
//
// Inside a configuration seeds are walked in order and nonces ascend from 0
// while nonce < ceil(SamplesPerConfig/len(seeds)); the configuration stops as
// soon as SamplesPerConfig drops are recorded. Every drop bets 1.
//
// With Parallelism <= 1 the aggregate is fed drop by drop. Otherwise
// configurations run concurrently and keep their buckets; the aggregate then
// replays them in enumeration order, so both modes record the same sequence.
// ctx is only checked between configurations.
func (s *Simulator) Run(ctx context.Context, seeds []SeedPair, opts Options) (Result, error) {
	if err := s.validate(seeds, &opts); err != nil {
		return Result{}, err
	}

	ctx, span := s.tracer.Start(ctx, "plinko.Simulate", trace.WithAttributes(
		attribute.Int("plinko.configs", len(opts.Configs)),
		attribute.Int("plinko.samples_per_config", opts.SamplesPerConfig),
		attribute.Int("plinko.seeds", len(seeds)),
		attribute.Int("plinko.parallelism", opts.Parallelism),
	))
	defer span.End()

	start := time.Now()
	var (
		res Result
		err error
	)
	if opts.Parallelism <= 1 {
		res, err = s.runSequential(ctx, seeds, opts)
	} else {
		res, err = s.runParallel(ctx, seeds, opts)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	var sum float64
	for _, c := range res.Configs {
		sum += c.TheoreticalRTP
	}
	res.TheoreticalRTP = sum / float64(len(res.Configs))
	res.Duration = time.Since(start)
	res.Aggregate.Details = res.Aggregate.Details.WithTheoreticalRTP(res.TheoreticalRTP).WithRunTime(res.Duration)
	res.Aggregate.Details.Description = fmt.Sprintf("aggregate of %d configurations", len(res.Configs))
	res.Aggregate.Details.SeedCount = len(seeds)

	s.logger.Info("simulation finished",
		zap.Int("configs", len(res.Configs)),
		zap.Int("count", res.Aggregate.Count),
		zap.Float64("rtp", res.Aggregate.RTP),
		zap.Float64("theoretical_rtp", res.TheoreticalRTP),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (s *Simulator) validate(seeds []SeedPair, opts *Options) error {
	if s.table == nil {
		return validate.Fieldf("table", "must not be nil")
	}
	if len(seeds) == 0 {
		return validate.Fieldf("seeds", "must not be empty")
	}
	if opts.SamplesPerConfig == 0 {
		opts.SamplesPerConfig = DefaultSamplesPerConfig
	}
	if opts.SamplesPerConfig < 0 {
		return validate.Fieldf("samplesPerConfig", "must be > 0, got %d", opts.SamplesPerConfig)
	}
	if opts.SamplingStep == 0 {
		opts.SamplingStep = stats.DefaultSamplingStep
	}
	if opts.SamplingStep < 0 {
		return validate.Fieldf("samplingStep", "must be > 0, got %d", opts.SamplingStep)
	}
	if opts.Configs == nil {
		opts.Configs = Configs()
	}
	if len(opts.Configs) == 0 {
		return validate.Fieldf("configs", "must not be empty")
	}
	for _, c := range opts.Configs {
		if err := validateRisk(c.Risk); err != nil {
			return err
		}
		if err := validateRows(c.Rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) newAccumulator(step int) (*stats.Accumulator, error) {
	acc := stats.NewAccumulator()
	if err := acc.SetSamplingStep(step); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Simulator) runSequential(ctx context.Context, seeds []SeedPair, opts Options) (Result, error) {
	agg, err := s.newAccumulator(opts.SamplingStep)
	if err != nil {
		return Result{}, err
	}
	res := Result{Configs: make([]ConfigResult, 0, len(opts.Configs))}
	for _, c := range opts.Configs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		cr, err := s.runConfig(ctx, c, seeds, opts, func(_ int, win float64) error {
			return agg.Record(1, win)
		})
		if err != nil {
			return Result{}, err
		}
		res.Configs = append(res.Configs, cr)
	}
	res.Aggregate = agg.Snapshot()
	return res, nil
}

func (s *Simulator) runParallel(ctx context.Context, seeds []SeedPair, opts Options) (Result, error) {
	results := make([]ConfigResult, len(opts.Configs))
	drops := make([][]uint8, len(opts.Configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, c := range opts.Configs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buckets := make([]uint8, 0, opts.SamplesPerConfig)
			cr, err := s.runConfig(gctx, c, seeds, opts, func(bucket int, _ float64) error {
				buckets = append(buckets, uint8(bucket))
				return nil
			})
			if err != nil {
				return err
			}
			results[i] = cr
			drops[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// Checkpoints inside a configuration cannot be rebuilt from merged
	// moments, so the aggregate replays every drop in enumeration order.
	agg, err := s.newAccumulator(opts.SamplingStep)
	if err != nil {
		return Result{}, err
	}
	for i, c := range opts.Configs {
		for _, bucket := range drops[i] {
			win, err := s.table.Resolve(1, int(bucket), c.Rows, c.Risk)
			if err != nil {
				return Result{}, fmt.Errorf("aggregate %s: %w", c, err)
			}
			if err := agg.Record(1, win); err != nil {
				return Result{}, err
			}
		}
		drops[i] = nil
	}
	return Result{Configs: results, Aggregate: agg.Snapshot()}, nil
}

// runConfig simulates one configuration, handing every drop to onDrop in
// order.
func (s *Simulator) runConfig(ctx context.Context, c Config, seeds []SeedPair, opts Options, onDrop func(bucket int, win float64) error) (ConfigResult, error) {
	_, span := s.tracer.Start(ctx, "plinko.SimulateConfig", trace.WithAttributes(
		attribute.String("plinko.risk", c.Risk.String()),
		attribute.Int("plinko.rows", c.Rows),
	))
	defer span.End()

	theoretical, err := s.table.TheoreticalRTP(c.Risk, c.Rows)
	if err != nil {
		span.RecordError(err)
		return ConfigResult{}, err
	}
	acc, err := s.newAccumulator(opts.SamplingStep)
	if err != nil {
		return ConfigResult{}, err
	}

	start := time.Now()
	target := opts.SamplesPerConfig
	nonceMax := uint64((target + len(seeds) - 1) / len(seeds))
	for _, seed := range seeds {
		if acc.Count() >= target {
			break
		}
		for nonce := uint64(0); nonce < nonceMax && acc.Count() < target; nonce++ {
			bucket, err := s.source.Outcome(seed.ServerSeed, seed.ClientSeed, nonce, c.Rows)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return ConfigResult{}, fmt.Errorf("simulate %s: %w", c, err)
			}
			win, err := s.table.Resolve(1, bucket, c.Rows, c.Risk)
			if err != nil {
				return ConfigResult{}, fmt.Errorf("simulate %s: %w", c, err)
			}
			if err := acc.Record(1, win); err != nil {
				return ConfigResult{}, err
			}
			if err := onDrop(bucket, win); err != nil {
				return ConfigResult{}, err
			}
		}
	}
	elapsed := time.Since(start)

	snap := acc.Snapshot()
	snap.Details = snap.Details.WithTheoreticalRTP(theoretical).WithRunTime(elapsed)
	snap.Details.Description = fmt.Sprintf("%s risk, %d rows", c.Risk, c.Rows)
	snap.Details.SeedCount = len(seeds)

	span.SetAttributes(
		attribute.Int("plinko.count", snap.Count),
		attribute.Float64("plinko.rtp", snap.RTP),
	)
	s.logger.Info("simulated configuration",
		zap.Stringer("config", c),
		zap.Int("count", snap.Count),
		zap.Float64("rtp", snap.RTP),
		zap.Float64("theoretical_rtp", theoretical),
		zap.Float64("se", snap.StandardErrorOfRTP),
		zap.Duration("elapsed", elapsed),
	)
	return ConfigResult{Config: c, TheoreticalRTP: theoretical, Snapshot: snap}, nil
}
