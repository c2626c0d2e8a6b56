package plinko_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/plinko-audit/internal/plinko"
	"github.com/xtding233/plinko-audit/internal/validate"
)

var testSeeds = []plinko.SeedPair{
	{ServerSeed: testServerSeed, ServerSeedHashed: testServerSeedHashed, ClientSeed: testClientSeed},
	{ServerSeed: "9c1f0e6a2b7d4c3e8f5a6b1d2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f", ClientSeed: "audit-client"},
	{ServerSeed: "00ff10ee20dd30cc", ClientSeed: "short"},
}

func TestSimulatorEndToEndConvergesToTheory(t *testing.T) {
	if testing.Short() {
		t.Skip("200k drops")
	}
	table := plinko.DefaultTable()
	sim := plinko.NewSimulator(plinko.NewCache(nil), table, nil)
	cfg := plinko.Config{Risk: plinko.Medium, Rows: 11}

	res, err := sim.Run(context.Background(), testSeeds[:1], plinko.Options{
		SamplesPerConfig: 200000,
		Configs:          []plinko.Config{cfg},
	})
	require.NoError(t, err)
	require.Len(t, res.Configs, 1)

	snap := res.Configs[0].Snapshot
	theory, err := table.TheoreticalRTP(cfg.Risk, cfg.Rows)
	require.NoError(t, err)
	assert.Equal(t, theory, res.Configs[0].TheoreticalRTP)
	assert.Equal(t, 200000, snap.Count)
	assert.Len(t, snap.Convergence, 20)

	bound := 5*snap.StandardErrorOfRTP + 0.0005
	if diff := math.Abs(snap.RTP - theory); diff > bound {
		t.Fatalf("rtp %.5f is %.5f from theory %.5f, bound %.5f", snap.RTP, diff, theory, bound)
	}
	assert.InDelta(t, theory, snap.Details.TheoreticalRTP, 0)
	assert.Equal(t, 1, snap.Details.SeedCount)
	assert.Equal(t, "medium risk, 11 rows", snap.Details.Description)
}

func TestSimulatorFullGrid(t *testing.T) {
	sim := plinko.NewSimulator(nil, plinko.DefaultTable(), nil)
	res, err := sim.Run(context.Background(), testSeeds[:1], plinko.Options{SamplesPerConfig: 100, SamplingStep: 50})
	require.NoError(t, err)

	require.Len(t, res.Configs, 27)
	for i, c := range plinko.Configs() {
		assert.Equal(t, c, res.Configs[i].Config)
		assert.Equal(t, 100, res.Configs[i].Snapshot.Count)
	}
	snaps := res.Snapshots()
	require.Len(t, snaps, 28)
	assert.Equal(t, 2700, snaps[27].Count)
	assert.Equal(t, res.Aggregate.Count, snaps[27].Count)
	assert.Len(t, res.Aggregate.Convergence, 54)

	mean, err := plinko.DefaultTable().MeanTheoreticalRTP()
	require.NoError(t, err)
	assert.InDelta(t, mean, res.TheoreticalRTP, 1e-12)
	assert.InDelta(t, mean, res.Aggregate.Details.TheoreticalRTP, 1e-12)
}

func TestSimulatorNeverOvershoots(t *testing.T) {
	sim := plinko.NewSimulator(nil, plinko.DefaultTable(), nil)
	res, err := sim.Run(context.Background(), testSeeds, plinko.Options{
		SamplesPerConfig: 10,
		SamplingStep:     5,
		Configs:          []plinko.Config{{Risk: plinko.High, Rows: 8}},
	})
	require.NoError(t, err)
	snap := res.Configs[0].Snapshot
	assert.Equal(t, 10, snap.Count)
	assert.Equal(t, []int{5, 10}, []int{snap.Convergence[0].N, snap.Convergence[1].N})
	assert.Equal(t, 3, snap.Details.SeedCount)
}

func TestSimulatorParallelMatchesSequential(t *testing.T) {
	lows := []plinko.Config{
		{Risk: plinko.Low, Rows: 8},
		{Risk: plinko.Low, Rows: 9},
		{Risk: plinko.Low, Rows: 10},
		{Risk: plinko.Low, Rows: 11},
	}
	cases := []struct {
		name string
		opts plinko.Options
	}{
		{"counts on step multiples", plinko.Options{
			SamplesPerConfig: 1000,
			SamplingStep:     250,
			Configs: []plinko.Config{
				{Risk: plinko.Low, Rows: 8},
				{Risk: plinko.Medium, Rows: 12},
				{Risk: plinko.High, Rows: 16},
				{Risk: plinko.High, Rows: 9},
			},
		}},
		// Aggregate checkpoints at 100, 200, 300 and 500 fall inside a configuration.
		{"counts off step multiples", plinko.Options{SamplesPerConfig: 150, SamplingStep: 100, Configs: lows}},
		{"uneven counts", plinko.Options{SamplesPerConfig: 155, SamplingStep: 40, Configs: lows}},
	}
	table := plinko.DefaultTable()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			seq, err := plinko.NewSimulator(nil, table, nil).Run(context.Background(), testSeeds, opts)
			require.NoError(t, err)

			opts.Parallelism = 4
			par, err := plinko.NewSimulator(nil, table, nil).Run(context.Background(), testSeeds, opts)
			require.NoError(t, err)

			require.Len(t, par.Configs, len(seq.Configs))
			for i := range seq.Configs {
				assert.Equal(t, seq.Configs[i].Config, par.Configs[i].Config)
				assert.Equal(t, seq.Configs[i].Snapshot.RTP, par.Configs[i].Snapshot.RTP)
				assert.Equal(t, seq.Configs[i].Snapshot.Convergence, par.Configs[i].Snapshot.Convergence)
			}

			assert.Equal(t, seq.Aggregate.Count, par.Aggregate.Count)
			assert.Equal(t, seq.Aggregate.RTP, par.Aggregate.RTP)
			assert.Equal(t, seq.Aggregate.StandardDeviation, par.Aggregate.StandardDeviation)
			assert.Equal(t, seq.Aggregate.Details.WinCount, par.Aggregate.Details.WinCount)
			assert.Equal(t, seq.Aggregate.Convergence, par.Aggregate.Convergence)
			assert.Equal(t, seq.Aggregate.ConvergenceSE, par.Aggregate.ConvergenceSE)
			require.Len(t, seq.Aggregate.Convergence, seq.Aggregate.Count/opts.SamplingStep)
			for i, p := range seq.Aggregate.Convergence {
				assert.Equal(t, (i+1)*opts.SamplingStep, p.N)
			}
		})
	}
}

func TestSimulatorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, parallelism := range []int{1, 4} {
		sim := plinko.NewSimulator(nil, plinko.DefaultTable(), nil)
		_, err := sim.Run(ctx, testSeeds, plinko.Options{SamplesPerConfig: 10, Parallelism: parallelism})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("parallelism=%d: expected context.Canceled, got %v", parallelism, err)
		}
	}
}

func TestSimulatorRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	table := plinko.DefaultTable()

	_, err := plinko.NewSimulator(nil, nil, nil).Run(ctx, testSeeds, plinko.Options{})
	assert.ErrorIs(t, err, validate.ErrInvalid)

	_, err = plinko.NewSimulator(nil, table, nil).Run(ctx, nil, plinko.Options{})
	assert.ErrorIs(t, err, validate.ErrInvalid)

	_, err = plinko.NewSimulator(nil, table, nil).Run(ctx, testSeeds, plinko.Options{SamplesPerConfig: -1})
	assert.ErrorIs(t, err, validate.ErrInvalid)

	_, err = plinko.NewSimulator(nil, table, nil).Run(ctx, testSeeds, plinko.Options{SamplingStep: -2})
	assert.ErrorIs(t, err, validate.ErrInvalid)

	_, err = plinko.NewSimulator(nil, table, nil).Run(ctx, testSeeds, plinko.Options{
		Configs: []plinko.Config{{Risk: plinko.Low, Rows: 20}},
	})
	field, _ := validate.Field(err)
	assert.Equal(t, "rows", field)

	bad := []plinko.SeedPair{{ServerSeed: "not hex", ClientSeed: "x"}}
	_, err = plinko.NewSimulator(nil, table, nil).Run(ctx, bad, plinko.Options{SamplesPerConfig: 5})
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.ErrorContains(t, err, "simulate low_8rows")
}
