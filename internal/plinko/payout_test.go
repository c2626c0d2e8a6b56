package plinko_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/plinko-audit/internal/plinko"
	"github.com/xtding233/plinko-audit/internal/validate"
)

func TestConfigsEnumerationOrder(t *testing.T) {
	configs := plinko.Configs()
	require.Len(t, configs, 27)
	assert.Equal(t, plinko.Config{Risk: plinko.Low, Rows: 8}, configs[0])
	assert.Equal(t, plinko.Config{Risk: plinko.Low, Rows: 16}, configs[8])
	assert.Equal(t, plinko.Config{Risk: plinko.Medium, Rows: 8}, configs[9])
	assert.Equal(t, plinko.Config{Risk: plinko.High, Rows: 16}, configs[26])
	assert.Equal(t, "medium_12rows", plinko.Config{Risk: plinko.Medium, Rows: 12}.String())
}

func TestParseRisk(t *testing.T) {
	for in, want := range map[string]plinko.Risk{"low": plinko.Low, "MEDIUM": plinko.Medium, " High ": plinko.High} {
		got, err := plinko.ParseRisk(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := plinko.ParseRisk("extreme")
	assert.ErrorIs(t, err, validate.ErrInvalid)

	var r plinko.Risk
	require.NoError(t, r.UnmarshalText([]byte("high")))
	b, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "high", string(b))
	_, err = plinko.Risk(9).MarshalText()
	assert.Error(t, err)
}

func TestDefaultTableInvariants(t *testing.T) {
	table := plinko.DefaultTable()
	require.NoError(t, table.Validate())

	for _, c := range plinko.Configs() {
		m, err := table.Multipliers(c.Risk, c.Rows)
		require.NoError(t, err)
		require.Len(t, m, c.Rows+1, c.String())
		for slot := range m {
			assert.Equal(t, m[slot], m[c.Rows-slot], "%s slot %d", c, slot)
		}
		rtp, err := table.TheoreticalRTP(c.Risk, c.Rows)
		require.NoError(t, err)
		assert.True(t, rtp >= 0.985 && rtp < 1.01, "%s theoretical rtp %v", c, rtp)
	}

	mean, err := table.MeanTheoreticalRTP()
	require.NoError(t, err)
	assert.InDelta(t, 0.99, mean, 0.005)
}

func TestDefaultTableIsACopy(t *testing.T) {
	a := plinko.DefaultTable()
	require.NoError(t, a.SetMultipliers(plinko.Low, 8, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	b := plinko.DefaultTable()
	m, err := b.Multiplier(plinko.Low, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.6, m)

	got, _ := a.Multipliers(plinko.Low, 8)
	got[0] = 99
	again, _ := a.Multiplier(plinko.Low, 8, 0)
	assert.Equal(t, 1.0, again, "Multipliers must return a copy")
}

func TestResolveMatchesTable(t *testing.T) {
	table := plinko.DefaultTable()
	for _, c := range plinko.Configs() {
		m, _ := table.Multipliers(c.Risk, c.Rows)
		for bucket := 0; bucket <= c.Rows; bucket++ {
			for _, bet := range []float64{0, 1, 2.5} {
				got, err := table.Resolve(bet, bucket, c.Rows, c.Risk)
				require.NoError(t, err)
				if got != bet*m[bucket] {
					t.Fatalf("%s bucket %d bet %v: got %v want %v", c, bucket, bet, got, bet*m[bucket])
				}
			}
		}
	}
}

func TestResolveRejectsOutOfDomain(t *testing.T) {
	table := plinko.DefaultTable()
	tests := []struct {
		name      string
		bet       float64
		bucket    int
		rows      int
		risk      plinko.Risk
		wantField string
	}{
		{"rows 7", 1, 0, 7, plinko.Low, "rows"},
		{"rows 17", 1, 0, 17, plinko.Low, "rows"},
		{"bucket past edge", 1, 9, 8, plinko.Medium, "bucket"},
		{"negative bucket", 1, -1, 8, plinko.Medium, "bucket"},
		{"negative bet", -1, 0, 8, plinko.High, "betAmount"},
		{"unknown risk", 1, 0, 8, plinko.Risk(7), "risk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Resolve(tt.bet, tt.bucket, tt.rows, tt.risk)
			if !errors.Is(err, validate.ErrInvalid) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *validate.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateReportsBrokenTable(t *testing.T) {
	table := plinko.DefaultTable()
	require.NoError(t, table.SetMultipliers(plinko.Low, 8, []float64{5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.5}))
	require.NoError(t, table.SetMultipliers(plinko.High, 8, []float64{1, 1, 1, 1, 2, 1, 1, 1, 1}))
	require.NoError(t, table.SetMultipliers(plinko.Medium, 9, []float64{1, 2}))

	err := table.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "low_8rows: slot 0")
	assert.Contains(t, msg, "high_8rows: centre")
	assert.Contains(t, msg, "medium_9rows: expected 10 multipliers, got 2")

	_, err = table.Resolve(1, 0, 9, plinko.Medium)
	assert.Error(t, err)
	assert.Error(t, table.SetMultipliers(plinko.Low, 20, nil))

	var nilTable *plinko.Table
	_, err = nilTable.Multiplier(plinko.Low, 8, 0)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	pair := plinko.SeedPair{ServerSeed: testServerSeed, ServerSeedHashed: testServerSeedHashed, ClientSeed: testClientSeed}
	bets := []plinko.Bet{
		{ID: "a", SeedPair: pair, Nonce: 4, Rows: 16, Risk: plinko.Low, Bucket: 8},
		{ID: "b", SeedPair: pair, Nonce: 5, Rows: 8, Risk: plinko.High, Bucket: 2},
		{ID: "c", SeedPair: pair, Nonce: 26, Rows: 9, Risk: plinko.Medium, Bucket: 7},
	}
	records, err := plinko.Verify(plinko.NewCache(nil), bets)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.True(t, records[0].Match)
	assert.False(t, records[1].Match, "mismatch is data, not an error")
	assert.Equal(t, 2, records[1].Recorded)
	assert.Equal(t, 6, records[1].Recomputed)
	assert.Equal(t, testServerSeedHashed, records[1].ServerSeedHashed)
	assert.True(t, records[2].Match)
	assert.Equal(t, 1, plinko.Mismatches(records))

	_, err = plinko.Verify(plinko.HMACGenerator{}, []plinko.Bet{{ID: "bad", SeedPair: pair, Rows: 18}})
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.ErrorContains(t, err, "bet bad")
}
