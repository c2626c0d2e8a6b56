package plinkoaudit

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtding233/plinko-audit/internal/report"
)

const (
	serverSeed = "4351b2c37e32c3575ccbcd51214ff1ca6da8b460dc15f9bb7930e0c753795204"
	seedHash   = "5e4ab1ccd0fd3a6a4fc9a3bf9dd35e5222f99c418fdb94b5c3c8813bd98a41f5"
	clientSeed = "PH_NW_777fLkqsHC"
)

const export = `{
  "seeds": [{"seed": {"serverSeed": "` + serverSeed + `", "serverSeedHashed": "` + seedHash + `", "clientSeed": "` + clientSeed + `"}}],
  "bets": [
    {"response": {"id": 1, "server_seed_hashed": "` + seedHash + `", "client_seed": "` + clientSeed + `",
      "nonce": 4, "rows": 16, "risk_level": "low", "final_slot": 8,
      "amount_currency": "2.00", "win_amount": "1.00", "payout_multiplier": "0.5",
      "drand_round": null, "drand_randomness": null}},
    {"response": {"id": 2, "server_seed_hashed": "` + seedHash + `", "client_seed": "` + clientSeed + `",
      "nonce": 5, "rows": 8, "risk_level": "high", "final_slot": 6,
      "amount_currency": "0.10", "win_amount": "0.15", "payout_multiplier": "1.5",
      "drand_round": null, "drand_randomness": null}}
  ]
}`

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(export), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("plinko-audit", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SamplesPerConfig != 200000 || cfg.SamplingStep != 10000 || cfg.Parallelism != 1 {
		t.Fatalf("unexpected simulation defaults: %+v", cfg)
	}
	if cfg.OutputDir != "." || cfg.LogLevel != "info" || cfg.MinVerifiedBets != 1000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SkipSimulation {
		t.Fatal("simulation should run by default")
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PLINKO_SAMPLES_PER_CONFIG", "5000")
	t.Setenv("PLINKO_PARALLELISM", "4")
	t.Setenv("PLINKO_DATASET", "env.json")

	fs := flag.NewFlagSet("plinko-audit", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-samples", "300", "-skip-simulation", "cli.json"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SamplesPerConfig != 300 {
		t.Errorf("samples = %d, want 300", cfg.SamplesPerConfig)
	}
	if cfg.Parallelism != 4 {
		t.Errorf("parallelism = %d, want 4 from env", cfg.Parallelism)
	}
	if !cfg.SkipSimulation {
		t.Error("expected -skip-simulation")
	}
	if cfg.Dataset != "cli.json" {
		t.Errorf("dataset = %q, want positional cli.json", cfg.Dataset)
	}
}

func TestParseConfigErrors(t *testing.T) {
	t.Setenv("PLINKO_SAMPLING_STEP", "often")
	if _, err := ParseConfig(flag.NewFlagSet("x", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected env error")
	}
	t.Setenv("PLINKO_SAMPLING_STEP", "")

	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := ParseConfig(fs, []string{"-samples", "many"}); err == nil {
		t.Fatal("expected flag error")
	}
}

func TestRunWritesEveryReport(t *testing.T) {
	out := t.TempDir()
	cfg := Config{
		Dataset:          writeExport(t),
		OutputDir:        out,
		SamplesPerConfig: 100,
		SamplingStep:     50,
		Parallelism:      2,
		MinVerifiedBets:  1,
		Commit:           "c0ffee",
	}
	var stdout bytes.Buffer
	if err := Run(context.Background(), cfg, &stdout, nil); err != nil {
		t.Fatalf("run: %v\n%s", err, stdout.String())
	}

	for _, name := range []string{
		report.DeterminismFile,
		report.PayoutFile,
		report.FindingsFile,
		report.SummaryFile,
		filepath.Join(report.ResultsDir, report.ProfileDir, report.DetailsDir, "Plinko_RTP_high_16rows.json"),
		filepath.Join(report.ResultsDir, report.DetailsDir, report.AggregateDetailsName+".json"),
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	got := stdout.String()
	for _, want := range []string{"verified bets: 2 of 2", "determinism mismatches: 0", "simulated rounds: 2700", "all checks passed"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunReportsFindings(t *testing.T) {
	out := t.TempDir()
	cfg := Config{
		Dataset:         writeExport(t),
		OutputDir:       out,
		SkipSimulation:  true,
		MinVerifiedBets: 1000,
	}
	var stdout bytes.Buffer
	err := Run(context.Background(), cfg, &stdout, nil)
	if !errors.Is(err, ErrFindings) {
		t.Fatalf("expected ErrFindings, got %v", err)
	}
	if !strings.Contains(stdout.String(), "FAIL coverage") {
		t.Errorf("output missing coverage failure:\n%s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(out, report.FindingsFile)); err != nil {
		t.Errorf("findings file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, report.SummaryFile)); !os.IsNotExist(err) {
		t.Errorf("summary should not exist when simulation is skipped: %v", err)
	}
}

func TestRunInputErrors(t *testing.T) {
	if err := Run(context.Background(), Config{}, nil, nil); err == nil {
		t.Fatal("expected error without dataset")
	}
	if err := Run(context.Background(), Config{Dataset: filepath.Join(t.TempDir(), "missing.json")}, nil, nil); err == nil {
		t.Fatal("expected error for missing dataset")
	}

	bad := filepath.Join(t.TempDir(), "paytable.yaml")
	if err := os.WriteFile(bad, []byte("tables: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Run(context.Background(), Config{Dataset: writeExport(t), Paytable: bad, OutputDir: t.TempDir()}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "payout table") {
		t.Fatalf("expected payout table error, got %v", err)
	}
}
