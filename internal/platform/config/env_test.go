package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Samples int           `env:"PLINKO_TEST_SAMPLES" envDefault:"200000"`
	Poll    time.Duration `env:"PLINKO_TEST_POLL" envDefault:"5s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Samples != 200000 {
		t.Fatalf("expected default samples 200000, got %d", cfg.Samples)
	}
	if cfg.Poll != 5*time.Second {
		t.Fatalf("expected default poll 5s, got %v", cfg.Poll)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("PLINKO_TEST_SAMPLES", "42")
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Samples != 42 {
		t.Fatalf("expected 42, got %d", cfg.Samples)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("PLINKO_TEST_SAMPLES", "lots")
	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
