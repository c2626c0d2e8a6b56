// Package paytable loads payout multiplier overrides from YAML and merges
// them over the compiled-in table.
package paytable

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/plinko-audit/internal/plinko"
)

// Loader reads YAML files and merges default → path[0] → path[1] ...
// The merged table is cached until Invalidate or Reload.
type Loader struct {
	paths []string

	mu      sync.RWMutex
	table   *plinko.Table
	version string
}

// NewLoader creates a loader over paths; with no paths it serves the
// compiled-in table.
func NewLoader(paths ...string) *Loader {
	var kept []string
	for _, p := range paths {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &Loader{paths: kept}
}

// Paths returns the files the loader reads, in merge order.
func (l *Loader) Paths() []string { return append([]string(nil), l.paths...) }

// Table returns the merged table, reading the files on first use.
// The returned table is shared and must not be modified.
func (l *Loader) Table() (*plinko.Table, error) {
	l.mu.RLock()
	if l.table != nil {
		t := l.table
		l.mu.RUnlock()
		return t, nil
	}
	l.mu.RUnlock()

	t, version, err := l.load()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.table == nil {
		l.table, l.version = t, version
	}
	t = l.table
	l.mu.Unlock()
	return t, nil
}

// Version is the version string of the last file that set one.
func (l *Loader) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Invalidate drops the cached table; the next Table call re-reads the files.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = nil
	l.version = ""
}

// Reload re-reads the files and swaps the cached table. On error the
// previous table stays in place.
func (l *Loader) Reload() error {
	t, version, err := l.load()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.table, l.version = t, version
	l.mu.Unlock()
	return nil
}

func (l *Loader) load() (*plinko.Table, string, error) {
	var merged RawConfig
	for _, p := range l.paths {
		cfg, err := readYAML(p)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", p, err)
		}
		if err := ValidateRaw(cfg); err != nil {
			return nil, "", fmt.Errorf("%s: %w", p, err)
		}
		merged = mergeRaw(merged, cfg)
	}

	table, err := Apply(plinko.DefaultTable(), merged)
	if err != nil {
		return nil, "", err
	}
	if err := table.Validate(); err != nil {
		return nil, "", fmt.Errorf("merged payout table: %w", err)
	}
	return table, merged.Version, nil
}

// Apply writes every entry of cfg into table and returns it.
func Apply(table *plinko.Table, cfg RawConfig) (*plinko.Table, error) {
	for name, byRows := range cfg.Tables {
		risk, err := plinko.ParseRisk(name)
		if err != nil {
			return nil, err
		}
		for rows, m := range byRows {
			if err := table.SetMultipliers(risk, rows, m); err != nil {
				return nil, fmt.Errorf("tables.%s.%d: %w", name, rows, err)
			}
		}
	}
	return table, nil
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw returns a with b's entries laid over it. A configuration listed in
// b replaces the one in a whole; slices are copied.
func mergeRaw(a, b RawConfig) RawConfig {
	out := RawConfig{Version: a.Version, Notes: a.Notes}
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	out.Tables = make(map[string]map[int][]float64, len(a.Tables)+len(b.Tables))
	for _, src := range []map[string]map[int][]float64{a.Tables, b.Tables} {
		for _, name := range sortedKeys(src) {
			byRows := src[name]
			risk, err := plinko.ParseRisk(name)
			key := name
			if err == nil {
				key = risk.String()
			}
			dst, ok := out.Tables[key]
			if !ok {
				dst = make(map[int][]float64, len(byRows))
				out.Tables[key] = dst
			}
			for rows, m := range byRows {
				dst[rows] = append([]float64(nil), m...)
			}
		}
	}
	return out
}
