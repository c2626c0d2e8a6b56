package paytable

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xtding233/plinko-audit/internal/plinko"
	"github.com/xtding233/plinko-audit/internal/validate"
)

// ValidateRaw checks the entries a file overrides. Symmetry and the high-risk
// shape are checked on the merged table by plinko.Table.Validate.
func ValidateRaw(cfg RawConfig) error {
	var errs []string
	seen := make(map[plinko.Risk]string, len(cfg.Tables))

	for _, name := range sortedKeys(cfg.Tables) {
		risk, err := plinko.ParseRisk(name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("tables.%s: unknown risk", name))
			continue
		}
		if first, dup := seen[risk]; dup {
			errs = append(errs, fmt.Sprintf("tables.%s: duplicates tables.%s", name, first))
			continue
		}
		seen[risk] = name
		byRows := cfg.Tables[name]
		rowsKeys := make([]int, 0, len(byRows))
		for rows := range byRows {
			rowsKeys = append(rowsKeys, rows)
		}
		sort.Ints(rowsKeys)

		for _, rows := range rowsKeys {
			m := byRows[rows]
			if rows < plinko.MinRows || rows > plinko.MaxRows {
				errs = append(errs, fmt.Sprintf("tables.%s.%d: rows must be in [%d,%d]", name, rows, plinko.MinRows, plinko.MaxRows))
				continue
			}
			if len(m) != rows+1 {
				errs = append(errs, fmt.Sprintf("tables.%s.%d: expected %d multipliers, got %d", name, rows, rows+1, len(m)))
				continue
			}
			for slot, v := range m {
				if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
					errs = append(errs, fmt.Sprintf("tables.%s.%d[%d] must be positive and finite", name, rows, slot))
				}
			}
		}
	}

	if len(errs) > 0 {
		return &validate.Error{Field: "paytable", Reason: "validation failed: " + strings.Join(errs, "; ")}
	}
	return nil
}

func sortedKeys(m map[string]map[int][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
