// types.go
package paytable

// RawConfig is one payout table YAML file. Tables maps a risk name to a rows
// count to the rows+1 multipliers of that configuration; configurations not
// listed keep the compiled-in values.
//
//	version: "2024-06"
//	tables:
//	  high:
//	    8: [29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29]
type RawConfig struct {
	Version string                       `yaml:"version"`
	Notes   string                       `yaml:"notes,omitempty"`
	Tables  map[string]map[int][]float64 `yaml:"tables"`
}
