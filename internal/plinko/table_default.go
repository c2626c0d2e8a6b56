package plinko

// defaultMultipliers is the display payout table, indexed [risk][rows-MinRows].
var defaultMultipliers = [riskCount][rowSpan][]float64{
	Low: {
		{5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		{5.6, 2, 1.6, 1, 0.7, 0.7, 1, 1.6, 2, 5.6},
		{8.9, 3, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 3, 8.9},
		{8.4, 3, 1.9, 1.3, 1, 0.7, 0.7, 1, 1.3, 1.9, 3, 8.4},
		{10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		{8.1, 4, 3, 1.9, 1.2, 0.9, 0.7, 0.7, 0.9, 1.2, 1.9, 3, 4, 8.1},
		{7.1, 4, 1.9, 1.4, 1.3, 1.1, 1, 0.5, 1, 1.1, 1.3, 1.4, 1.9, 4, 7.1},
		{15, 8, 3, 2, 1.5, 1.1, 1, 0.7, 0.7, 1, 1.1, 1.5, 2, 3, 8, 15},
		{16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
	},
	Medium: {
		{13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		{18, 4, 1.7, 0.9, 0.5, 0.5, 0.9, 1.7, 4, 18},
		{22, 5, 2, 1.4, 0.6, 0.4, 0.6, 1.4, 2, 5, 22},
		{24, 6, 3, 1.8, 0.7, 0.5, 0.5, 0.7, 1.8, 3, 6, 24},
		{33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		{43, 13, 6, 3, 1.3, 0.7, 0.4, 0.4, 0.7, 1.3, 3, 6, 13, 43},
		{58, 15, 7, 4, 1.9, 1, 0.5, 0.2, 0.5, 1, 1.9, 4, 7, 15, 58},
		{88, 18, 11, 5, 3, 1.3, 0.5, 0.3, 0.3, 0.5, 1.3, 3, 5, 11, 18, 88},
		{110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
	},
	High: {
		{29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
		{43, 7, 2, 0.6, 0.2, 0.2, 0.6, 2, 7, 43},
		{76, 10, 3, 0.9, 0.3, 0.2, 0.3, 0.9, 3, 10, 76},
		{120, 14, 5.2, 1.4, 0.4, 0.2, 0.2, 0.4, 1.4, 5.2, 14, 120},
		{170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
		{260, 37, 11, 4, 1, 0.2, 0.2, 0.2, 0.2, 1, 4, 11, 37, 260},
		{420, 56, 18, 5, 1.9, 0.3, 0.2, 0.2, 0.2, 0.3, 1.9, 5, 18, 56, 420},
		{620, 83, 27, 8, 3, 0.5, 0.2, 0.2, 0.2, 0.2, 0.5, 3, 8, 27, 83, 620},
		{1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
}

// DefaultTable returns a fresh copy of the built-in display table.
func DefaultTable() *Table {
	var t Table
	for r := range defaultMultipliers {
		for i, m := range defaultMultipliers[r] {
			t[r][i] = append([]float64(nil), m...)
		}
	}
	return &t
}
