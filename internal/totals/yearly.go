package totals

import (
	"sort"

	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/page"
)

// SummaryLabel heads the all-years row.
const SummaryLabel = "Totale (tutti gli anni)"

// YearlyTotal holds the totals of one plant-year table.
type YearlyTotal struct {
	Year      int     `json:"anno"`
	Energy    float64 `json:"energia"`
	TFO       float64 `json:"tfo"`
	CNI       float64 `json:"cni"`
	Invoiced  float64 `json:"fatturazione"`
	Collected float64 `json:"pagamenti"`
}

// Fees is the sum shown as "corrispettivi": TFO plus CNI.
func (y YearlyTotal) Fees() float64 {
	return y.TFO + y.CNI
}

// Extract reads the totals of a table back from its total cells.
func Extract(year int, s Surface) YearlyTotal {
	return YearlyTotal{
		Year:      year,
		Energy:    Read(s, page.TotalEnergy),
		TFO:       Read(s, page.TotalTFO),
		CNI:       Read(s, page.TotalCNI),
		Invoiced:  Read(s, page.TotalInvoicedTFO),
		Collected: Read(s, page.TotalCollected),
	}
}

// Finalize keeps the totals with a year and at least one of energy, TFO or
// invoiced strictly positive, merges entries sharing a year and sorts by year.
func Finalize(all []YearlyTotal) []YearlyTotal {
	byYear := make(map[int]int)
	out := make([]YearlyTotal, 0, len(all))
	for _, y := range all {
		if y.Year == 0 || !(y.Energy > 0 || y.TFO > 0 || y.Invoiced > 0) {
			continue
		}
		if i, ok := byYear[y.Year]; ok {
			out[i].Energy += y.Energy
			out[i].TFO += y.TFO
			out[i].CNI += y.CNI
			out[i].Invoiced += y.Invoiced
			out[i].Collected += y.Collected
			continue
		}
		byYear[y.Year] = len(out)
		out = append(out, y)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Summary is the all-years total row.
type Summary struct {
	Energy    float64 `json:"energia"`
	Fees      float64 `json:"corrispettivi"`
	Invoiced  float64 `json:"fatturazione"`
	Collected float64 `json:"incassi"`
}

// AllYears sums the yearly totals.
func AllYears(years []YearlyTotal) Summary {
	var s Summary
	for _, y := range years {
		s.Energy += y.Energy
		s.Fees += y.Fees()
		s.Invoiced += y.Invoiced
		s.Collected += y.Collected
	}
	return s
}

// Cells renders the row: label, energy with no decimals, then the three
// amounts with two decimals.
func (s Summary) Cells() []string {
	two := numfmt.Options{Decimals: 2, Grouping: true}
	return []string{
		SummaryLabel,
		numfmt.Format(s.Energy, numfmt.Options{Grouping: true}),
		numfmt.Format(s.Fees, two),
		numfmt.Format(s.Invoiced, two),
		numfmt.Format(s.Collected, two),
	}
}
