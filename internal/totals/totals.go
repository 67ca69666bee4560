// Package totals computes the totals of the corrispettivi tables from the
// text currently shown in their cells, so that manual edits are counted.
//
// Each metric keeps its own rendering of the total; they differ in grouping
// and decimals and are kept as the portal shows them.
package totals

import (
	"math"
	"strings"

	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/page"
)

// DiscrepancyThreshold is the smallest absolute discrepancy that is shown.
const DiscrepancyThreshold = 0.005

// Surface exposes the visible values of one table.
type Surface interface {
	// CellTexts returns the text of every month cell with the class.
	CellTexts(class string) []string
	// Text returns the text of the total cell with the class.
	Text(class string) (string, bool)
	// SetText replaces the text of the total cell with the class. It
	// reports false when the table has no such cell.
	SetText(class, text string) bool
}

// Sum adds the visible values of the month cells with class, skipping
// sentinels.
func Sum(s Surface, class string) float64 {
	total := 0.0
	for _, text := range s.CellTexts(class) {
		t := strings.TrimSpace(text)
		if t == "" || numfmt.IsSentinel(t) || strings.EqualFold(t, numfmt.Sentinel) {
			continue
		}
		total += numfmt.ParseLocaleNumber(t)
	}
	return total
}

// Read parses the total cell with class back into a number.
func Read(s Surface, class string) float64 {
	text, ok := s.Text(class)
	if !ok {
		return 0
	}
	return numfmt.ParseLocaleNumber(text)
}

// Energy writes the kWh total without grouping.
func Energy(s Surface) float64 {
	sum := Sum(s, page.CellEnergy)
	s.SetText(page.TotalEnergy, unlessZero(sum, numfmt.FormatPlain(sum)))
	return sum
}

// NonIncentiveFee writes the CNI total without grouping.
func NonIncentiveFee(s Surface) float64 {
	sum := Sum(s, page.CellCNI)
	s.SetText(page.TotalCNI, unlessZero(sum, numfmt.FormatPlain(sum)+numfmt.Euro))
	return sum
}

// IncentiveFee writes the TFO total.
func IncentiveFee(s Surface) float64 {
	return fixed(s, page.CellTFO, page.TotalTFO)
}

// NonIncentiveEnergy writes the total of energy billed outside the incentive.
func NonIncentiveEnergy(s Surface) float64 {
	return fixed(s, page.CellNonIncentive, page.TotalNonIncentive)
}

// InvoicedTFO writes the TFO invoicing total.
func InvoicedTFO(s Surface) float64 {
	return fixed(s, page.CellInvoicedTFO, page.TotalInvoicedTFO)
}

// Collected writes the payments total.
func Collected(s Surface) float64 {
	return fixed(s, page.CellCollected, page.TotalCollected)
}

// PUN writes the grouped total of the monthly prices.
func PUN(s Surface) float64 {
	sum := Sum(s, page.CellPUN)
	s.SetText(page.TotalPUN, unlessZero(sum, numfmt.Amount(sum)))
	return sum
}

// Discrepancy writes collected - TFO - CNI, read back from the total cells.
func Discrepancy(s Surface) float64 {
	d := Read(s, page.TotalCollected) - Read(s, page.TotalTFO) - Read(s, page.TotalCNI)
	text := ""
	if ShowDiscrepancy(d) {
		text = numfmt.Amount(d)
	}
	s.SetText(page.TotalControl, text)
	return d
}

// ShowDiscrepancy reports whether d is large enough to be displayed.
func ShowDiscrepancy(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && math.Abs(d) >= DiscrepancyThreshold
}

// Table recomputes every per-table total except PUN, which waits for its
// own requests.
func Table(s Surface) {
	Energy(s)
	IncentiveFee(s)
	NonIncentiveFee(s)
	NonIncentiveEnergy(s)
	InvoicedTFO(s)
	Collected(s)
	Discrepancy(s)
}

// Refresh recomputes the totals read by Extract.
func Refresh(s Surface) {
	Energy(s)
	IncentiveFee(s)
	InvoicedTFO(s)
	Collected(s)
}

func fixed(s Surface, cellClass, totalClass string) float64 {
	sum := Sum(s, cellClass)
	s.SetText(totalClass, unlessZero(sum, numfmt.Format(sum, numfmt.Options{Decimals: 2, Currency: true})))
	return sum
}

func unlessZero(sum float64, text string) string {
	if sum == 0 {
		return ""
	}
	return text
}
