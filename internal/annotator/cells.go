package annotator

import (
	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
)

// cellRule renders one month value of an annual series.
type cellRule struct {
	series portal.Series
	class  string
	render func(v float64, ok bool) string
}

var cellRules = []cellRule{
	{portal.SeriesEnergy, page.CellEnergy, energyText},
	{portal.SeriesTFO, page.CellTFO, amountText},
	{portal.SeriesCNI, page.CellCNI, roundedAmountText},
	{portal.SeriesInvoicedTFO, page.CellInvoicedTFO, amountText},
	{portal.SeriesNonIncentive, page.CellNonIncentive, amountText},
	{portal.SeriesPayments, page.CellCollected, amountText},
	{portal.SeriesControl, page.CellControl, controlText},
}

const zeroAmount = "0" + numfmt.Euro

func energyText(v float64, ok bool) string {
	switch {
	case !ok:
		return numfmt.Sentinel
	case v == 0:
		return "0"
	default:
		return numfmt.Integer(v)
	}
}

func amountText(v float64, ok bool) string {
	switch {
	case !ok:
		return numfmt.Sentinel
	case v == 0:
		return zeroAmount
	default:
		return numfmt.Amount(v)
	}
}

func roundedAmountText(v float64, ok bool) string {
	switch {
	case !ok:
		return numfmt.Sentinel
	case v == 0:
		return zeroAmount
	default:
		return numfmt.Integer(v) + numfmt.Euro
	}
}

// controlText never suppresses zero and keeps the unit on the sentinel.
func controlText(v float64, ok bool) string {
	if !ok {
		return numfmt.Sentinel + numfmt.Euro
	}
	return numfmt.Amount(v)
}

// punText renders the monthly PUN cell from its payload.
func punText(p *portal.Payload) string {
	v, ok := p.PUN()
	return amountText(v, ok)
}
