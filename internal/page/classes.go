package page

// Table selection and attributes.
const (
	TableSelector = ".js-tabella-corrispettivi"
	AttrYear      = "data-anno"
	AttrNickname  = "data-nickname"
	AttrMonth     = "data-mese"
	AttrPlants    = "data-impianti"
)

// Month cell classes.
const (
	CellEnergy       = "energia-value"
	CellPUN          = "pun-value"
	CellTFO          = "tfo-value"
	CellCNI          = "CNI-value"
	CellInvoicedTFO  = "fatturazione-tfo-value"
	CellNonIncentive = "fatturazione-altro-value"
	CellCollected    = "incassi-value"
	CellControl      = "controllo-scarto"
	CellComment      = "commento-value"
	CommentInput     = "js-commento-input"
	CommentSave      = "js-salva-commento"
)

// Total cell classes.
const (
	TotalEnergy       = "totale-energia"
	TotalPUN          = "totale-pun"
	TotalTFO          = "totale-corrispettivo-incentivo"
	TotalCNI          = "totale-CNI"
	TotalInvoicedTFO  = "totale-fatturazione-tfo"
	TotalNonIncentive = "totale-fatturazione-altro"
	TotalCollected    = "totale-incassi"
	TotalControl      = "totale-controllo-percentuale"
)

// Element ids of the chart and summary containers.
const (
	AnnualChartID   = "chart_totale_impianto"
	AnnualSummaryID = "tabella_totale_impianto"
	MultiChartID    = "chart"
	MultiTableID    = "tabella_corrispettivi"
	YearSelectorID  = "selettore-anno"
)

// Icons shown inside the comment save button.
const (
	IconSave  = `<i class="fa fa-save" aria-hidden="true"></i>`
	IconCheck = `<i class="fa fa-check" aria-hidden="true"></i>`
)

// EditableCells lists the month cell classes that can be edited through the
// live session.
var EditableCells = []string{
	CellEnergy,
	CellPUN,
	CellTFO,
	CellCNI,
	CellInvoicedTFO,
	CellNonIncentive,
	CellCollected,
	CellControl,
}
