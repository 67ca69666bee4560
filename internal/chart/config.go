// Package chart builds the Highcharts configurations of the yearly and
// monthly views and renders them into the page.
package chart

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// Subtitle is shared by the yearly and monthly charts.
const Subtitle = "Energia incentivata, corrispettivi TFO, fatturazione e incassi (dati sommati)"

// Series colors.
const (
	ColorEnergy        = "#7cb5ec"
	ColorAmountsAxis   = "rgb(255, 107, 107)"
	ColorFees          = "rgb(65,105,225)"
	ColorInvoiced      = "rgb(255,107,107)"
	ColorCollected     = "rgb(50,205,50)"
	ColorMonthlyEnergy = "#ff7f0e"
	ColorMonthlyFees   = "#4169E1"
	ColorMonthlyInv    = "#FF6B6B"
	ColorMonthlyPaid   = "#32CD32"
)

// Config is the subset of a Highcharts configuration the dashboard uses.
type Config struct {
	Chart         Options  `json:"chart"`
	Accessibility *Toggle  `json:"accessibility,omitempty"`
	Title         Text     `json:"title"`
	Subtitle      Text     `json:"subtitle"`
	XAxis         []XAxis  `json:"xAxis"`
	YAxis         []YAxis  `json:"yAxis"`
	Tooltip       Tooltip  `json:"tooltip"`
	Legend        Legend   `json:"legend"`
	Series        []Series `json:"series"`
	Credits       *Toggle  `json:"credits,omitempty"`
}

// Options is the chart block.
type Options struct {
	Type            string `json:"type,omitempty"`
	ZoomType        string `json:"zoomType,omitempty"`
	Height          int    `json:"height,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

type Toggle struct {
	Enabled bool `json:"enabled"`
}

// Style holds CSS properties.
type Style map[string]string

type Text struct {
	Text  string `json:"text"`
	Align string `json:"align,omitempty"`
	Style Style  `json:"style,omitempty"`
}

type XAxis struct {
	Categories []string `json:"categories"`
	Crosshair  bool     `json:"crosshair"`
}

type Labels struct {
	Format string `json:"format,omitempty"`
	Style  Style  `json:"style,omitempty"`
}

type YAxis struct {
	Min      *float64 `json:"min,omitempty"`
	Title    Text     `json:"title"`
	Labels   Labels   `json:"labels"`
	Opposite bool     `json:"opposite,omitempty"`
}

type Tooltip struct {
	Shared  bool `json:"shared"`
	UseHTML bool `json:"useHTML"`
}

type Legend struct {
	Layout        string `json:"layout"`
	Align         string `json:"align"`
	VerticalAlign string `json:"verticalAlign"`
}

type SeriesTooltip struct {
	ValueSuffix   string `json:"valueSuffix"`
	ValueDecimals *int   `json:"valueDecimals,omitempty"`
}

// Series is one plotted series. YAxis 0 is energy, 1 is amounts.
type Series struct {
	Name    string         `json:"name"`
	Type    string         `json:"type,omitempty"`
	YAxis   int            `json:"yAxis"`
	Data    []float64      `json:"data"`
	Color   string         `json:"color"`
	Tooltip *SeriesTooltip `json:"tooltip,omitempty"`
}

// Empty reports whether there is nothing to plot.
func (c Config) Empty() bool {
	if len(c.XAxis) == 0 || len(c.XAxis[0].Categories) == 0 {
		return true
	}
	for _, s := range c.Series {
		if len(s.Data) > 0 {
			return false
		}
	}
	return true
}

// Categories returns the x axis labels.
func (c Config) Categories() []string {
	if len(c.XAxis) == 0 {
		return nil
	}
	return c.XAxis[0].Categories
}

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// HumanizeNickname turns "ponte_giurino" into "Ponte Giurino".
func HumanizeNickname(nickname string) string {
	if nickname == "" {
		return ""
	}
	parts := strings.Split(nickname, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		parts[i] = upper.String(string(r[0])) + lower.String(string(r[1:]))
	}
	return strings.Join(parts, " ")
}

func decimals(n int) *int {
	return &n
}

func zero() *float64 {
	v := 0.0
	return &v
}

// Annual builds the yearly chart of one plant. years must be sorted.
func Annual(nickname string, years []totals.YearlyTotal) Config {
	categories := make([]string, 0, len(years))
	energy := make([]float64, 0, len(years))
	fees := make([]float64, 0, len(years))
	invoiced := make([]float64, 0, len(years))
	collected := make([]float64, 0, len(years))
	for _, y := range years {
		categories = append(categories, strconv.Itoa(y.Year))
		energy = append(energy, y.Energy)
		fees = append(fees, y.Fees())
		invoiced = append(invoiced, y.Invoiced)
		collected = append(collected, y.Collected)
	}

	return Config{
		Chart: Options{Type: "column", ZoomType: "xy", Height: 450, BackgroundColor: "transparent"},
		Title: Text{
			Text:  "Andamento Annuale " + HumanizeNickname(nickname),
			Style: Style{"fontSize": "18px", "fontWeight": "bold", "color": "#333"},
		},
		Subtitle: Text{Text: Subtitle, Style: Style{"fontSize": "0.8em", "color": "#666"}},
		XAxis:    []XAxis{{Categories: categories, Crosshair: true}},
		YAxis: []YAxis{
			{
				Min:    zero(),
				Title:  Text{Text: "Energia (kWh)", Style: Style{"color": ColorEnergy}},
				Labels: Labels{Format: "{value:,.0f}", Style: Style{"color": ColorEnergy}},
			},
			{
				Min:      zero(),
				Title:    Text{Text: "Importi (€)", Style: Style{"color": ColorAmountsAxis}},
				Labels:   Labels{Format: "{value:,.0f} €", Style: Style{"color": ColorAmountsAxis}},
				Opposite: true,
			},
		},
		Tooltip: Tooltip{Shared: true, UseHTML: true},
		Legend:  Legend{Layout: "horizontal", Align: "center", VerticalAlign: "bottom"},
		Series: []Series{
			{Name: "Energia Incentivata", Type: "spline", YAxis: 0, Data: energy, Color: ColorEnergy,
				Tooltip: &SeriesTooltip{ValueSuffix: " kWh", ValueDecimals: decimals(0)}},
			{Name: "Corrispettivi TFO", YAxis: 1, Data: fees, Color: ColorFees,
				Tooltip: &SeriesTooltip{ValueSuffix: " €", ValueDecimals: decimals(2)}},
			{Name: "Fatturazione TFO", YAxis: 1, Data: invoiced, Color: ColorInvoiced,
				Tooltip: &SeriesTooltip{ValueSuffix: " €", ValueDecimals: decimals(2)}},
			{Name: "Incassi", YAxis: 1, Data: collected, Color: ColorCollected,
				Tooltip: &SeriesTooltip{ValueSuffix: " €", ValueDecimals: decimals(2)}},
		},
	}
}

// PlantsTitle names the plant set in the monthly chart title.
func PlantsTitle(plants []string) string {
	if len(plants) == 1 {
		return plants[0]
	}
	return fmt.Sprintf("%d Impianti (Somma Totale)", len(plants))
}

// Monthly builds the monthly chart of a plant set. Values are rounded.
func Monthly(plants []string, year int, months [12]multiplant.MonthlySum) Config {
	categories := make([]string, 0, len(months))
	energy := make([]float64, 0, len(months))
	fees := make([]float64, 0, len(months))
	invoiced := make([]float64, 0, len(months))
	collected := make([]float64, 0, len(months))
	for i, m := range months {
		categories = append(categories, page.MonthNames[i])
		energy = append(energy, numfmt.Round(m.Energy))
		fees = append(fees, numfmt.Round(m.TFO))
		invoiced = append(invoiced, numfmt.Round(m.Invoiced))
		collected = append(collected, numfmt.Round(m.Collected))
	}

	return Config{
		Chart:         Options{ZoomType: "xy", BackgroundColor: "rgba(255,255,255,0.8)"},
		Accessibility: &Toggle{Enabled: false},
		Title: Text{
			Text:  strings.TrimSpace(fmt.Sprintf("Andamento %s - Anno %d", PlantsTitle(plants), year)),
			Align: "center",
			Style: Style{"fontSize": "18px", "fontWeight": "bold", "color": "#4a3c54"},
		},
		Subtitle: Text{Text: Subtitle, Align: "center"},
		XAxis:    []XAxis{{Categories: categories, Crosshair: true}},
		YAxis: []YAxis{
			{
				Title:  Text{Text: "Energia (kWh)", Style: Style{"color": ColorEnergy}},
				Labels: Labels{Format: "{value} kWh", Style: Style{"color": ColorEnergy}},
			},
			{
				Title:    Text{Text: "Importi (€)", Style: Style{"color": ColorMonthlyInv}},
				Labels:   Labels{Format: "{value} €", Style: Style{"color": ColorMonthlyInv}},
				Opposite: true,
			},
		},
		Tooltip: Tooltip{Shared: true, UseHTML: true},
		Legend:  Legend{Layout: "horizontal", Align: "center", VerticalAlign: "bottom"},
		Series: []Series{
			{Name: "Energia Incentivata", Type: "line", YAxis: 0, Data: energy, Color: ColorMonthlyEnergy,
				Tooltip: &SeriesTooltip{ValueSuffix: " kWh"}},
			{Name: "Corrispettivi TFO", Type: "column", YAxis: 1, Data: fees, Color: ColorMonthlyFees,
				Tooltip: &SeriesTooltip{ValueSuffix: " €"}},
			{Name: "Fatturazione TFO", Type: "column", YAxis: 1, Data: invoiced, Color: ColorMonthlyInv,
				Tooltip: &SeriesTooltip{ValueSuffix: " €"}},
			{Name: "Incassi", Type: "column", YAxis: 1, Data: collected, Color: ColorMonthlyPaid,
				Tooltip: &SeriesTooltip{ValueSuffix: " €"}},
		},
		Credits: &Toggle{Enabled: false},
	}
}
