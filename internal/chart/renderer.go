package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/events"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// Inline notices written into the chart container.
const (
	NoDataNotice = `<div class="alert alert-warning">Nessun dato disponibile per il grafico.</div>`
	ErrorNotice  = `<div class="alert alert-danger">Errore nella creazione del grafico.</div>`
	Spinner      = `<div class="text-center p-5"><div class="spinner-border text-primary" role="status"><span class="visually-hidden">Caricamento...</span></div><p class="mt-3 text-muted">Caricamento dati del grafico...</p></div>`
)

// DefaultNickname titles the yearly chart when the page names no plant.
const DefaultNickname = "Impianto"

// ErrNoContainer is returned when the chart container is not on the page.
var ErrNoContainer = errors.New("chart container not found")

// Outcome tells what Render left in the container.
type Outcome int

const (
	// Drawn means the chart script was written.
	Drawn Outcome = iota
	// NoData means the no-data notice was written.
	NoData
	// Failed means the error notice was written.
	Failed
	// Missing means there was no container to write to.
	Missing
)

// Renderer writes charts and the yearly summary into a page.
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer returns a Renderer logging to logger.
func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger}
}

// Init shows the loading spinner in the container.
func (r *Renderer) Init(doc *page.Document, containerID string) bool {
	if !doc.SetInnerHTML(containerID, Spinner) {
		r.logger.Warn("chart container not found", zap.String("id", containerID))
		return false
	}
	return true
}

// Render draws cfg into the container. It never panics: a configuration that
// cannot be built leaves the error notice instead.
func (r *Renderer) Render(doc *page.Document, containerID string, cfg Config) (outcome Outcome, err error) {
	if !doc.Exists(containerID) {
		r.logger.Error("chart container not found", zap.String("id", containerID))
		return Missing, ErrNoContainer
	}
	if cfg.Empty() {
		doc.SetInnerHTML(containerID, NoDataNotice)
		return NoData, nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("chart build panicked: %v", p)
			r.logger.Error("chart build failed", zap.String("id", containerID), zap.Error(err))
			doc.SetInnerHTML(containerID, ErrorNotice)
			outcome = Failed
		}
	}()

	script, err := Script(containerID, cfg)
	if err != nil {
		r.logger.Error("chart build failed", zap.String("id", containerID), zap.Error(err))
		doc.SetInnerHTML(containerID, ErrorNotice)
		return Failed, err
	}
	doc.SetInnerHTML(containerID, script)
	return Drawn, nil
}

// Script returns the inline script drawing cfg into containerID.
func Script(containerID string, cfg Config) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode chart config: %w", err)
	}
	id, err := json.Marshal(containerID)
	if err != nil {
		return "", fmt.Errorf("failed to encode container id: %w", err)
	}
	return fmt.Sprintf("<script>Highcharts.chart(%s, %s);</script>", id, raw), nil
}

// SummaryRow renders the all-years row of the summary table.
func SummaryRow(s totals.Summary) string {
	var sb strings.Builder
	sb.WriteString(`<tr class="table-info fw-bold">`)
	for _, cell := range s.Cells() {
		sb.WriteString(`<td class="text-center">`)
		sb.WriteString(html.EscapeString(cell))
		sb.WriteString(`</td>`)
	}
	sb.WriteString(`</tr>`)
	return sb.String()
}

// RenderSummary replaces the body of the summary table with the all-years row.
func (r *Renderer) RenderSummary(doc *page.Document, s totals.Summary) bool {
	if !doc.SetSectionHTML(page.AnnualSummaryID, "tbody", SummaryRow(s)) {
		r.logger.Debug("summary table not found", zap.String("id", page.AnnualSummaryID))
		return false
	}
	return true
}

// RenderAnnual fills the summary row and the yearly chart from the published
// totals.
func (r *Renderer) RenderAnnual(doc *page.Document, years []totals.YearlyTotal) (Outcome, error) {
	if len(years) == 0 {
		if !doc.SetInnerHTML(page.AnnualChartID, NoDataNotice) {
			return Missing, ErrNoContainer
		}
		return NoData, nil
	}

	nickname, ok := doc.Nickname()
	if !ok {
		nickname = DefaultNickname
	}
	r.RenderSummary(doc, totals.AllYears(years))
	return r.Render(doc, page.AnnualChartID, Annual(nickname, years))
}

// Subscribe shows the spinner and draws the yearly chart when the totals are
// published.
func (r *Renderer) Subscribe(doc *page.Document, published *events.Once[[]totals.YearlyTotal]) {
	r.Init(doc, page.AnnualChartID)
	published.Subscribe(func(years []totals.YearlyTotal) {
		outcome, err := r.RenderAnnual(doc, years)
		r.logger.Debug("yearly chart rendered", zap.Int("outcome", int(outcome)), zap.Error(err))
	})
}
