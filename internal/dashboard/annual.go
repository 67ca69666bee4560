// Package dashboard runs the annual and multi-plant page sessions on top of
// the annotator, chart and multiplant components.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/annotator"
	"github.com/lamim/corrispettivi-report/internal/chart"
	"github.com/lamim/corrispettivi-report/internal/debug"
	"github.com/lamim/corrispettivi-report/internal/fetchcache"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/progress"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// Errors returned by the live editing operations.
var (
	ErrUnknownTable = errors.New("no table for the requested year")
	ErrUnknownCell  = errors.New("cell is not editable")
	ErrNoControl    = errors.New("no comment control for the requested month")
)

// Deps are the collaborators of a session.
type Deps struct {
	Fetcher      fetchcache.Fetcher
	Saver        annotator.Saver
	Alerter      annotator.Alerter
	Logger       *zap.Logger
	Debug        *debug.Logger
	Progress     *progress.Manager
	ConfirmDelay time.Duration
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// AnnualSession is one annotated plant page.
type AnnualSession struct {
	Doc       *page.Document
	Cache     *fetchcache.Cache
	annotator *annotator.Annotator
	renderer  *chart.Renderer
	logger    *zap.Logger
}

// RunAnnual annotates doc, draws the yearly chart and summary and returns
// once the yearly totals are published. A page without valid tables returns
// annotator.ErrNoTables and shows the no-data notice.
func RunAnnual(ctx context.Context, doc *page.Document, deps Deps) (*AnnualSession, error) {
	logger := deps.logger()
	cache := fetchcache.New(deps.Fetcher, logger)
	a := annotator.New(doc, annotator.Options{
		Cache:        cache,
		Saver:        deps.Saver,
		Alerter:      deps.Alerter,
		Logger:       logger,
		Progress:     deps.Progress,
		Debug:        deps.Debug,
		ConfirmDelay: deps.ConfirmDelay,
	})
	renderer := chart.NewRenderer(logger)
	renderer.Subscribe(doc, a.Totals())

	s := &AnnualSession{Doc: doc, Cache: cache, annotator: a, renderer: renderer, logger: logger}
	if err := a.Run(ctx); err != nil {
		if errors.Is(err, annotator.ErrNoTables) {
			doc.SetInnerHTML(page.AnnualChartID, chart.NoDataNotice)
		}
		return s, fmt.Errorf("annotating page: %w", err)
	}
	<-a.Totals().Done()
	return s, nil
}

// Totals returns the published yearly totals.
func (s *AnnualSession) Totals() []totals.YearlyTotal {
	v, _ := s.annotator.Totals().Value()
	return v
}

// Summary returns the all-years totals.
func (s *AnnualSession) Summary() totals.Summary {
	return totals.AllYears(s.Totals())
}

// Nickname returns the plant named by the page.
func (s *AnnualSession) Nickname() string {
	if n, ok := s.Doc.Nickname(); ok {
		return n
	}
	return chart.DefaultNickname
}

// FailedYears returns the years with unsuccessful reads.
func (s *AnnualSession) FailedYears() []int {
	return s.annotator.FailedYears()
}

// Chart returns the yearly chart configuration.
func (s *AnnualSession) Chart() chart.Config {
	return chart.Annual(s.Nickname(), s.Totals())
}

// Comment types text into the comment of month and saves it.
func (s *AnnualSession) Comment(ctx context.Context, year, month int, text string) error {
	control, ok := s.annotator.Control(year, month)
	if !ok {
		return ErrNoControl
	}
	control.SetText(text)
	return control.Click(ctx)
}

// EditCell replaces a month cell and recomputes the totals of its table.
func (s *AnnualSession) EditCell(year int, class string, month int, value string) error {
	if !slices.Contains(page.EditableCells, class) {
		return fmt.Errorf("%w: %s", ErrUnknownCell, class)
	}
	t, ok := s.annotator.Table(year)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTable, year)
	}
	if !t.SetCell(class, month, value) {
		return fmt.Errorf("%w: %s month %d", ErrUnknownCell, class, month)
	}
	totals.Table(t)
	if class == page.CellPUN {
		totals.PUN(t)
	}
	s.logger.Info("cell edited", zap.Int("anno", year), zap.String("class", class), zap.Int("mese", month))
	return nil
}

// TableTotals reads the current total cells of the table of year.
func (s *AnnualSession) TableTotals(year int) (totals.YearlyTotal, error) {
	t, ok := s.annotator.Table(year)
	if !ok {
		return totals.YearlyTotal{}, fmt.Errorf("%w: %d", ErrUnknownTable, year)
	}
	return totals.Extract(year, t), nil
}

// HTML renders the annotated page.
func (s *AnnualSession) HTML() (string, error) {
	return s.Doc.HTML()
}

// Close stops pending comment icon reverts.
func (s *AnnualSession) Close() {
	s.annotator.Stop()
}
