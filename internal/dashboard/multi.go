package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/chart"
	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/page"
)

// MultiOptions configures a multi-plant session.
type MultiOptions struct {
	// Year overrides the year selector when not zero.
	Year      int
	Page      int
	PageSize  int
	ChunkSize int
	Pause     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// MultiSession is one rendered multi-plant page.
type MultiSession struct {
	Doc    *page.Document
	Plants []string
	Year   int
	Result *multiplant.Result
	Rows   [][]string
	Footer []string
	Pager  *multiplant.Pager
}

// RunMulti loads the plant set named by doc for the selected year, draws the
// monthly chart and fills the monthly table. Configuration problems and load
// failures are raised through the Alerter and returned.
func RunMulti(ctx context.Context, doc *page.Document, deps Deps, opts MultiOptions) (*MultiSession, error) {
	logger := deps.logger()
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	impianti, _ := doc.Attr(page.MultiTableID, page.AttrPlants)
	nickname, _ := doc.Attr(page.MultiTableID, page.AttrNickname)
	plants, err := multiplant.ParsePlantSet(impianti, nickname)
	if err != nil {
		var cfgErr *multiplant.ConfigError
		if errors.As(err, &cfgErr) {
			alert(deps, cfgErr.Message)
		}
		logger.Error("invalid plant set", zap.Error(err))
		return nil, err
	}

	year := opts.Year
	if year == 0 {
		if selected, ok := doc.SelectedYear(); ok {
			year = selected
		} else {
			year = now().Year()
		}
	}

	doc.SetInnerHTML(page.MultiChartID, chart.Spinner)
	agg := &multiplant.Aggregator{
		Fetcher:   deps.Fetcher,
		ChunkSize: opts.ChunkSize,
		Pause:     opts.Pause,
		Logger:    logger,
		Progress:  deps.Progress,
	}
	result, err := agg.Load(ctx, plants, year)
	if err != nil {
		alert(deps, multiplant.LoadErrorMessage)
		return nil, fmt.Errorf("loading plants: %w", err)
	}

	renderer := chart.NewRenderer(logger)
	if _, err := renderer.Render(doc, page.MultiChartID, chart.Monthly(plants, year, result.Months)); err != nil {
		logger.Warn("monthly chart not drawn", zap.Error(err))
	}

	rows := multiplant.Rows(result.Months, year, now())
	footer := multiplant.Footer(result.Months, year, now())
	pager := multiplant.NewPager(rows, opts.PageSize)
	current := max(1, opts.Page)
	if !multiplant.RenderTable(doc, pager, current, year, footer) {
		logger.Warn("monthly table not found", zap.String("id", page.MultiTableID))
	}

	logger.Info("multi-plant page rendered",
		zap.Int("anno", year),
		zap.Int("plants", len(plants)),
		zap.Int("batches", result.Batches))

	return &MultiSession{
		Doc:    doc,
		Plants: plants,
		Year:   year,
		Result: result,
		Rows:   rows,
		Footer: footer,
		Pager:  pager,
	}, nil
}

// Chart returns the monthly chart configuration.
func (s *MultiSession) Chart() chart.Config {
	return chart.Monthly(s.Plants, s.Year, s.Result.Months)
}

func alert(deps Deps, message string) {
	if deps.Alerter != nil {
		deps.Alerter.Alert(message)
	}
}
