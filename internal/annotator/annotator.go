// Package annotator fills the corrispettivi tables of a page with the
// monthly values read from the portal, computes their totals and publishes
// the yearly totals once every table is done.
package annotator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lamim/corrispettivi-report/internal/debug"
	"github.com/lamim/corrispettivi-report/internal/events"
	"github.com/lamim/corrispettivi-report/internal/fetchcache"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
	"github.com/lamim/corrispettivi-report/internal/progress"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// ErrNoTables is returned by Run when the page has no valid table.
var ErrNoTables = errors.New("no valid corrispettivi table found")

// Months per table.
const Months = 12

// Options configures an Annotator.
type Options struct {
	Cache    *fetchcache.Cache
	Saver    Saver
	Alerter  Alerter
	Logger   *zap.Logger
	Progress *progress.Manager
	Debug    *debug.Logger
	// ConfirmDelay defaults to DefaultConfirmDelay.
	ConfirmDelay time.Duration
}

type controlKey struct {
	year  int
	month int
}

// Annotator processes the tables of one document.
type Annotator struct {
	doc    *page.Document
	opts   Options
	logger *zap.Logger

	published *events.Once[[]totals.YearlyTotal]
	completed atomic.Int32

	mu       sync.Mutex
	tables   []*page.Table
	controls map[controlKey]*CommentControl
	failed   map[int]bool
}

// New returns an Annotator for doc.
func New(doc *page.Document, opts Options) *Annotator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConfirmDelay <= 0 {
		opts.ConfirmDelay = DefaultConfirmDelay
	}
	return &Annotator{
		doc:       doc,
		opts:      opts,
		logger:    logger,
		published: events.NewOnce[[]totals.YearlyTotal](),
		controls:  make(map[controlKey]*CommentControl),
		failed:    make(map[int]bool),
	}
}

// Totals is the channel the yearly totals are published on.
func (a *Annotator) Totals() *events.Once[[]totals.YearlyTotal] {
	return a.published
}

// Run annotates every valid table and returns when all of them reached their
// terminal state. The yearly totals are published by the table that
// completes last.
func (a *Annotator) Run(ctx context.Context) error {
	if a.opts.Cache == nil {
		return errors.New("annotator requires a fetch cache")
	}

	tables, skipped := a.doc.Tables()
	if skipped > 0 {
		a.logger.Warn("skipping tables without data-anno or data-nickname", zap.Int("count", skipped))
	}
	if len(tables) == 0 {
		a.logger.Warn("no valid corrispettivi table")
		return ErrNoTables
	}

	a.mu.Lock()
	a.tables = tables
	a.mu.Unlock()

	expected := int32(len(tables))
	var wg sync.WaitGroup
	for _, t := range tables {
		wg.Add(1)
		go func(t *page.Table) {
			defer wg.Done()
			a.annotate(ctx, t)
			if a.completed.Add(1) == expected {
				a.finalize()
			}
		}(t)
	}
	wg.Wait()
	return nil
}

// annotate fills one table. It never fails: read errors end up as sentinel
// cells.
func (a *Annotator) annotate(ctx context.Context, t *page.Table) {
	unit := fmt.Sprintf("%s/%d", t.Nickname, t.Year)
	a.opts.Progress.Start(unit)

	tableLog := a.opts.Debug.StartTable(t.Nickname, t.Year)
	ctx = portal.WithDebugLogger(ctx, a.opts.Debug)
	ctx = portal.WithTableLog(ctx, tableLog)

	start := time.Now()
	var punGroup errgroup.Group
	var punFailed atomic.Bool
	for month := 1; month <= Months; month++ {
		if !t.HasCell(page.CellPUN, month) {
			continue
		}
		punGroup.Go(func() error {
			p := a.opts.Cache.Get(ctx, portal.PUNPath(t.Nickname, t.Year, month))
			if !p.Success {
				punFailed.Store(true)
			}
			t.SetCell(page.CellPUN, month, punText(p))
			return nil
		})
	}

	payloads := a.fetchAnnual(ctx, t)
	failed := false
	for _, p := range payloads {
		if !p.Success {
			failed = true
		}
	}
	a.writeCells(t, payloads)
	totals.Table(t)

	_ = punGroup.Wait()
	totals.PUN(t)

	partial := failed || punFailed.Load()
	if partial {
		a.opts.Debug.SetStatus(tableLog, "failed")
		a.mu.Lock()
		a.failed[t.Year] = true
		a.mu.Unlock()
	}
	a.opts.Debug.SetMetadata(tableLog, "duration_ms", time.Since(start).Milliseconds())
	a.opts.Debug.EndTable(tableLog)
	a.opts.Progress.Complete(unit, !partial)

	a.logger.Debug("table annotated",
		zap.String("nickname", t.Nickname),
		zap.Int("anno", t.Year),
		zap.Bool("partial", partial),
		zap.Duration("elapsed", time.Since(start)))
}

// fetchAnnual reads the annual series of t concurrently, keyed by series.
func (a *Annotator) fetchAnnual(ctx context.Context, t *page.Table) map[portal.Series]*portal.Payload {
	var (
		mu       sync.Mutex
		g        errgroup.Group
		payloads = make(map[portal.Series]*portal.Payload, len(portal.AnnualSeries))
	)
	for _, s := range portal.AnnualSeries {
		g.Go(func() error {
			p := a.opts.Cache.Get(ctx, portal.AnnualPath(s, t.Nickname, t.Year))
			mu.Lock()
			payloads[s] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return payloads
}

func (a *Annotator) writeCells(t *page.Table, payloads map[portal.Series]*portal.Payload) {
	comments := payloads[portal.SeriesComments]
	for month := 1; month <= Months; month++ {
		for _, rule := range cellRules {
			if !t.HasCell(rule.class, month) {
				continue
			}
			v, ok := payloads[rule.series].PerMonth.Lookup(month)
			t.SetCell(rule.class, month, rule.render(v, ok))
		}

		if !t.HasComment(month) {
			continue
		}
		t.SetCommentValue(month, comments.CommentsByMonth.Text(month))
		a.mu.Lock()
		a.controls[controlKey{t.Year, month}] = &CommentControl{
			table:   t,
			month:   month,
			saver:   a.opts.Saver,
			alerter: a.opts.Alerter,
			logger:  a.logger,
			delay:   a.opts.ConfirmDelay,
		}
		a.mu.Unlock()
	}
}

// finalize recomputes the totals read back by Extract and publishes the
// yearly sequence.
func (a *Annotator) finalize() {
	a.mu.Lock()
	tables := append([]*page.Table(nil), a.tables...)
	a.mu.Unlock()

	yearly := make([]totals.YearlyTotal, 0, len(tables))
	for _, t := range tables {
		totals.Refresh(t)
		yearly = append(yearly, totals.Extract(t.Year, t))
	}
	yearly = totals.Finalize(yearly)

	if err := a.published.Publish(yearly); err != nil {
		a.logger.Error("yearly totals published twice", zap.Error(err))
		return
	}
	a.logger.Info("yearly totals published", zap.Int("years", len(yearly)))
}

// Control returns the comment control of month in the table of year.
func (a *Annotator) Control(year, month int) (*CommentControl, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.controls[controlKey{year, month}]
	return c, ok
}

// Table returns the annotated table of year.
func (a *Annotator) Table(year int) (*page.Table, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.tables {
		if t.Year == year {
			return t, true
		}
	}
	return nil, false
}

// FailedYears returns the years with at least one unsuccessful read.
func (a *Annotator) FailedYears() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	years := make([]int, 0, len(a.failed))
	for y := range a.failed {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Completed returns how many tables reached their terminal state.
func (a *Annotator) Completed() int {
	return int(a.completed.Load())
}

// Stop cancels pending icon reverts of every comment control.
func (a *Annotator) Stop() {
	a.mu.Lock()
	controls := make([]*CommentControl, 0, len(a.controls))
	for _, c := range a.controls {
		controls = append(controls, c)
	}
	a.mu.Unlock()
	for _, c := range controls {
		c.Stop()
	}
}
