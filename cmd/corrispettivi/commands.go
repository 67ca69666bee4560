package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/dashboard"
	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/progress"
	"github.com/lamim/corrispettivi-report/internal/report"
	"github.com/lamim/corrispettivi-report/internal/server"
)

// selectorYears is how many years the generated year selector offers.
const selectorYears = 5

var multiYear int

var annualCmd = &cobra.Command{
	Use:   "annual",
	Short: "Annotate the annual page of one plant",
	Long: `Loads the annual page named by [annual].page (a file or an http(s) URL), or
builds it from [annual].nickname and [annual].years, fills every table from
the portal and writes the reports.`,
	Args: cobra.NoArgs,
	RunE: runAnnual,
}

var multiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Sum a set of plants month by month for one year",
	Long: `Loads the multi-plant page named by [multi].page, or builds it from
[multi].plants, fetches the plants in batches and writes the monthly chart,
table and reports.`,
	Args: cobra.NoArgs,
	RunE: runMulti,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the annotated pages over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runAnnual(cmd *cobra.Command, _ []string) error {
	a, err := newApp("annual")
	if err != nil {
		return err
	}
	defer a.finish()

	ctx := cmd.Context()
	doc, err := a.annualPage(ctx)
	if err != nil {
		return err
	}

	session, elapsed, err := a.runAnnual(ctx, doc)
	if err != nil {
		return err
	}
	defer session.Close()

	years := session.Totals()
	fmt.Printf("✓ Annotated %s: %d years with data in %s\n", session.Nickname(), len(years), progress.FormatDuration(elapsed))
	if failed := session.FailedYears(); len(failed) > 0 {
		fmt.Printf("  Years with failed reads: %v\n", failed)
	}

	r, err := report.FromAnnual(session)
	if err != nil {
		return err
	}
	dir, err := ensureOutputDir(a.cfg.General.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeReports(r, filepath.Join(dir, "annual"))
}

func runMulti(cmd *cobra.Command, _ []string) error {
	a, err := newApp("multi")
	if err != nil {
		return err
	}
	defer a.finish()

	year := a.cfg.Multi.Year
	if multiYear > 0 {
		year = multiYear
	}

	ctx := cmd.Context()
	doc, err := a.multiPage(ctx, year)
	if err != nil {
		return err
	}

	session, err := a.runMulti(ctx, doc, year, 1)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Loaded %d plants for %d in %d batches\n", len(session.Plants), session.Year, session.Result.Batches)

	r, err := report.FromMulti(session)
	if err != nil {
		return err
	}
	dir, err := ensureOutputDir(a.cfg.General.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeReports(r, filepath.Join(dir, fmt.Sprintf("multi-%d", session.Year)))
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp("serve")
	if err != nil {
		return err
	}
	defer a.finish()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Deps:   a.deps(nil),
		Multi:  a.multiOptions(a.cfg.Multi.Year, 1),
		Logger: a.logger,
	}
	if a.cfg.Annual.HasSource() {
		doc, err := a.annualPage(ctx)
		if err != nil {
			return err
		}
		session, _, err := a.runAnnual(ctx, doc)
		if err != nil {
			return err
		}
		defer session.Close()
		opts.Annual = session
		fmt.Printf("✓ Annotated %s\n", session.Nickname())
	}
	if a.cfg.Multi.HasSource() {
		opts.MultiPage = a.multiPage
	}
	if opts.Annual == nil && opts.MultiPage == nil {
		return errors.New("nothing to serve: configure [annual] or [multi]")
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           server.New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("✓ Serving on %s\n", a.cfg.Server.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func (a *app) deps(prog *progress.Manager) dashboard.Deps {
	return dashboard.Deps{
		Fetcher:  a.client,
		Saver:    a.client,
		Alerter:  a.alerter(),
		Logger:   a.logger,
		Debug:    a.debug,
		Progress: prog,
	}
}

func (a *app) multiOptions(year, pageNumber int) dashboard.MultiOptions {
	return dashboard.MultiOptions{
		Year:      year,
		Page:      pageNumber,
		PageSize:  a.cfg.Multi.PageSize,
		ChunkSize: a.cfg.Multi.ChunkSize,
		Pause:     a.cfg.Multi.PauseDuration(),
	}
}

func (a *app) annualPage(ctx context.Context) (*page.Document, error) {
	ac := a.cfg.Annual
	if !ac.HasSource() {
		return nil, errors.New("no annual page: set [annual].page or [annual].nickname and years")
	}
	if ac.Page != "" {
		return a.loadPage(ctx, ac.Page)
	}
	html, err := page.AnnualPage(ac.Nickname, ac.Years)
	if err != nil {
		return nil, err
	}
	return page.ParseString(html)
}

func (a *app) runAnnual(ctx context.Context, doc *page.Document) (*dashboard.AnnualSession, time.Duration, error) {
	tables, skipped := doc.Tables()
	if skipped > 0 {
		a.logger.Warn("tables without nickname or year skipped", zap.Int("skipped", skipped))
	}
	prog := progress.NewManager(len(tables), "tables", "Annotating", !noProgress)
	session, err := dashboard.RunAnnual(ctx, doc, a.deps(prog))
	elapsed := prog.Finish()
	if err != nil {
		return nil, elapsed, err
	}
	return session, elapsed, nil
}

// multiPage returns a fresh multi-plant page for year, loaded as configured
// or built from the plant list.
func (a *app) multiPage(ctx context.Context, year int) (*page.Document, error) {
	mc := a.cfg.Multi
	if !mc.HasSource() {
		return nil, errors.New("no multi-plant page: set [multi].page or [multi].plants")
	}
	if mc.Page != "" {
		return a.loadPage(ctx, mc.Page)
	}
	if year == 0 {
		year = time.Now().Year()
	}
	html, err := page.MultiPage{
		Plants:   mc.Plants,
		Years:    recentYears(time.Now().Year(), year),
		Selected: year,
	}.Render()
	if err != nil {
		return nil, err
	}
	return page.ParseString(html)
}

func (a *app) runMulti(ctx context.Context, doc *page.Document, year, pageNumber int) (*dashboard.MultiSession, error) {
	prog := progress.NewManager(plantCount(doc), "plants", "Loading", !noProgress)
	defer prog.Finish()
	return dashboard.RunMulti(ctx, doc, a.deps(prog), a.multiOptions(year, pageNumber))
}

// recentYears lists the selector years ending at current, including selected
// when it is older.
func recentYears(current, selected int) []int {
	years := make([]int, 0, selectorYears+1)
	for y := current; y > current-selectorYears; y-- {
		years = append(years, y)
	}
	if selected > current || selected <= current-selectorYears {
		years = append(years, selected)
	}
	return years
}

func plantCount(doc *page.Document) int {
	impianti, _ := doc.Attr(page.MultiTableID, page.AttrPlants)
	nickname, _ := doc.Attr(page.MultiTableID, page.AttrNickname)
	plants, err := multiplant.ParsePlantSet(impianti, nickname)
	if err != nil {
		return 0
	}
	return len(plants)
}
