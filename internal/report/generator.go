// Package report writes the outcome of a page session as HTML, Markdown,
// JSON and PNG files.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/chart"
	"github.com/lamim/corrispettivi-report/internal/dashboard"
	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/numfmt"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// Output formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatPNG      = "png"
)

// AllFormats lists every format in generation order.
var AllFormats = []string{FormatHTML, FormatMarkdown, FormatJSON, FormatPNG}

// Kind tells annual reports from multi-plant reports.
type Kind string

// Report kinds.
const (
	KindAnnual Kind = "annual"
	KindMulti  Kind = "multi"
)

// Report is the data written by a Generator.
type Report struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Generated time.Time `json:"timestamp"`

	Nickname string                  `json:"nickname,omitempty"`
	Years    []totals.YearlyTotal    `json:"totals,omitempty"`
	Summary  *totals.Summary         `json:"summary,omitempty"`
	Failed   []int                   `json:"failed_years,omitempty"`
	Plants   []string                `json:"plants,omitempty"`
	Year     int                     `json:"anno,omitempty"`
	Months   []multiplant.MonthlySum `json:"months,omitempty"`
	Rows     [][]string              `json:"rows,omitempty"`
	Footer   []string                `json:"footer,omitempty"`
	Batches  int                     `json:"batches,omitempty"`

	Page  string       `json:"-"`
	Chart chart.Config `json:"chart"`
}

// FromAnnual collects the outcome of an annual session.
func FromAnnual(s *dashboard.AnnualSession) (*Report, error) {
	html, err := s.HTML()
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	summary := s.Summary()
	cfg := s.Chart()
	return &Report{
		Kind:      KindAnnual,
		Title:     cfg.Title.Text,
		Generated: time.Now(),
		Nickname:  s.Nickname(),
		Years:     s.Totals(),
		Summary:   &summary,
		Failed:    s.FailedYears(),
		Page:      html,
		Chart:     cfg,
	}, nil
}

// FromMulti collects the outcome of a multi-plant session.
func FromMulti(s *dashboard.MultiSession) (*Report, error) {
	html, err := s.Doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	cfg := s.Chart()
	return &Report{
		Kind:      KindMulti,
		Title:     cfg.Title.Text,
		Generated: time.Now(),
		Plants:    s.Plants,
		Year:      s.Year,
		Months:    s.Result.Months[:],
		Rows:      s.Rows,
		Footer:    s.Footer,
		Batches:   s.Result.Batches,
		Page:      html,
		Chart:     cfg,
	}, nil
}

// Generator creates report files in one directory
type Generator struct {
	outputDir string
	formats   []string
	logger    *zap.Logger
}

// NewGenerator creates a generator for formats; no formats means all.
func NewGenerator(outputDir string, formats []string) *Generator {
	if len(formats) == 0 {
		formats = AllFormats
	}
	return &Generator{outputDir: outputDir, formats: formats, logger: zap.NewNop()}
}

// WithLogger sets the logger receiving skipped chart previews.
func (g *Generator) WithLogger(logger *zap.Logger) *Generator {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Formats returns the formats generated by GenerateAll.
func (g *Generator) Formats() []string {
	return g.formats
}

// GenerateAll writes every configured format and returns the written paths.
// A chart preview that cannot be drawn is logged and skipped.
func (g *Generator) GenerateAll(r *Report) ([]string, error) {
	// #nosec G301 - report directory is meant to be readable
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, format := range g.formats {
		var (
			path string
			err  error
		)
		switch format {
		case FormatHTML:
			path, err = g.GenerateHTML(r)
		case FormatMarkdown:
			path, err = g.GenerateMarkdown(r)
		case FormatJSON:
			path, err = g.GenerateJSON(r)
		case FormatPNG:
			path, err = g.GeneratePNG(r)
			if err != nil {
				g.logger.Warn("chart preview skipped", zap.String("title", r.Title), zap.Error(err))
				continue
			}
		default:
			err = fmt.Errorf("unknown format: %s", format)
		}
		if err != nil {
			return written, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		if path != "" {
			written = append(written, path)
		}
	}
	return written, nil
}

// GenerateHTML writes the annotated page.
func (g *Generator) GenerateHTML(r *Report) (string, error) {
	return g.write("page.html", []byte(r.Page))
}

// GenerateJSON writes the report data.
func (g *Generator) GenerateJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return g.write("totals.json", data)
}

// GeneratePNG writes a static chart preview. A chart without data writes
// nothing.
func (g *Generator) GeneratePNG(r *Report) (string, error) {
	if r.Chart.Empty() {
		return "", nil
	}
	data, err := chart.PNG(r.Chart)
	if err != nil {
		return "", err
	}
	return g.write("chart.png", data)
}

// GenerateMarkdown writes a summary followed by a snapshot of the tables.
func (g *Generator) GenerateMarkdown(r *Report) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", r.Generated.Format("2006-01-02 15:04:05")))

	switch r.Kind {
	case KindMulti:
		writeMulti(&sb, r)
	default:
		writeAnnual(&sb, r)
	}

	snapshot, err := Snapshot(r.Page)
	if err != nil {
		return "", fmt.Errorf("converting page: %w", err)
	}
	if snapshot != "" {
		sb.WriteString("## Pagina\n\n")
		sb.WriteString(snapshot)
		sb.WriteString("\n")
	}

	return g.write("report.md", []byte(sb.String()))
}

// Snapshot converts the page to Markdown.
func Snapshot(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	out, err := md.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func writeAnnual(sb *strings.Builder, r *Report) {
	sb.WriteString("## Totali annuali\n\n")
	sb.WriteString("| Anno | Energia (kWh) | Corrispettivi TFO | Fatturazione TFO | Incassi |\n")
	sb.WriteString("|------|---------------|-------------------|------------------|---------|\n")
	for _, y := range r.Years {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			y.Year,
			numfmt.Integer(y.Energy),
			numfmt.Amount(y.Fees()),
			numfmt.Amount(y.Invoiced),
			numfmt.Amount(y.Collected),
		))
	}
	if r.Summary != nil {
		sb.WriteString("| **" + strings.Join(r.Summary.Cells(), "** | **") + "** |\n")
	}
	sb.WriteString("\n")

	if len(r.Failed) > 0 {
		years := make([]string, len(r.Failed))
		for i, y := range r.Failed {
			years[i] = fmt.Sprintf("%d", y)
		}
		sb.WriteString(fmt.Sprintf("**Letture non riuscite:** %s\n\n", strings.Join(years, ", ")))
	}
}

func writeMulti(sb *strings.Builder, r *Report) {
	sb.WriteString(fmt.Sprintf("**Impianti:** %s (%d batch)\n\n", strings.Join(r.Plants, ", "), r.Batches))
	sb.WriteString("## Dettaglio mensile\n\n")
	sb.WriteString("| # | Mese | Energia (kWh) | TFO | Fatturazione | Incassi |\n")
	sb.WriteString("|---|------|---------------|-----|--------------|---------|\n")
	for _, row := range r.Rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	if len(r.Footer) > 0 {
		sb.WriteString("| | **Totale** | **" + strings.Join(r.Footer, "** | **") + "** |\n")
	}
	sb.WriteString("\n")
}

func (g *Generator) write(name string, data []byte) (string, error) {
	outputPath := filepath.Join(g.outputDir, name)
	// #nosec G306 - 0640 allows owner/group to read, which is appropriate for report files
	if err := os.WriteFile(outputPath, data, 0640); err != nil {
		return "", err
	}
	return outputPath, nil
}
