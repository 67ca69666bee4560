package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lamim/corrispettivi-report/internal/chart"
	"github.com/lamim/corrispettivi-report/internal/dashboard"
	"github.com/lamim/corrispettivi-report/internal/fetchcache"
	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

func setupAnnualReport() *Report {
	years := []totals.YearlyTotal{
		{Year: 2022, Energy: 30000, TFO: 5000, CNI: 250, Invoiced: 5100, Collected: 4900},
		{Year: 2023, Energy: 42000, TFO: 6000, CNI: 300, Invoiced: 6200, Collected: 6250.5},
	}
	summary := totals.AllYears(years)
	cfg := chart.Annual("ponte_giurino", years)
	return &Report{
		Kind:      KindAnnual,
		Title:     cfg.Title.Text,
		Generated: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Nickname:  "ponte_giurino",
		Years:     years,
		Summary:   &summary,
		Failed:    []int{2021},
		Page:      "<html><body><h1>Impianto</h1><p>Corrispettivi</p></body></html>",
		Chart:     cfg,
	}
}

func setupMultiReport() *Report {
	var months [12]multiplant.MonthlySum
	for i := range months {
		months[i] = multiplant.MonthlySum{Month: i + 1, Energy: 1000, TFO: 100}
	}
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	plants := []string{"a", "b"}
	cfg := chart.Monthly(plants, 2024, months)
	return &Report{
		Kind:      KindMulti,
		Title:     cfg.Title.Text,
		Generated: now,
		Plants:    plants,
		Year:      2024,
		Months:    months[:],
		Rows:      multiplant.Rows(months, 2024, now),
		Footer:    multiplant.Footer(months, 2024, now),
		Batches:   1,
		Chart:     cfg,
	}
}

func TestGenerateMarkdown_Annual(t *testing.T) {
	tmpDir := t.TempDir()
	gen := NewGenerator(tmpDir, nil)

	path, err := gen.GenerateMarkdown(setupAnnualReport())
	if err != nil {
		t.Fatalf("GenerateMarkdown failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	md := string(content)

	expected := []string{
		"# Andamento Annuale Ponte Giurino",
		"**Generated:** 2024-03-01 10:00:00",
		"| 2022 | 30.000 | 5.250,00 € | 5.100,00 € | 4.900,00 € |",
		"| 2023 | 42.000 | 6.300,00 € | 6.200,00 € | 6.250,50 € |",
		"| **Totale (tutti gli anni)** | **72.000** | **11.550,00** |",
		"**Letture non riuscite:** 2021",
		"## Pagina",
		"Corrispettivi",
	}
	for _, want := range expected {
		if !strings.Contains(md, want) {
			t.Errorf("markdown should contain %q", want)
		}
	}
}

func TestGenerateMarkdown_Multi(t *testing.T) {
	tmpDir := t.TempDir()
	gen := NewGenerator(tmpDir, nil)

	path, err := gen.GenerateMarkdown(setupMultiReport())
	if err != nil {
		t.Fatalf("GenerateMarkdown failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	md := string(content)

	if !strings.Contains(md, "# Andamento 2 Impianti (Somma Totale) - Anno 2024") {
		t.Error("markdown should contain the monthly title")
	}
	if !strings.Contains(md, "**Impianti:** a, b (1 batch)") {
		t.Error("markdown should list the plants")
	}
	if !strings.Contains(md, "| 1 | Gennaio | 1.000 | 100 € |") {
		t.Errorf("markdown should contain the first month row:\n%s", md)
	}
	if !strings.Contains(md, "| 4 | Aprile | — |") {
		t.Error("future months should be marked")
	}
	if !strings.Contains(md, "**3.000 kWh**") {
		t.Error("footer should sum the displayed months")
	}
	if strings.Contains(md, "## Pagina") {
		t.Error("report without a page should have no snapshot")
	}
}

func TestGenerateJSON_Structure(t *testing.T) {
	tmpDir := t.TempDir()
	gen := NewGenerator(tmpDir, nil)

	path, err := gen.GenerateJSON(setupAnnualReport())
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}
	if filepath.Base(path) != "totals.json" {
		t.Errorf("unexpected file name: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read JSON: %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"kind", "title", "timestamp", "totals", "summary", "failed_years", "chart"} {
		if _, ok := data[key]; !ok {
			t.Errorf("JSON should contain %q", key)
		}
	}
	if _, ok := data["rows"]; ok {
		t.Error("annual JSON should not contain rows")
	}

	years, ok := data["totals"].([]interface{})
	if !ok || len(years) != 2 {
		t.Fatalf("expected 2 yearly totals, got %v", data["totals"])
	}
	first := years[0].(map[string]interface{})
	if first["anno"] != 2022.0 || first["energia"] != 30000.0 {
		t.Errorf("unexpected first total: %v", first)
	}
}

func TestGeneratePNG(t *testing.T) {
	tmpDir := t.TempDir()
	gen := NewGenerator(tmpDir, nil)

	path, err := gen.GeneratePNG(setupAnnualReport())
	if err != nil {
		t.Fatalf("GeneratePNG failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read PNG: %v", err)
	}
	if !bytes.HasPrefix(content, []byte("\x89PNG")) {
		t.Error("chart.png should be a PNG image")
	}

	r := setupAnnualReport()
	r.Chart = chart.Annual("ponte_giurino", nil)
	path, err = gen.GeneratePNG(r)
	if err != nil {
		t.Fatalf("GeneratePNG without data failed: %v", err)
	}
	if path != "" {
		t.Errorf("empty chart should not be written, got %s", path)
	}
}

func TestGenerateAll_CreatesAll(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "annual")
	gen := NewGenerator(tmpDir, nil)

	written, err := gen.GenerateAll(setupAnnualReport())
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if len(written) != 4 {
		t.Errorf("expected 4 files, got %v", written)
	}

	files := []string{"page.html", "report.md", "totals.json", "chart.png"}
	for _, file := range files {
		_, err := os.Stat(filepath.Join(tmpDir, file))
		if err != nil {
			t.Errorf("%s was not created: %v", file, err)
		}
	}
}

func TestGenerateAll_SingleYear(t *testing.T) {
	tmpDir := t.TempDir()
	r := setupAnnualReport()
	r.Years = r.Years[:1]
	r.Chart = chart.Annual("ponte_giurino", r.Years)

	written, err := NewGenerator(tmpDir, nil).GenerateAll(r)
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if len(written) != 4 {
		t.Errorf("expected 4 files, got %v", written)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "chart.png")); err != nil {
		t.Errorf("chart.png was not created: %v", err)
	}
}

func TestGenerateAll_PNGFailureSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	// A directory in place of the file makes the preview unwritable.
	if err := os.Mkdir(filepath.Join(tmpDir, "chart.png"), 0750); err != nil {
		t.Fatalf("failed to create blocking directory: %v", err)
	}
	core, logs := observer.New(zap.WarnLevel)

	written, err := NewGenerator(tmpDir, nil).WithLogger(zap.New(core)).GenerateAll(setupAnnualReport())
	if err != nil {
		t.Fatalf("GenerateAll should skip the preview, got %v", err)
	}
	if len(written) != 3 {
		t.Errorf("expected 3 files, got %v", written)
	}
	if logs.FilterMessage("chart preview skipped").Len() != 1 {
		t.Errorf("expected one skipped preview warning, got %v", logs.All())
	}
}

func TestGenerateAll_SelectedFormats(t *testing.T) {
	tmpDir := t.TempDir()
	gen := NewGenerator(tmpDir, []string{FormatJSON})

	if _, err := gen.GenerateAll(setupMultiReport()); err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "totals.json")); err != nil {
		t.Errorf("totals.json was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "page.html")); err == nil {
		t.Error("page.html should not be created")
	}
}

func TestGenerateAll_UnknownFormat(t *testing.T) {
	gen := NewGenerator(t.TempDir(), []string{"pdf"})
	if _, err := gen.GenerateAll(setupAnnualReport()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestSnapshot(t *testing.T) {
	out, err := Snapshot("<h2>Riepilogo</h2><p>Totale <strong>annuo</strong></p>")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !strings.Contains(out, "Riepilogo") || !strings.Contains(out, "**annuo**") {
		t.Errorf("unexpected snapshot: %q", out)
	}

	out, err = Snapshot("   ")
	if err != nil || out != "" {
		t.Errorf("blank page should convert to nothing, got %q, %v", out, err)
	}
}

func TestFromAnnual(t *testing.T) {
	html, err := page.AnnualPage("ponte_giurino", []int{2023})
	if err != nil {
		t.Fatalf("AnnualPage failed: %v", err)
	}
	doc, err := page.ParseString(html)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	fetcher := fetchcache.FetcherFunc(func(_ context.Context, _ string) (*portal.Payload, error) {
		return portal.Failed(), nil
	})
	s, err := dashboard.RunAnnual(context.Background(), doc, dashboard.Deps{Fetcher: fetcher})
	if err != nil {
		t.Fatalf("RunAnnual failed: %v", err)
	}
	defer s.Close()

	r, err := FromAnnual(s)
	if err != nil {
		t.Fatalf("FromAnnual failed: %v", err)
	}
	if r.Kind != KindAnnual || r.Nickname != "ponte_giurino" {
		t.Errorf("unexpected report header: %+v", r)
	}
	if r.Title != "Andamento Annuale Ponte Giurino" {
		t.Errorf("unexpected title: %s", r.Title)
	}
	if len(r.Failed) != 1 || r.Failed[0] != 2023 {
		t.Errorf("expected failed year 2023, got %v", r.Failed)
	}
	if !strings.Contains(r.Page, "js-tabella-corrispettivi") {
		t.Error("page should contain the annotated tables")
	}
}
