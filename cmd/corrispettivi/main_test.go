package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lamim/corrispettivi-report/internal/config"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/report"
)

func TestParseFormats_All(t *testing.T) {
	formats, err := parseFormats("all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(formats, report.AllFormats) {
		t.Errorf("expected all formats, got %v", formats)
	}
}

func TestParseFormats_List(t *testing.T) {
	formats, err := parseFormats("json, MD,,png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"json", "md", "png"}
	if !reflect.DeepEqual(formats, expected) {
		t.Errorf("expected %v, got %v", expected, formats)
	}
}

func TestParseFormats_Unknown(t *testing.T) {
	if _, err := parseFormats("html,pdf"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoadEnv_FileNotFound(t *testing.T) {
	// Should not panic or error
	loadEnvFile(filepath.Join(t.TempDir(), ".env"))
}

func TestLoadEnv_ParsesValues(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := `# portal
CORRISPETTIVI_TEST_KEY1=value1

CORRISPETTIVI_TEST_KEY2 = "value with spaces"
CORRISPETTIVI_TEST_KEY3='quoted'
not a pair`
	if err := os.WriteFile(envPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test .env: %v", err)
	}
	for _, key := range []string{"CORRISPETTIVI_TEST_KEY1", "CORRISPETTIVI_TEST_KEY2", "CORRISPETTIVI_TEST_KEY3"} {
		t.Setenv(key, "")
	}

	loadEnvFile(envPath)

	expected := map[string]string{
		"CORRISPETTIVI_TEST_KEY1": "value1",
		"CORRISPETTIVI_TEST_KEY2": "value with spaces",
		"CORRISPETTIVI_TEST_KEY3": "quoted",
	}
	for key, want := range expected {
		if got := os.Getenv(key); got != want {
			t.Errorf("expected %s=%q, got %q", key, want, got)
		}
	}
}

func TestLoadConfig_MissingDefaultUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv(config.EnvBaseURL, "https://portale.example.com")
	t.Setenv(config.EnvToken, "")
	outputDir = "out"
	defer func() { outputDir = "" }()

	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.API.BaseURL != "https://portale.example.com" {
		t.Errorf("expected base_url from env, got %s", cfg.API.BaseURL)
	}
	if cfg.General.OutputDir != "out" {
		t.Errorf("expected output dir override, got %s", cfg.General.OutputDir)
	}
	if cfg.Multi.ChunkSize != 3 {
		t.Errorf("expected default chunk size, got %d", cfg.Multi.ChunkSize)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfig_InvalidEnvURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nbase_url = \"http://localhost\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(config.EnvBaseURL, "portale")

	_, err := loadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "api.base_url") {
		t.Fatalf("expected base_url validation error, got %v", err)
	}
}

func TestRecentYears(t *testing.T) {
	if got := recentYears(2024, 2024); !reflect.DeepEqual(got, []int{2024, 2023, 2022, 2021, 2020}) {
		t.Errorf("unexpected years: %v", got)
	}
	if got := recentYears(2024, 2015); got[len(got)-1] != 2015 || len(got) != 6 {
		t.Errorf("older selected year should be appended: %v", got)
	}
	if got := recentYears(2024, 2022); len(got) != 5 {
		t.Errorf("selected year in range should not be duplicated: %v", got)
	}
}

func TestPlantCount(t *testing.T) {
	html, err := page.MultiPage{Plants: []string{"a", "b", "c"}, Selected: 2024}.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	doc, err := page.ParseString(html)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if n := plantCount(doc); n != 3 {
		t.Errorf("expected 3 plants, got %d", n)
	}

	doc, err = page.ParseString(`<table id="tabella_corrispettivi"></table>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if n := plantCount(doc); n != 0 {
		t.Errorf("expected 0 plants, got %d", n)
	}
}

func TestEnsureOutputDir(t *testing.T) {
	dir, err := ensureOutputDir(t.TempDir())
	if err != nil {
		t.Fatalf("ensureOutputDir failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", dir)
	}
}
