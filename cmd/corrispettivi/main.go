// Command corrispettivi annotates the corrispettivi pages of a photovoltaic
// portal and writes the result as reports, or serves it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lamim/corrispettivi-report/internal/annotator"
	"github.com/lamim/corrispettivi-report/internal/config"
	"github.com/lamim/corrispettivi-report/internal/debug"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/portal"
	"github.com/lamim/corrispettivi-report/internal/report"
)

const defaultConfigPath = "config.toml"

var (
	configPath string
	outputDir  string
	formatFlag string
	debugMode  bool
	debugFull  bool
	verbose    bool
	noProgress bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "corrispettivi",
	Short: "Annotate and report the corrispettivi of photovoltaic plants",
	Long: `corrispettivi reads the monthly energy, fees, invoicing and payments of one
or more plants from the portal API, fills the corrispettivi tables, computes
their totals and draws the charts.

The annotated page is written as HTML with Markdown, JSON and PNG reports,
or served live with "corrispettivi serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadEnvFile(".env")

		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	flags.StringVar(&outputDir, "output", "", "Output directory (overrides config)")
	flags.StringVar(&formatFlag, "format", "all", "Report format: all, or a comma-separated list of html,md,json,png")
	flags.BoolVar(&debugMode, "debug", false, "Write request/response debug logs")
	flags.BoolVar(&debugFull, "debug-full", false, "Keep complete bodies in debug logs")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	multiCmd.Flags().IntVar(&multiYear, "year", 0, "Year to load (overrides config and page)")

	rootCmd.AddCommand(annualCmd, multiCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadEnvFile(path string) {
	if data, err := os.ReadFile(filepath.Clean(path)); err == nil {
		lines := strings.Split(string(data), "\n")
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])
				value = strings.Trim(value, `"'`)
				_ = os.Setenv(key, value)
			}
		}
	}
}

// loadConfig reads the configuration. A missing default file falls back to
// the built-in defaults so that the environment alone can drive a run.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	if outputDir != "" {
		cfg.General.OutputDir = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFormats(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" || s == "all" {
		return report.AllFormats, nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		switch f {
		case report.FormatHTML, report.FormatMarkdown, report.FormatJSON, report.FormatPNG:
			formats = append(formats, f)
		default:
			return nil, fmt.Errorf("unknown format: %s", f)
		}
	}
	if len(formats) == 0 {
		return report.AllFormats, nil
	}
	return formats, nil
}

// ensureOutputDir creates a timestamped subdirectory for results
func ensureOutputDir(baseDir string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	sessionDir := filepath.Join(baseDir, timestamp)

	if err := os.MkdirAll(sessionDir, 0750); err != nil {
		return "", err
	}

	return sessionDir, nil
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	client *portal.Client
	debug  *debug.Logger
	logger *zap.Logger
}

func newApp(mode string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}

	dl := debug.NewLogger(debugMode || debugFull, debugFull, cfg.General.OutputDir, mode)
	client, err := portal.NewClient(portal.Options{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		Timeout:           cfg.General.TimeoutDuration(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		CacheDir:          cfg.API.CacheDir,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("✓ Portal: %s\n", cfg.API.BaseURL)

	return &app{cfg: cfg, client: client, debug: dl, logger: logger}, nil
}

// alerter prints user-facing alerts to stderr.
func (a *app) alerter() annotator.Alerter {
	return annotator.AlerterFunc(func(message string) {
		a.logger.Warn("alert", zap.String("message", message))
		fmt.Fprintf(os.Stderr, "⚠ %s\n", message)
	})
}

// loadPage reads a page from a file or an http(s) URL.
func (a *app) loadPage(ctx context.Context, ref string) (*page.Document, error) {
	if config.IsRemote(ref) {
		headers := map[string]string{}
		if a.cfg.API.Token != "" {
			headers["Authorization"] = "Bearer " + a.cfg.API.Token
		}
		return page.LoadURL(ctx, ref, a.cfg.General.TimeoutDuration(), headers)
	}
	return page.LoadFile(ref)
}

func (a *app) finish() {
	if !a.debug.IsEnabled() {
		return
	}
	if err := a.debug.Finalize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write debug log: %v\n", err)
	} else {
		fmt.Printf("✓ Debug logs written to: %s/\n", a.debug.GetOutputPath())
	}
}

func writeReports(r *report.Report, dir string) error {
	formats, err := parseFormats(formatFlag)
	if err != nil {
		return err
	}
	fmt.Println("\nGenerating reports...")
	written, err := report.NewGenerator(dir, formats).WithLogger(logger).GenerateAll(r)
	for _, path := range written {
		fmt.Printf("✓ Generated %s\n", path)
	}
	return err
}
