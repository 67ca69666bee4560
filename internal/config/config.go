// Package config provides configuration loading and validation for the corrispettivi report tool.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables overriding the [api] section.
const (
	EnvBaseURL = "CORRISPETTIVI_BASE_URL"
	EnvToken   = "CORRISPETTIVI_TOKEN"
)

// Config represents the main configuration structure
type Config struct {
	General GeneralConfig `toml:"general"`
	API     APIConfig     `toml:"api"`
	Annual  AnnualConfig  `toml:"annual"`
	Multi   MultiConfig   `toml:"multi"`
	Server  ServerConfig  `toml:"server"`
}

// GeneralConfig contains general settings
type GeneralConfig struct {
	Timeout   string `toml:"timeout"`
	OutputDir string `toml:"output_dir"`
}

// APIConfig locates the portal serving the corrispettivi data.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	Token             string  `toml:"token,omitempty"`
	CacheDir          string  `toml:"cache_dir,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// AnnualConfig selects the annual page. Page is a file path or an http(s)
// URL; without it the page is built from Nickname and Years.
type AnnualConfig struct {
	Page     string `toml:"page,omitempty"`
	Nickname string `toml:"nickname,omitempty"`
	Years    []int  `toml:"years,omitempty"`
}

// MultiConfig selects the multi-plant page and its batching.
type MultiConfig struct {
	Page      string   `toml:"page,omitempty"`
	Plants    []string `toml:"plants,omitempty"`
	Year      int      `toml:"year,omitempty"`
	ChunkSize int      `toml:"chunk_size"`
	Pause     string   `toml:"pause"`
	PageSize  int      `toml:"page_size"`
}

// ServerConfig contains the serve command settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// TimeoutDuration parses the timeout string into a Duration
func (g GeneralConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// PauseDuration parses the pause between plant batches.
func (m MultiConfig) PauseDuration() time.Duration {
	d, err := time.ParseDuration(m.Pause)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// HasSource reports whether an annual page can be loaded or built.
func (a AnnualConfig) HasSource() bool {
	return a.Page != "" || (a.Nickname != "" && len(a.Years) > 0)
}

// HasSource reports whether a multi-plant page can be loaded or built.
func (m MultiConfig) HasSource() bool {
	return m.Page != "" || len(m.Plants) > 0
}

// IsRemote reports whether a page reference is an http(s) URL.
func IsRemote(page string) bool {
	lower := strings.ToLower(page)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// validatePath checks for path traversal attempts
func validatePath(path string) error {
	// Clean the path
	cleanPath := filepath.Clean(path)

	// Check for path traversal sequences that go above current directory
	// This prevents ../../../etc/passwd type attacks
	if strings.HasPrefix(cleanPath, "..") || strings.Contains(cleanPath, "../") {
		return fmt.Errorf("path contains invalid traversal sequence: %s", path)
	}

	return nil
}

// Load reads and parses the TOML configuration file
func Load(path string) (*Config, error) {
	// Validate path for security
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file inclusion
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills the unset fields.
func (c *Config) ApplyDefaults() {
	if c.General.Timeout == "" {
		c.General.Timeout = "30s"
	}
	if c.General.OutputDir == "" {
		c.General.OutputDir = "./results"
	}
	if c.Multi.ChunkSize <= 0 {
		c.Multi.ChunkSize = 3
	}
	if c.Multi.Pause == "" {
		c.Multi.Pause = "100ms"
	}
	if c.Multi.PageSize <= 0 {
		c.Multi.PageSize = 12
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// ApplyEnv overrides the portal location and token from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.API.Token = v
	}
}

// Validate checks the values that Load cannot default.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.General.Timeout); err != nil {
		return fmt.Errorf("invalid timeout '%s': %w", c.General.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Multi.Pause); err != nil {
		return fmt.Errorf("invalid multi.pause '%s': %w", c.Multi.Pause, err)
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid api.base_url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.base_url must be an http(s) URL: %s", c.API.BaseURL)
		}
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must be >= 0, got %g", c.API.RequestsPerSecond)
	}
	for i, year := range c.Annual.Years {
		if year <= 0 {
			return fmt.Errorf("annual.years at index %d is invalid: %d", i, year)
		}
	}
	for i, plant := range c.Multi.Plants {
		if strings.TrimSpace(plant) == "" {
			return fmt.Errorf("multi.plants at index %d is empty", i)
		}
	}
	if c.Multi.Year < 0 {
		return fmt.Errorf("multi.year is invalid: %d", c.Multi.Year)
	}
	return nil
}

// RequireAPI fails when no portal base URL is configured.
func (c *Config) RequireAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (or set %s)", EnvBaseURL)
	}
	return nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	// Validate path for security
	if err := validatePath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file creation
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
