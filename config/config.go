package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Config holds pipeline configuration. The defaults are the constants the
// downstream dataset consumers expect; overriding them is mostly for tests.
type Config struct {
	BaseURL string

	OutputDir string

	// BatchSize is the row count requested per listing page.
	BatchSize int

	// MinDelay is the base spacing between outbound requests; Jitter is the
	// upper bound of the random extra delay drawn on every wait.
	MinDelay time.Duration
	Jitter   time.Duration

	APITimeout  time.Duration
	PageTimeout time.Duration

	// MaxConsecutiveErrors trips the search crawler's circuit breaker.
	MaxConsecutiveErrors int

	UserAgent string

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the production constants for the OpenRice Hong Kong
// crawl.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:              "https://www.openrice.com",
		OutputDir:            "output",
		BatchSize:            15,
		MinDelay:             15 * time.Second,
		Jitter:               5 * time.Second,
		APITimeout:           30 * time.Second,
		PageTimeout:          60 * time.Second,
		MaxConsecutiveErrors: 3,
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36 Edg/142.0.0.0",
		MetricsAddr:          "",
		Verbose:              false,
	}
}

// SearchesDir is where the search crawler writes one file per listing batch.
func (c *Config) SearchesDir() string {
	return filepath.Join(c.OutputDir, "searches")
}

// PagesDir is where the page crawler writes raw detail-page HTML.
func (c *Config) PagesDir() string {
	return filepath.Join(c.OutputDir, "pages")
}

// StatesDir is where the state extractor writes embedded client state.
func (c *Config) StatesDir() string {
	return filepath.Join(c.OutputDir, "states")
}

// PaymentsFile is the deduplicated payment reference table.
func (c *Config) PaymentsFile() string {
	return filepath.Join(c.OutputDir, "metadata", "payments.json")
}

// DatasetFile is the final normalized restaurant dataset.
func (c *Config) DatasetFile() string {
	return filepath.Join(c.OutputDir, "openrice.json")
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay cannot be negative")
	}
	if c.Jitter < 0 {
		return fmt.Errorf("jitter cannot be negative")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive")
	}
	if c.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("max consecutive errors must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
