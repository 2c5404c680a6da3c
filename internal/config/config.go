// Package config handles pandoc-zotxt configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/pandoc-zotxt/internal/zotxt"
)

// Config holds the settings for a filter run.
type Config struct {
	ZotxtURL    string   `yaml:"zotxt_url,omitempty" json:"zotxt_url"`       // Base URL of the zotxt endpoint
	Timeout     string   `yaml:"timeout,omitempty" json:"timeout"`           // Per-request timeout, e.g. "10s"
	RateLimit   float64  `yaml:"rate_limit,omitempty" json:"rate_limit"`     // Requests per second; 0 means default, negative means unlimited
	Workers     int      `yaml:"workers,omitempty" json:"workers"`           // Concurrent key lookups
	KeyTypes    []string `yaml:"key_types,omitempty" json:"key_types"`       // Lookup strategies in order
	ArtifactDir string   `yaml:"artifact_dir,omitempty" json:"artifact_dir"` // Where bibliography files go; system temp if empty
	LogLevel    string   `yaml:"log_level,omitempty" json:"log_level"`       // debug, info, warn, error
	LogFile     string   `yaml:"log_file,omitempty" json:"log_file"`         // Optional rotated JSON log file

	workersErr error // malformed ZOTXT_WORKERS, cleared by a workers override
}

// Overrides holds values given on the command line. Nil fields are left alone.
type Overrides struct {
	ZotxtURL    *string
	Timeout     *string
	Workers     *int
	ArtifactDir *string
	LogLevel    *string
	LogFile     *string
}

// ApplyOverrides sets every non-nil field of o on c.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.ZotxtURL != nil {
		c.ZotxtURL = *o.ZotxtURL
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
		c.workersErr = nil
	}
	if o.ArtifactDir != nil {
		c.ArtifactDir = ExpandPath(*o.ArtifactDir)
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogFile != nil {
		c.LogFile = ExpandPath(*o.LogFile)
	}
}

// Defaults for fields left empty in the config file.
const (
	DefaultTimeout   = "10s"
	DefaultWorkers   = 4
	DefaultLogLevel  = "warn"
	DefaultRateLimit = zotxt.DefaultRateLimit
)

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ZotxtURL:  zotxt.DefaultBaseURL,
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		Workers:   DefaultWorkers,
		KeyTypes:  []string{string(zotxt.KeyTypeEasyKey), string(zotxt.KeyTypeBetterBibTeX)},
		LogLevel:  DefaultLogLevel,
	}
}

// applyDefaults fills zero-valued fields from Default.
func (c *Config) applyDefaults() {
	d := Default()
	if c.ZotxtURL == "" {
		c.ZotxtURL = d.ZotxtURL
	}
	if c.Timeout == "" {
		c.Timeout = d.Timeout
	}
	// Negative rate limits are kept and mean unlimited.
	if c.RateLimit == 0 {
		c.RateLimit = d.RateLimit
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if len(c.KeyTypes) == 0 {
		c.KeyTypes = d.KeyTypes
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.ArtifactDir = ExpandPath(c.ArtifactDir)
	c.LogFile = ExpandPath(c.LogFile)
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.workersErr != nil {
		return c.workersErr
	}
	u, err := url.Parse(c.ZotxtURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid zotxt_url: %q", c.ZotxtURL)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d (must be at least 1)", c.Workers)
	}
	if _, err := c.Strategies(); err != nil {
		return err
	}
	if err := ValidateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ArtifactDir != "" {
		info, err := os.Stat(c.ArtifactDir)
		if err != nil {
			return fmt.Errorf("artifact_dir does not exist: %s", c.ArtifactDir)
		}
		if !info.IsDir() {
			return fmt.Errorf("artifact_dir is not a directory: %s", c.ArtifactDir)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeout: %q (must be positive)", c.Timeout)
	}
	return d, nil
}

// Strategies parses KeyTypes.
func (c *Config) Strategies() ([]zotxt.KeyType, error) {
	if len(c.KeyTypes) == 0 {
		return nil, fmt.Errorf("key_types must not be empty")
	}
	out := make([]zotxt.KeyType, 0, len(c.KeyTypes))
	for _, s := range c.KeyTypes {
		kt, err := zotxt.ParseKeyType(s)
		if err != nil {
			return nil, fmt.Errorf("invalid key_types: %w", err)
		}
		out = append(out, kt)
	}
	return out, nil
}

// ValidateLogLevel checks that level is one of ValidLogLevels.
func ValidateLogLevel(level string) error {
	for _, valid := range ValidLogLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log_level: %s (valid: %v)", level, ValidLogLevels)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
