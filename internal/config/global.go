package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "pandoc-zotxt"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the config file.
const (
	EnvZotxtURL    = "ZOTXT_URL"
	EnvTimeout     = "ZOTXT_TIMEOUT"
	EnvWorkers     = "ZOTXT_WORKERS"
	EnvArtifactDir = "ZOTXT_ARTIFACT_DIR"
	EnvLogLevel    = "ZOTXT_LOG_LEVEL"
	EnvLogFile     = "ZOTXT_LOG_FILE"
)

// configCache caches the loaded config.
var configCache *Config

// GlobalConfigPath returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pandoc-zotxt/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load returns the merged configuration after validating it.
// A missing file is not an error.
func Load() (*Config, error) {
	cfg, err := LoadMerged()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMerged reads the config file, applies environment overrides and
// defaults, and caches the result. It does not validate, so that callers can
// apply command-line overrides first and then call Validate.
func LoadMerged() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	configCache = cfg
	return cfg, nil
}

// LoadFile parses a YAML config file without applying defaults.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnv overrides fields from ZOTXT_* environment variables.
// A malformed ZOTXT_WORKERS is reported by Validate unless overridden.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvZotxtURL); v != "" {
		c.ZotxtURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.workersErr = fmt.Errorf("invalid %s: %q", EnvWorkers, v)
		} else {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvArtifactDir); v != "" {
		c.ArtifactDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
}

// ResetCache clears the cached config.
// Useful for testing.
func ResetCache() {
	configCache = nil
}
