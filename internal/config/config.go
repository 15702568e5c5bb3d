// Package config loads and validates indexlift configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
)

// Config is the root configuration for indexlift.
type Config struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Source  SourceConfig  `yaml:"source"`
	Reindex ReindexConfig `yaml:"reindex"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClusterConfig configures the embedded search cluster.
type ClusterConfig struct {
	// DataDir is the directory holding index data and alias bindings.
	// Defaults to ~/.indexlift/data.
	DataDir string `yaml:"data_dir"`
	// InMemory runs the cluster without touching disk. Used by tests
	// and one-off invocations.
	InMemory bool `yaml:"in_memory"`
}

// SourceConfig configures the persistence source records are read from.
type SourceConfig struct {
	// Path is the SQLite database file backing the source.
	Path string `yaml:"path"`
	// PageSize is the number of records fetched per source page.
	PageSize int `yaml:"page_size"`
}

// ReindexConfig configures rebuild behavior.
type ReindexConfig struct {
	// FlushThreshold is the number of pending bulk actions that
	// triggers a flush to the cluster.
	FlushThreshold int `yaml:"flush_threshold"`
	// LockDir, when set, enables cross-process rebuild locking via
	// lock files in this directory.
	LockDir string `yaml:"lock_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	base := filepath.Join(home, ".indexlift")

	return &Config{
		Cluster: ClusterConfig{
			DataDir: filepath.Join(base, "data"),
		},
		Source: SourceConfig{
			Path:     filepath.Join(base, "records.db"),
			PageSize: 50,
		},
		Reindex: ReindexConfig{
			FlushThreshold: 100,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load reads configuration from the given path, layered over defaults.
// A missing file is not an error; defaults apply. Environment variables
// override file values last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, lifterrors.New(lifterrors.ErrCodeConfigInvalid,
					fmt.Sprintf("invalid config file %s", path), err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Source.PageSize <= 0 {
		return lifterrors.New(lifterrors.ErrCodeConfigInvalid,
			"source.page_size must be positive", nil)
	}
	if c.Reindex.FlushThreshold <= 0 {
		return lifterrors.New(lifterrors.ErrCodeConfigInvalid,
			"reindex.flush_threshold must be positive", nil)
	}
	if !c.Cluster.InMemory && c.Cluster.DataDir == "" {
		return lifterrors.New(lifterrors.ErrCodeConfigInvalid,
			"cluster.data_dir is required unless in_memory is set", nil)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return lifterrors.New(lifterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown logging.level %q", c.Logging.Level), nil)
	}
	return nil
}

// applyEnvOverrides layers INDEXLIFT_* environment variables on top of
// the loaded configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INDEXLIFT_DATA_DIR"); v != "" {
		cfg.Cluster.DataDir = v
	}
	if v := os.Getenv("INDEXLIFT_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cluster.InMemory = b
		}
	}
	if v := os.Getenv("INDEXLIFT_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("INDEXLIFT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Source.PageSize = n
		}
	}
	if v := os.Getenv("INDEXLIFT_FLUSH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reindex.FlushThreshold = n
		}
	}
	if v := os.Getenv("INDEXLIFT_LOCK_DIR"); v != "" {
		cfg.Reindex.LockDir = v
	}
	if v := os.Getenv("INDEXLIFT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// DefaultPath returns the default config file location
// (~/.indexlift/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".indexlift", "config.yaml")
	}
	return filepath.Join(home, ".indexlift", "config.yaml")
}
