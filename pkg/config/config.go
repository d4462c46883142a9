package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
)

// DefaultConfigFile is read when present and no explicit --config path is given.
const DefaultConfigFile = "datacompare.yaml"

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"console", "json"}
)

// Config holds all configuration for datacompare.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	Log        LogConfig        `yaml:"log"`
	Matching   MatchingConfig   `yaml:"matching"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Datasource DatasourceConfig `yaml:"datasource"`
}

// LogConfig controls the zap logger built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level" env:"DATACOMPARE_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"DATACOMPARE_LOG_FORMAT" env-default:"console"`
}

// MatchingConfig holds the heuristic defaults of the matching engine.
type MatchingConfig struct {
	SampleSize          int     `yaml:"sample_size" env:"DATACOMPARE_SAMPLE_SIZE" env-default:"200"`
	MappingThreshold    float64 `yaml:"mapping_threshold" env:"DATACOMPARE_MAPPING_THRESHOLD" env-default:"0.30"`
	MinMappingCoverage  float64 `yaml:"min_mapping_coverage" env:"DATACOMPARE_MIN_MAPPING_COVERAGE" env-default:"0.50"`
	UniquenessThreshold float64 `yaml:"uniqueness_threshold" env:"DATACOMPARE_UNIQUENESS_THRESHOLD" env-default:"0.95"`
	MaxKeyColumns       int     `yaml:"max_key_columns" env:"DATACOMPARE_MAX_KEY_COLUMNS" env-default:"3"`
	MaxCombinations     int     `yaml:"max_combinations" env:"DATACOMPARE_MAX_COMBINATIONS" env-default:"10000"`
	CaseInsensitive     bool    `yaml:"case_insensitive" env:"DATACOMPARE_CASE_INSENSITIVE" env-default:"false"`
	TrimWhitespace      bool    `yaml:"trim_whitespace" env:"DATACOMPARE_TRIM_WHITESPACE" env-default:"false"`
	Shards              int     `yaml:"shards" env:"DATACOMPARE_SHARDS" env-default:"1"`
}

// IngestionConfig holds file reader settings.
type IngestionConfig struct {
	Delimiter string `yaml:"delimiter" env:"DATACOMPARE_DELIMITER" env-default:","`
	// NullToken is a CSV cell value read as absent (e.g. "NULL" or "\N"). Empty disables it.
	NullToken string `yaml:"null_token" env:"DATACOMPARE_NULL_TOKEN" env-default:""`
}

// DatasourceConfig holds SQL source settings.
type DatasourceConfig struct {
	ConnectTimeoutSeconds int   `yaml:"connect_timeout_seconds" env:"DATACOMPARE_CONNECT_TIMEOUT_SECONDS" env-default:"30"`
	PoolMaxConns          int32 `yaml:"pool_max_conns" env:"DATACOMPARE_POOL_MAX_CONNS" env-default:"4"`
	// ConnectRetries is how many times a failed connection ping is retried.
	ConnectRetries int `yaml:"connect_retries" env:"DATACOMPARE_CONNECT_RETRIES" env-default:"3"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (d DatasourceConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads DefaultConfigFile when it exists, and only the environment otherwise.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Detailed threshold checks are repeated by the engine.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got %q", validLogLevels, c.Log.Level))
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got %q", validLogFormats, c.Log.Format))
	}
	if c.Matching.SampleSize <= 0 {
		errs = append(errs, errors.New("matching.sample_size must be greater than 0"))
	}
	if c.Matching.Shards < 1 {
		errs = append(errs, errors.New("matching.shards must be at least 1"))
	}
	if len([]rune(c.Ingestion.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("ingestion.delimiter must be a single character, got %q", c.Ingestion.Delimiter))
	}
	if c.Datasource.ConnectTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("datasource.connect_timeout_seconds must be greater than 0"))
	}
	if c.Datasource.ConnectRetries < 0 {
		errs = append(errs, errors.New("datasource.connect_retries must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
