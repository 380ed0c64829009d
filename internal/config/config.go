// Package config loads and validates the engine's configuration, mirroring
// the teacher's viper-based layered loading with an added JSON-schema
// pre-validation pass.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wardenscan/warden/internal/engerrs"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers           = errors.New("max_workers must be positive")
	ErrInvalidStreamingThresh   = errors.New("streaming_threshold_bytes must be positive")
	ErrInvalidThresholdOrdering = errors.New("validation thresholds must satisfy dismiss < review < accept")
	ErrInvalidRetentionAge      = errors.New("retention max_age must be non-negative")
)

const (
	defaultMaxWorkers          = 0 // 0 means "derive from runtime.NumCPU".
	defaultStreamingThreshold  = 5 << 20
	defaultMaxAnalysisDuration = 30 * time.Second
	defaultMaxValidationTime   = 500 * time.Millisecond
	defaultAcceptThreshold     = 0.8
	defaultReviewThreshold     = 0.5
	defaultDismissThreshold    = 0.2
	defaultReviewerMaxWorkload = 20
	defaultReviewSLA           = 72 * time.Hour
	defaultRetentionMaxAge     = 90 * 24 * time.Hour
	defaultRetentionMaxBytes   = 10 << 30
	defaultMinResultsToKeep    = 10
	defaultCacheFile           = ".warden/cache.lz4"
)

// Config is the root configuration for a warden run.
type Config struct {
	General    GeneralConfig            `mapstructure:"general"`
	Analyzers  map[string]map[string]any `mapstructure:"analyzers"`
	Validation ValidationConfig         `mapstructure:"validation"`
	Retention  RetentionConfig          `mapstructure:"retention"`
	Cache      CacheConfig              `mapstructure:"cache"`
	Logging    LoggingConfig            `mapstructure:"logging"`
}

// GeneralConfig holds engine-wide run settings.
type GeneralConfig struct {
	Paths                  []string      `mapstructure:"paths"`
	ExcludePatterns        []string      `mapstructure:"exclude_patterns"`
	IncludeExtensions      []string      `mapstructure:"include_extensions"`
	MaxFileSizeBytes       int64         `mapstructure:"max_file_size_bytes"`
	StreamingThresholdBytes int64        `mapstructure:"streaming_threshold_bytes"`
	MaxWorkers             int           `mapstructure:"max_workers"`
	MaxAnalysisDuration    time.Duration `mapstructure:"max_analysis_duration"`
	FollowSymlinks         bool          `mapstructure:"follow_symlinks"`
	Watch                  bool          `mapstructure:"watch"`
}

// ValidationConfig configures the multi-layer validation pipeline.
type ValidationConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	AcceptThreshold    float64       `mapstructure:"accept_threshold"`
	ReviewThreshold    float64       `mapstructure:"review_threshold"`
	DismissThreshold   float64       `mapstructure:"dismiss_threshold"`
	MaxValidationTime  time.Duration `mapstructure:"max_validation_time"`
}

// RetentionConfig configures the retention manager.
type RetentionConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ResultsDir          string        `mapstructure:"results_dir"`
	BackupDir           string        `mapstructure:"backup_dir"`
	MaxAge              time.Duration `mapstructure:"max_age"`
	MaxTotalSize        int64         `mapstructure:"max_total_size_bytes"`
	MinResultsToKeep    int           `mapstructure:"min_results_to_keep"`
	IntegrityReportPath string        `mapstructure:"integrity_report_path"`
}

// CacheConfig configures the content cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configPath (if non-empty) and the
// environment, schema-validates the raw document, unmarshals it, and
// applies semantic validation. The WARDEN_ env prefix overrides any file
// value, matching the teacher's layering order.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/warden")
	}

	v.SetEnvPrefix("WARDEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("%w: read: %w", engerrs.ErrConfigInvalid, readErr)
		}
	}

	if err := validateSchema(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("%w: %w", engerrs.ErrConfigInvalid, err)
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", engerrs.ErrConfigInvalid, err)
	}

	if err := validateSemantics(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", engerrs.ErrConfigInvalid, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.max_file_size_bytes", 10<<20)
	v.SetDefault("general.streaming_threshold_bytes", defaultStreamingThreshold)
	v.SetDefault("general.max_workers", defaultMaxWorkers)
	v.SetDefault("general.max_analysis_duration", defaultMaxAnalysisDuration)
	v.SetDefault("general.follow_symlinks", false)
	v.SetDefault("general.watch", false)

	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.accept_threshold", defaultAcceptThreshold)
	v.SetDefault("validation.review_threshold", defaultReviewThreshold)
	v.SetDefault("validation.dismiss_threshold", defaultDismissThreshold)
	v.SetDefault("validation.max_validation_time", defaultMaxValidationTime)

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.results_dir", "./results")
	v.SetDefault("retention.backup_dir", "./results/.quarantine")
	v.SetDefault("retention.max_age", defaultRetentionMaxAge)
	v.SetDefault("retention.max_total_size_bytes", defaultRetentionMaxBytes)
	v.SetDefault("retention.min_results_to_keep", defaultMinResultsToKeep)
	v.SetDefault("retention.integrity_report_path", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", defaultCacheFile)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validateSemantics(cfg *Config) error {
	if cfg.General.MaxWorkers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.General.MaxWorkers)
	}

	if cfg.General.StreamingThresholdBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStreamingThresh, cfg.General.StreamingThresholdBytes)
	}

	v := cfg.Validation
	if !(v.DismissThreshold < v.ReviewThreshold && v.ReviewThreshold < v.AcceptThreshold) {
		return fmt.Errorf("%w: dismiss=%v review=%v accept=%v",
			ErrInvalidThresholdOrdering, v.DismissThreshold, v.ReviewThreshold, v.AcceptThreshold)
	}

	if cfg.Retention.MaxAge < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRetentionAge, cfg.Retention.MaxAge)
	}

	if cfg.Retention.MinResultsToKeep < 0 {
		return fmt.Errorf("%w: min_results_to_keep=%d", ErrInvalidRetentionAge, cfg.Retention.MinResultsToKeep)
	}

	return nil
}
