// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and MMO_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Vocabulary modes for categorical encoding.
const (
	VocabularyBatch   = "batch"
	VocabularyTrained = "trained"
)

// Ranking policies.
const (
	RankingCompetition = "competition"
	RankingDense       = "dense"
)

// Zero spend policies.
const (
	ZeroSpendFlag = "flag"
	ZeroSpendFail = "fail"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8501".
	Addr string `koanf:"addr"`

	// ModelPath points at the trained model artifact (YAML or JSON).
	ModelPath string `koanf:"model_path"`

	// ModelEndpoint, when set, scores through a KServe v1 endpoint instead of ModelPath.
	ModelEndpoint string `koanf:"model_endpoint"`

	// ModelName is the KServe model name used with ModelEndpoint.
	ModelName string `koanf:"model_name"`

	// ModelFeatures lists the remote model's input columns in order. When
	// empty, remote scoring reads them from the ModelPath artifact.
	ModelFeatures []string `koanf:"model_features"`

	// CacheModel keeps the loaded model between requests.
	CacheModel bool `koanf:"cache_model"`

	// WatchModel invalidates the cached model when the artifact changes on disk.
	WatchModel bool `koanf:"watch_model"`

	// Vocabulary is "batch" (indicator columns from the upload) or "trained" (from the artifact).
	Vocabulary string `koanf:"vocabulary"`

	// RankingPolicy is "competition" (1,1,3) or "dense" (1,1,2).
	RankingPolicy string `koanf:"ranking_policy"`

	// ZeroSpend is "flag" (undefined ROI, unranked) or "fail" (aggregation error).
	ZeroSpend string `koanf:"zero_spend"`

	// RecommendationGuard is an optional CEL expression over `group`.
	RecommendationGuard string `koanf:"recommendation_guard"`

	// MaxUploadBytes caps uploaded CSV size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// AssetsDir holds the precomputed images served under /assets/.
	AssetsDir string `koanf:"assets_dir"`

	// Users maps usernames to plaintext passwords or bcrypt hashes.
	Users map[string]string `koanf:"users"`

	// SessionTTLSeconds bounds session lifetime.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// SessionCacheSize bounds the number of live sessions.
	SessionCacheSize int64 `koanf:"session_cache_size"`

	// LoginRatePerMinute bounds login attempts per username.
	LoginRatePerMinute int `koanf:"login_rate_per_minute"`

	// HistoryDSN is a sqlite path for run history; empty keeps history in memory.
	HistoryDSN string `koanf:"history_dsn"`

	// HistoryLimit bounds the in-memory history.
	HistoryLimit int `koanf:"history_limit"`

	// DedupeSize bounds the identical-upload fingerprint cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8501",
		ModelPath:          "model.yaml",
		ModelName:          "mmo",
		CacheModel:         true,
		WatchModel:         true,
		Vocabulary:         VocabularyBatch,
		RankingPolicy:      RankingCompetition,
		ZeroSpend:          ZeroSpendFlag,
		MaxUploadBytes:     32 << 20,
		AssetsDir:          "assets",
		Users:              map[string]string{},
		SessionTTLSeconds:  8 * 60 * 60,
		SessionCacheSize:   10_000,
		LoginRatePerMinute: 10,
		HistoryLimit:       500,
		DedupeSize:         1_000,
	}
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ModelPath == "" && c.ModelEndpoint == "":
		return fmt.Errorf("%w: model_path or model_endpoint is required", ErrInvalidConfig)
	case c.Vocabulary != VocabularyBatch && c.Vocabulary != VocabularyTrained:
		return fmt.Errorf("%w: %w: vocabulary must be %q or %q", ErrInvalidConfig, ErrUnknownPolicy, VocabularyBatch, VocabularyTrained)
	case c.RankingPolicy != RankingCompetition && c.RankingPolicy != RankingDense:
		return fmt.Errorf("%w: %w: ranking_policy must be %q or %q", ErrInvalidConfig, ErrUnknownPolicy, RankingCompetition, RankingDense)
	case c.ZeroSpend != ZeroSpendFlag && c.ZeroSpend != ZeroSpendFail:
		return fmt.Errorf("%w: %w: zero_spend must be %q or %q", ErrInvalidConfig, ErrUnknownPolicy, ZeroSpendFlag, ZeroSpendFail)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.SessionTTLSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_seconds must be positive", ErrInvalidConfig)
	case c.Vocabulary == VocabularyTrained && c.ModelEndpoint != "":
		return fmt.Errorf("%w: trained vocabulary needs a local model artifact", ErrInvalidConfig)
	}
	return nil
}
