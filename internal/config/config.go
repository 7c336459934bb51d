package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/goi/internal/scoring"
	"github.com/rewired-gh/goi/internal/stat"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig selects the raw stat store
type StorageConfig struct {
	Driver       string `mapstructure:"driver"`
	DBPath       string `mapstructure:"db_path"`
	SnapshotPath string `mapstructure:"snapshot_path"`
}

// BucketConfig is one scoring bucket
type BucketConfig struct {
	Weight float64  `mapstructure:"weight"`
	Stats  []string `mapstructure:"stats"`
}

// PriorityWeightsConfig blends the matchup priority terms
type PriorityWeightsConfig struct {
	Season  float64 `mapstructure:"season"`
	Recent  float64 `mapstructure:"recent"`
	Context float64 `mapstructure:"context"`
}

// ScoringConfig holds every weight and threshold of the scoring pipeline
type ScoringConfig struct {
	Buckets                  map[string]BucketConfig `mapstructure:"buckets"`
	ReverseSign              []string                `mapstructure:"reverse_sign"`
	ConfidenceThresholdGames int                     `mapstructure:"confidence_threshold_games"`
	ExtremeZ                 float64                 `mapstructure:"extreme_z"`
	RecentGames              int                     `mapstructure:"recent_games"`
	XGPerGame                bool                    `mapstructure:"xg_per_game"`
	PriorityWeights          PriorityWeightsConfig   `mapstructure:"priority_weights"`
	VenueBonus               float64                 `mapstructure:"venue_bonus"`
	RestPenalty              float64                 `mapstructure:"rest_penalty"`
	MismatchBonusWeak        float64                 `mapstructure:"mismatch_bonus_weak"`
	MismatchBonusVeryWeak    float64                 `mapstructure:"mismatch_bonus_very_weak"`
	WeakThreshold            float64                 `mapstructure:"weak_threshold"`
	VeryWeakThreshold        float64                 `mapstructure:"very_weak_threshold"`
	StackThreshold           float64                 `mapstructure:"stack_threshold"`
	PPMismatch               float64                 `mapstructure:"pp_mismatch"`
	Workers                  int                     `mapstructure:"workers"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	TopK           int           `mapstructure:"top_k"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig controls the Prometheus textfile output
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// Environment variables use the GOI_ prefix with dots replaced by
// underscores, e.g. GOI_TELEGRAM_BOT_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("GOI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/goi.db")
	v.SetDefault("storage.snapshot_path", "")

	// Scoring defaults mirror scoring.DefaultConfig
	d := scoring.DefaultConfig()
	for _, b := range scoring.Buckets {
		spec := d.Buckets[b]
		v.SetDefault("scoring.buckets."+string(b)+".weight", spec.Weight)
		v.SetDefault("scoring.buckets."+string(b)+".stats", statStrings(spec.Stats))
	}
	v.SetDefault("scoring.reverse_sign", statStrings(d.ReverseSign))
	v.SetDefault("scoring.confidence_threshold_games", d.ConfidenceThresholdGames)
	v.SetDefault("scoring.extreme_z", d.ExtremeZ)
	v.SetDefault("scoring.recent_games", d.RecentGames)
	v.SetDefault("scoring.xg_per_game", d.XGPerGame)
	v.SetDefault("scoring.priority_weights.season", d.Priority.Season)
	v.SetDefault("scoring.priority_weights.recent", d.Priority.Recent)
	v.SetDefault("scoring.priority_weights.context", d.Priority.Context)
	v.SetDefault("scoring.venue_bonus", d.VenueBonus)
	v.SetDefault("scoring.rest_penalty", d.RestPenalty)
	v.SetDefault("scoring.mismatch_bonus_weak", d.MismatchBonusWeak)
	v.SetDefault("scoring.mismatch_bonus_very_weak", d.MismatchBonusVeryWeak)
	v.SetDefault("scoring.weak_threshold", d.WeakThreshold)
	v.SetDefault("scoring.very_weak_threshold", d.VeryWeakThreshold)
	v.SetDefault("scoring.stack_threshold", d.StackThreshold)
	v.SetDefault("scoring.pp_mismatch", d.PPMismatch)
	v.SetDefault("scoring.workers", 8)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.top_k", 5)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "./data/goi.prom")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func statStrings(names []stat.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// ScoringParams converts the scoring section into a validated scoring.Config.
func (c *Config) ScoringParams() (scoring.Config, error) {
	s := c.Scoring
	out := scoring.Config{
		Buckets:                  make(map[scoring.Bucket]scoring.BucketSpec, len(s.Buckets)),
		ConfidenceThresholdGames: s.ConfidenceThresholdGames,
		ExtremeZ:                 s.ExtremeZ,
		RecentGames:              s.RecentGames,
		XGPerGame:                s.XGPerGame,
		Priority: scoring.PriorityWeights{
			Season:  s.PriorityWeights.Season,
			Recent:  s.PriorityWeights.Recent,
			Context: s.PriorityWeights.Context,
		},
		VenueBonus:            s.VenueBonus,
		RestPenalty:           s.RestPenalty,
		MismatchBonusWeak:     s.MismatchBonusWeak,
		MismatchBonusVeryWeak: s.MismatchBonusVeryWeak,
		WeakThreshold:         s.WeakThreshold,
		VeryWeakThreshold:     s.VeryWeakThreshold,
		StackThreshold:        s.StackThreshold,
		PPMismatch:            s.PPMismatch,
	}

	// Sorted for a stable first error when several buckets are wrong.
	names := make([]string, 0, len(s.Buckets))
	for name := range s.Buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := s.Buckets[name]
		out.Buckets[scoring.Bucket(name)] = scoring.BucketSpec{Weight: b.Weight, Stats: toStats(b.Stats)}
	}
	out.ReverseSign = toStats(s.ReverseSign)

	valid, err := scoring.NewConfig(out)
	if err != nil {
		return scoring.Config{}, fmt.Errorf("scoring: %w", err)
	}
	return valid, nil
}

func toStats(in []string) []stat.Name {
	out := make([]stat.Name, len(in))
	for i, s := range in {
		out[i] = stat.Name(strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Storage config
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be one of: sqlite, memory")
	}

	// Validate Scoring config
	if _, err := c.ScoringParams(); err != nil {
		return err
	}
	if c.Scoring.Workers < 0 {
		return fmt.Errorf("scoring.workers must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.TopK < 1 {
		return fmt.Errorf("telegram.top_k must be at least 1")
	}
	if c.Telegram.MaxRetries < 0 {
		return fmt.Errorf("telegram.max_retries must not be negative")
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return fmt.Errorf("metrics.textfile_path is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
