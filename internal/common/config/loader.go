// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the module root so the
// loader behaves the same from cmd/ and from package tests.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "match-engine"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.ProfileIndex == "" {
		cfg.Database.Elasticsearch.ProfileIndex = "profiles"
	}

	w := &cfg.Matching.Weights
	if w.Sum() == 0 {
		w.Industry = 0.25
		w.Investment = 0.20
		w.Experience = 0.15
		w.Verification = 0.15
		w.SuccessHist = 0.10
		w.Team = 0.05
		w.BusinessModel = 0.05
		w.Timeline = 0.05
	}

	s := &cfg.Matching.Scoring
	if s.MaxConcurrency == 0 {
		s.MaxConcurrency = 8
	}
	if s.DiversityHead == 0 {
		s.DiversityHead = 10
	}
	if s.DiversityEscape == 0 {
		s.DiversityEscape = 0.8
	}
	if s.RecencyFloor == 0 {
		s.RecencyFloor = 0.8
	}
	if s.RecencyHalfLife == 0 {
		s.RecencyHalfLife = 30
	}
	if s.ExcludeTier == "" {
		s.ExcludeTier = "free"
	}
	if s.ComplementBonus == 0 {
		s.ComplementBonus = 0.1
	}
	if s.SuccessCountNorm == 0 {
		s.SuccessCountNorm = 10
	}

	if cfg.Matching.Cache.AffinityTTL == 0 {
		cfg.Matching.Cache.AffinityTTL = 24 * time.Hour
	}
	if cfg.Matching.Cache.DefaultAffinity == 0 {
		cfg.Matching.Cache.DefaultAffinity = 0.5
	}
	if cfg.Matching.Swipe.PendingTTL == 0 {
		cfg.Matching.Swipe.PendingTTL = 30 * 24 * time.Hour
	}
	if cfg.Matching.Swipe.SweepInterval == 0 {
		cfg.Matching.Swipe.SweepInterval = time.Hour
	}

	if cfg.Quota.DailyRetrievals == 0 {
		cfg.Quota.DailyRetrievals = 50
	}
	if cfg.Quota.DailySwipes == 0 {
		cfg.Quota.DailySwipes = 100
	}

	if cfg.Conversations.Timeout == 0 {
		cfg.Conversations.Timeout = 5000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if err := cfg.Matching.Weights.Validate(); err != nil {
		return err
	}
	if cfg.Matching.Cache.DefaultAffinity < 0 || cfg.Matching.Cache.DefaultAffinity > 1 {
		return fmt.Errorf("default affinity must be in [0,1], got %v", cfg.Matching.Cache.DefaultAffinity)
	}
	if cfg.Matching.Scoring.MaxConcurrency < 1 {
		return fmt.Errorf("scoring max_concurrency must be >= 1")
	}
	return nil
}
