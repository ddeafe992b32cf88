// internal/common/config/config.go
package config

import (
	"fmt"
	"math"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Matching      MatchingConfig     `mapstructure:"matching"`
	Quota         QuotaConfig        `mapstructure:"quota"`
	Conversations ConversationConfig `mapstructure:"conversations"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ProfileIndex string   `mapstructure:"profile_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Matching Engine Config ---

type MatchingConfig struct {
	Weights WeightsConfig `mapstructure:"weights"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Swipe   SwipeConfig   `mapstructure:"swipe"`
}

// WeightsConfig holds the eight compatibility factor weights. They must sum
// to exactly 1.0; Validate enforces this at load time.
type WeightsConfig struct {
	Industry      float64 `mapstructure:"industry"`
	Investment    float64 `mapstructure:"investment"`
	Experience    float64 `mapstructure:"experience"`
	Verification  float64 `mapstructure:"verification"`
	SuccessHist   float64 `mapstructure:"success_history"`
	Team          float64 `mapstructure:"team"`
	BusinessModel float64 `mapstructure:"business_model"`
	Timeline      float64 `mapstructure:"timeline"`
}

// Sum returns the total of all eight weights.
func (w WeightsConfig) Sum() float64 {
	return w.Industry + w.Investment + w.Experience + w.Verification +
		w.SuccessHist + w.Team + w.BusinessModel + w.Timeline
}

// Validate checks the weights sum to 1.0 within floating point tolerance.
func (w WeightsConfig) Validate() error {
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("matching weights must sum to 1.0, got %v", w.Sum())
	}
	return nil
}

type ScoringConfig struct {
	MaxConcurrency   int     `mapstructure:"max_concurrency"`
	DiversityHead    int     `mapstructure:"diversity_head"`
	DiversityEscape  float64 `mapstructure:"diversity_escape"`
	RecencyFloor     float64 `mapstructure:"recency_floor"`
	RecencyHalfLife  float64 `mapstructure:"recency_half_life_days"`
	ExcludeTier      string  `mapstructure:"exclude_tier"`
	ComplementBonus  float64 `mapstructure:"experience_complement_bonus"`
	SuccessCountNorm float64 `mapstructure:"success_count_norm"`
}

type CacheConfig struct {
	AffinityTTL     time.Duration `mapstructure:"affinity_ttl"`
	DefaultAffinity float64       `mapstructure:"default_affinity"`
}

type SwipeConfig struct {
	PendingTTL    time.Duration `mapstructure:"pending_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// --- Quota / Usage Gate Config ---

type QuotaConfig struct {
	DailyRetrievals int `mapstructure:"daily_retrievals"`
	DailySwipes     int `mapstructure:"daily_swipes"`
}

// --- External Collaborators ---

type ConversationConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for the match notifier.
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	AWS     struct {
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
