// config.go - Server configuration from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig selects the box-score store.
type DatabaseConfig struct {
	Driver string // sqlite3 or postgres
	DSN    string
}

// RedisConfig is optional; an empty URL disables save slots and the stats
// cache in Redis.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// Config holds all application configuration
type Config struct {
	Addr        string
	Database    DatabaseConfig
	Redis       RedisConfig
	SaveDir     string
	RulesFile   string
	CORSOrigins []string
	AdminToken  string
	Seed        int64 // 0 means seed from the clock
	SessionTTL  time.Duration
	BotDelay    time.Duration
	Debug       bool
}

// Load reads STAT_ATTACK_* variables and validates them.
func Load() (*Config, error) {
	seed, err := getEnvInt("STAT_ATTACK_SEED", 0)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("STAT_ATTACK_CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("STAT_ATTACK_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	botDelay, err := getEnvDuration("STAT_ATTACK_BOT_DELAY", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	debug, err := getEnvBool("STAT_ATTACK_DEBUG", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr: getEnv("STAT_ATTACK_ADDR", ":8080"),
		Database: DatabaseConfig{
			Driver: getEnv("STAT_ATTACK_DB_DRIVER", "sqlite3"),
			DSN:    getEnv("STAT_ATTACK_DB_DSN", "nba_stats.db"),
		},
		Redis: RedisConfig{
			URL:      getEnv("STAT_ATTACK_REDIS_URL", ""),
			CacheTTL: cacheTTL,
		},
		SaveDir:     getEnv("STAT_ATTACK_SAVE_DIR", "saves"),
		RulesFile:   getEnv("STAT_ATTACK_RULES_FILE", ""),
		CORSOrigins: splitList(getEnv("STAT_ATTACK_CORS_ORIGINS", "*")),
		AdminToken:  getEnv("STAT_ATTACK_ADMIN_TOKEN", ""),
		Seed:        seed,
		SessionTTL:  sessionTTL,
		BotDelay:    botDelay,
		Debug:       debug,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("STAT_ATTACK_DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("STAT_ATTACK_DB_DSN is required")
	}
	if c.Addr == "" {
		return errors.New("STAT_ATTACK_ADDR is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("STAT_ATTACK_SESSION_TTL must be positive")
	}
	if c.BotDelay < 0 {
		return errors.New("STAT_ATTACK_BOT_DELAY cannot be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
