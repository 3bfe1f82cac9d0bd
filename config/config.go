// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pistainteligente/pista/patterns"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	// Database – postgres (Supabase) or a local sqlite snapshot.
	DBDriver    string
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string
	SQLitePath  string

	// JWT secret shared with the auth provider; empty disables admin routes.
	JWTSecret string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string
	Timezone   string

	// Pattern defaults, overridable per request.
	PatternWindowDays     int
	PatternMinOccurrences int
	PatternMaxResults     int
	StoreTimeout          time.Duration

	// Result cache. RedisURL switches from the in-process LRU to Redis.
	CacheTTL  time.Duration
	CacheSize int
	RedisURL  string
	// WarmCron is a seconds-enabled cron spec; "off" disables warming.
	WarmCron string

	// SQLite snapshot read by cmd/migrate.
	SnapshotPath string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() (*Config, error) {
	v := newViper()

	// Defaults
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("SQLITE_PATH", "data/hipica.db")
	v.SetDefault("PORT", ":8080")
	v.SetDefault("TLS_DOMAINS", "pistainteligente.cl,www.pistainteligente.cl")
	v.SetDefault("TIMEZONE", "America/Santiago")
	v.SetDefault("DEBUG", false)
	v.SetDefault("PATTERN_WINDOW_DAYS", patterns.DefaultWindowDays)
	v.SetDefault("PATTERN_MIN_OCCURRENCES", patterns.DefaultMinOccurrences)
	v.SetDefault("PATTERN_MAX_RESULTS", patterns.DefaultMaxResults)
	v.SetDefault("STORE_TIMEOUT", "10s")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_SIZE", 100)
	v.SetDefault("WARM_CRON", "0 */5 * * * *")
	v.SetDefault("SQLITE_SNAPSHOT", "data/hipica.db")

	cfg := &Config{
		DBDriver:              strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		DBUser:                v.GetString("DB_USER"),
		DBPass:                v.GetString("DB_PASS"),
		DBHost:                v.GetString("DB_HOST"),
		DBPort:                v.GetString("DB_PORT"),
		DBName:                v.GetString("DB_NAME"),
		DBSSLMode:             v.GetString("DB_SSLMODE"),
		SQLitePath:            v.GetString("SQLITE_PATH"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		Debug:                 v.GetBool("DEBUG"),
		Port:                  v.GetString("PORT"),
		TLSDomains:            splitTrimmed(v.GetString("TLS_DOMAINS")),
		Timezone:              v.GetString("TIMEZONE"),
		PatternWindowDays:     v.GetInt("PATTERN_WINDOW_DAYS"),
		PatternMinOccurrences: v.GetInt("PATTERN_MIN_OCCURRENCES"),
		PatternMaxResults:     v.GetInt("PATTERN_MAX_RESULTS"),
		StoreTimeout:          v.GetDuration("STORE_TIMEOUT"),
		CacheTTL:              v.GetDuration("CACHE_TTL"),
		CacheSize:             v.GetInt("CACHE_SIZE"),
		RedisURL:              v.GetString("REDIS_URL"),
		WarmCron:              cronSpec(v.GetString("WARM_CRON")),
		SnapshotPath:          v.GetString("SQLITE_SNAPSHOT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PatternDefaults are the options used when a request leaves them unset.
func (c *Config) PatternDefaults() patterns.Options {
	return patterns.Options{
		WindowDays:     c.PatternWindowDays,
		MinOccurrences: c.PatternMinOccurrences,
		MaxResults:     c.PatternMaxResults,
	}
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" && c.DBPass == "" {
			return errors.New("config: DATABASE_URL or DB_PASS must be set")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	if err := c.PatternDefaults().WithDefaults().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: STORE_TIMEOUT must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

// cronSpec treats "off" as disabled.
func cronSpec(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "off") {
		return ""
	}
	return s
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
