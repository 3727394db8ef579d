package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config captures all runtime configuration. Values come from an optional
// TOML file named by POPCORN_CONFIG and are overridden by environment
// variables.
type Config struct {
	Port               string   `toml:"port"`
	Environment        string   `toml:"environment"`
	LogLevel           string   `toml:"log_level"`
	LogFormat          string   `toml:"log_format"`
	CatalogURL         string   `toml:"catalog_url"`
	CatalogAPIKey      string   `toml:"catalog_api_key"`
	CatalogTimeoutSecs int      `toml:"catalog_timeout_secs"`
	CatalogRPS         float64  `toml:"catalog_rps"`
	CatalogBurst       int      `toml:"catalog_burst"`
	MinQueryLength     int      `toml:"min_query_length"`
	RatingMax          int      `toml:"rating_max"`
	RatingCaptions     bool     `toml:"rating_captions"`
	SessionSecret      string   `toml:"session_secret"`
	SessionIdleMins    int      `toml:"session_idle_mins"`
	SessionSweepSecs   int      `toml:"session_sweep_secs"`
	CORSOrigins        []string `toml:"cors_origins"`
	ReadTimeoutSecs    int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `toml:"write_timeout_secs"`
	IdleTimeoutSecs    int      `toml:"idle_timeout_secs"`
	SettleTimeoutSecs  int      `toml:"settle_timeout_secs"`
	DBURL              string   `toml:"db_url"`
	DBMaxConns         int      `toml:"db_max_conns"`
	DBMinConns         int      `toml:"db_min_conns"`
	DBMaxIdleSecs      int      `toml:"db_max_conn_idle_secs"`
	DBMaxLifeSecs      int      `toml:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs  int      `toml:"db_conn_timeout_secs"`
	DBStatementCache   int      `toml:"db_statement_cache_capacity"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:               "8080",
		Environment:        "development",
		LogLevel:           "info",
		CatalogURL:         "https://www.omdbapi.com/",
		CatalogTimeoutSecs: 5,
		CatalogBurst:       1,
		MinQueryLength:     3,
		RatingMax:          10,
		SessionIdleMins:    120,
		SessionSweepSecs:   60,
		CORSOrigins:        []string{"*"},
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		SettleTimeoutSecs:  10,
		DBMaxConns:         10,
		DBMinConns:         0,
		DBMaxIdleSecs:      300,
		DBMaxLifeSecs:      3600,
		DBConnTimeoutSecs:  10,
		DBStatementCache:   256,
	}
}

// Load reads configuration from the optional file and environment, applying
// defaults and validation.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("POPCORN_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.CatalogURL = getEnv("CATALOG_URL", cfg.CatalogURL)
	cfg.CatalogAPIKey = getEnv("CATALOG_API_KEY", cfg.CatalogAPIKey)
	cfg.CatalogTimeoutSecs = getEnvInt("CATALOG_TIMEOUT_SECS", cfg.CatalogTimeoutSecs)
	cfg.CatalogRPS = getEnvFloat("CATALOG_RPS", cfg.CatalogRPS)
	cfg.CatalogBurst = getEnvInt("CATALOG_BURST", cfg.CatalogBurst)
	cfg.MinQueryLength = getEnvInt("MIN_QUERY_LENGTH", cfg.MinQueryLength)
	cfg.RatingMax = getEnvInt("RATING_MAX", cfg.RatingMax)
	cfg.RatingCaptions = getEnvBool("RATING_CAPTIONS", cfg.RatingCaptions)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionIdleMins = getEnvInt("SESSION_IDLE_MINS", cfg.SessionIdleMins)
	cfg.SessionSweepSecs = getEnvInt("SESSION_SWEEP_SECS", cfg.SessionSweepSecs)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.ReadTimeoutSecs = getEnvInt("SERVER_READ_TIMEOUT", cfg.ReadTimeoutSecs)
	cfg.WriteTimeoutSecs = getEnvInt("SERVER_WRITE_TIMEOUT", cfg.WriteTimeoutSecs)
	cfg.IdleTimeoutSecs = getEnvInt("SERVER_IDLE_TIMEOUT", cfg.IdleTimeoutSecs)
	cfg.SettleTimeoutSecs = getEnvInt("SETTLE_TIMEOUT_SECS", cfg.SettleTimeoutSecs)
	cfg.DBURL = getEnv("DB_URL", cfg.DBURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = getEnvInt("DB_MIN_CONNS", cfg.DBMinConns)
	cfg.DBMaxIdleSecs = getEnvInt("DB_MAX_CONN_IDLE_SECS", cfg.DBMaxIdleSecs)
	cfg.DBMaxLifeSecs = getEnvInt("DB_MAX_CONN_LIFETIME_SECS", cfg.DBMaxLifeSecs)
	cfg.DBConnTimeoutSecs = getEnvInt("DB_CONN_TIMEOUT_SECS", cfg.DBConnTimeoutSecs)
	cfg.DBStatementCache = getEnvInt("DB_STATEMENT_CACHE_CAPACITY", cfg.DBStatementCache)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CatalogAPIKey) == "" {
		return fmt.Errorf("CATALOG_API_KEY is required")
	}
	if strings.TrimSpace(c.CatalogURL) == "" {
		return fmt.Errorf("CATALOG_URL is required")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 bytes")
	}
	if c.CatalogTimeoutSecs <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if c.CatalogRPS < 0 {
		return fmt.Errorf("CATALOG_RPS must be non-negative")
	}
	if c.MinQueryLength < 1 {
		return fmt.Errorf("MIN_QUERY_LENGTH must be at least 1")
	}
	if c.RatingMax < 1 || c.RatingMax > 10 {
		return fmt.Errorf("RATING_MAX must be between 1 and 10")
	}
	if c.SettleTimeoutSecs <= 0 {
		return fmt.Errorf("SETTLE_TIMEOUT_SECS must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

// MirrorEnabled reports whether watched lists are mirrored to Postgres.
func (c Config) MirrorEnabled() bool {
	return c.DBURL != ""
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
