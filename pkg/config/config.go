// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Input locations
	RawInput      string // CSV path, used when RawSource is "csv"
	RawSource     string // csv, postgres, snowflake, sqlite
	RawTable      string // table queried by SQL sources
	LabelsPath    string // name -> gender table written by the labeler
	OverridesPath string
	IdeologyPath  string

	// Output
	OutputDir     string
	PublishTarget string // none, postgres, sqlite

	// Gender lookup
	GenderSource     string // genderize, dictionary
	GenderizeURL     string
	GenderizeAPIKey  string
	GenderDictionary string
	LookupTimeout    time.Duration
	LookupDelay      time.Duration
	LookupMaxRetries int
	FemaleThreshold  float64
	MaleThreshold    float64
	MinCount         int // fewer observations than this leaves a name unknown
	LookupCacheTTL   time.Duration
	LabelRefresh     bool // re-query names already labeled by inference

	// Analysis
	ModelWorkers int // 1 fits models sequentially

	// Database connections, loaded only when a source or target needs them
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig
	SQLite    *SQLiteConfig

	// Object storage, nil when uploads are disabled
	S3 *S3Config

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RawInput:      getEnv("RAW_INPUT", "data/evaluations.csv"),
		RawSource:     strings.ToLower(getEnv("RAW_SOURCE", "csv")),
		RawTable:      getEnv("RAW_TABLE", "qguide_evaluations"),
		LabelsPath:    getEnv("LABELS_PATH", "data/name_gender.csv"),
		OverridesPath: getEnv("OVERRIDES_PATH", ""),
		IdeologyPath:  getEnv("IDEOLOGY_PATH", ""),

		OutputDir:     getEnv("OUTPUT_DIR", "out"),
		PublishTarget: strings.ToLower(getEnv("PUBLISH_TARGET", "none")),

		GenderSource:     strings.ToLower(getEnv("GENDER_SOURCE", "genderize")),
		GenderizeURL:     getEnv("GENDERIZE_URL", "https://api.genderize.io"),
		GenderizeAPIKey:  getEnv("GENDERIZE_API_KEY", ""),
		GenderDictionary: getEnv("GENDER_DICTIONARY", ""),
		LookupTimeout:    time.Duration(getEnvAsInt("LOOKUP_TIMEOUT_MS", 10000)) * time.Millisecond,
		LookupDelay:      time.Duration(getEnvAsInt("LOOKUP_DELAY_MS", 500)) * time.Millisecond,
		LookupMaxRetries: getEnvAsInt("LOOKUP_MAX_RETRIES", 3),
		FemaleThreshold:  getEnvAsFloat("FEMALE_THRESHOLD", 0.70),
		MaleThreshold:    getEnvAsFloat("MALE_THRESHOLD", 0.30),
		MinCount:         getEnvAsInt("GENDER_MIN_COUNT", 1),
		LookupCacheTTL:   getEnvAsDuration("LOOKUP_CACHE_TTL", time.Hour),
		LabelRefresh:     getEnvAsBool("LABEL_REFRESH", false),

		ModelWorkers: getEnvAsInt("MODEL_WORKERS", 1),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if cfg.RawSource == "snowflake" {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		cfg.Snowflake = snowConfig
	}

	if cfg.RawSource == "postgres" || cfg.PublishTarget == "postgres" {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		cfg.Postgres = pgConfig
	}

	if cfg.RawSource == "sqlite" || cfg.PublishTarget == "sqlite" {
		cfg.SQLite = LoadSQLiteConfig()
	}

	if bucket := getEnv("S3_BUCKET", ""); bucket != "" {
		cfg.S3 = LoadS3Config(bucket)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.RawSource {
	case "csv":
		if c.RawInput == "" {
			return errors.New("RAW_INPUT is required when RAW_SOURCE=csv")
		}
	case "postgres":
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required for RAW_SOURCE=postgres")
		}
	case "snowflake":
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required for RAW_SOURCE=snowflake")
		}
	case "sqlite":
		if c.SQLite == nil || c.SQLite.Path == "" {
			return errors.New("SQLITE_PATH is required for RAW_SOURCE=sqlite")
		}
	default:
		return fmt.Errorf("invalid RAW_SOURCE: %s (must be 'csv', 'postgres', 'snowflake' or 'sqlite')", c.RawSource)
	}

	switch c.PublishTarget {
	case "none", "":
	case "postgres":
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required for PUBLISH_TARGET=postgres")
		}
	case "sqlite":
		if c.SQLite == nil || c.SQLite.Path == "" {
			return errors.New("SQLITE_PATH is required for PUBLISH_TARGET=sqlite")
		}
	default:
		return fmt.Errorf("invalid PUBLISH_TARGET: %s (must be 'none', 'postgres' or 'sqlite')", c.PublishTarget)
	}

	switch c.GenderSource {
	case "genderize":
		if c.GenderizeURL == "" {
			return errors.New("GENDERIZE_URL is required when GENDER_SOURCE=genderize")
		}
	case "dictionary":
		if c.GenderDictionary == "" {
			return errors.New("GENDER_DICTIONARY is required when GENDER_SOURCE=dictionary")
		}
	default:
		return fmt.Errorf("invalid GENDER_SOURCE: %s (must be 'genderize' or 'dictionary')", c.GenderSource)
	}

	if c.LabelsPath == "" {
		return errors.New("LABELS_PATH is required")
	}

	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}

	if c.LookupMaxRetries < 1 {
		return errors.New("lookup max retries must be at least 1")
	}

	if c.ModelWorkers < 0 {
		return errors.New("model workers cannot be negative")
	}

	if c.LookupTimeout <= 0 {
		return errors.New("lookup timeout must be positive")
	}

	if c.MinCount < 0 {
		return errors.New("gender min count cannot be negative")
	}

	if c.MaleThreshold < 0 || c.FemaleThreshold > 1 || c.MaleThreshold >= c.FemaleThreshold {
		return fmt.Errorf("invalid gender thresholds: male %.2f must be below female %.2f within [0,1]",
			c.MaleThreshold, c.FemaleThreshold)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings such as "90s" or "1h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
