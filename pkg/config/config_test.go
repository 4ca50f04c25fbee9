package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("RAW_SOURCE", "")
	t.Setenv("PUBLISH_TARGET", "")
	t.Setenv("GENDER_SOURCE", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.RawSource != "csv" {
		t.Errorf("RawSource = %q, want csv", cfg.RawSource)
	}
	if cfg.PublishTarget != "none" {
		t.Errorf("PublishTarget = %q, want none", cfg.PublishTarget)
	}
	if cfg.FemaleThreshold != 0.70 || cfg.MaleThreshold != 0.30 {
		t.Errorf("thresholds = %.2f/%.2f, want 0.70/0.30", cfg.FemaleThreshold, cfg.MaleThreshold)
	}
	if cfg.LookupTimeout != 10*time.Second {
		t.Errorf("LookupTimeout = %v, want 10s", cfg.LookupTimeout)
	}
	if cfg.LookupCacheTTL != time.Hour || cfg.LabelRefresh {
		t.Errorf("cache ttl = %v, refresh = %v", cfg.LookupCacheTTL, cfg.LabelRefresh)
	}
	if cfg.ModelWorkers != 1 || cfg.MinCount != 1 {
		t.Errorf("ModelWorkers = %d, MinCount = %d, want 1 and 1", cfg.ModelWorkers, cfg.MinCount)
	}
	if cfg.Postgres != nil || cfg.Snowflake != nil || cfg.S3 != nil {
		t.Errorf("optional connections should be nil by default")
	}
}

func TestLoadConfigFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("LOOKUP_MAX_RETRIES", "many")
	t.Setenv("FEMALE_THRESHOLD", "high")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LookupMaxRetries != 3 {
		t.Errorf("LookupMaxRetries = %d, want 3", cfg.LookupMaxRetries)
	}
	if cfg.FemaleThreshold != 0.70 {
		t.Errorf("FemaleThreshold = %.2f, want 0.70", cfg.FemaleThreshold)
	}
}

func TestLoadConfigParsesBoolAndDuration(t *testing.T) {
	t.Setenv("LABEL_REFRESH", "true")
	t.Setenv("LOOKUP_CACHE_TTL", "90s")
	t.Setenv("MODEL_WORKERS", "2")
	t.Setenv("GENDER_MIN_COUNT", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.LabelRefresh || cfg.LookupCacheTTL != 90*time.Second || cfg.ModelWorkers != 2 {
		t.Errorf("refresh = %v, ttl = %v, workers = %d", cfg.LabelRefresh, cfg.LookupCacheTTL, cfg.ModelWorkers)
	}
	if cfg.MinCount != 5 {
		t.Errorf("MinCount = %d, want 5", cfg.MinCount)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			RawInput:         "in.csv",
			RawSource:        "csv",
			LabelsPath:       "labels.csv",
			OutputDir:        "out",
			PublishTarget:    "none",
			GenderSource:     "genderize",
			GenderizeURL:     "http://localhost",
			LookupTimeout:    time.Second,
			LookupMaxRetries: 1,
			FemaleThreshold:  0.7,
			MaleThreshold:    0.3,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown source", func(c *Config) { c.RawSource = "excel" }, true},
		{"postgres source without config", func(c *Config) { c.RawSource = "postgres" }, true},
		{"sqlite target", func(c *Config) {
			c.PublishTarget = "sqlite"
			c.SQLite = &SQLiteConfig{Path: "x.db"}
		}, false},
		{"dictionary without path", func(c *Config) { c.GenderSource = "dictionary" }, true},
		{"inverted thresholds", func(c *Config) { c.MaleThreshold = 0.8 }, true},
		{"zero retries", func(c *Config) { c.LookupMaxRetries = 0 }, true},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"negative workers", func(c *Config) { c.ModelWorkers = -1 }, true},
		{"negative min count", func(c *Config) { c.MinCount = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
