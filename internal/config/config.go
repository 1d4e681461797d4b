/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL (e.g., http://192.168.1.20:8080)
	DBBackend   DatabaseBackend
	DBDSN       string
	MediaRoot   string
	MetricsBind string

	// Catalog cache configuration
	CacheEnabled    bool
	CatalogCacheTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"SOUNDSHARE_ENV", "SNDSH_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"SOUNDSHARE_HTTP_BIND", "SNDSH_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"SOUNDSHARE_HTTP_PORT", "SNDSH_HTTP_PORT"}, 8080),
		BaseURL:     getEnvAny([]string{"SOUNDSHARE_BASE_URL", "SNDSH_BASE_URL"}, ""),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"SOUNDSHARE_DB_BACKEND", "SNDSH_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:       getEnvAny([]string{"SOUNDSHARE_DB_DSN", "SNDSH_DB_DSN"}, "soundshare.db"),
		MediaRoot:   getEnvAny([]string{"SOUNDSHARE_MEDIA_ROOT", "SNDSH_MEDIA_ROOT"}, "./media"),
		MetricsBind: getEnvAny([]string{"SOUNDSHARE_METRICS_BIND", "SNDSH_METRICS_BIND"}, "127.0.0.1:9000"),

		// Catalog cache configuration
		CacheEnabled:    getEnvBoolAny([]string{"SOUNDSHARE_CACHE_ENABLED", "SNDSH_CACHE_ENABLED"}, false),
		CatalogCacheTTL: time.Duration(getEnvIntAny([]string{"SOUNDSHARE_CATALOG_CACHE_TTL_SECONDS", "SNDSH_CATALOG_CACHE_TTL_SECONDS"}, 300)) * time.Second,
		RedisAddr:       getEnvAny([]string{"SOUNDSHARE_REDIS_ADDR", "SNDSH_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:   getEnvAny([]string{"SOUNDSHARE_REDIS_PASSWORD", "SNDSH_REDIS_PASSWORD"}, ""),
		RedisDB:         getEnvIntAny([]string{"SOUNDSHARE_REDIS_DB", "SNDSH_REDIS_DB"}, 0),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"SOUNDSHARE_TRACING_ENABLED", "SNDSH_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"SOUNDSHARE_OTLP_ENDPOINT", "SNDSH_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"SOUNDSHARE_TRACING_SAMPLE_RATE", "SNDSH_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SOUNDSHARE_DB_DSN or SNDSH_DB_DSN must be provided")
	}

	if cfg.CatalogCacheTTL <= 0 {
		return nil, fmt.Errorf("SOUNDSHARE_CATALOG_CACHE_TTL_SECONDS must be positive")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use SOUNDSHARE_ENV (or SNDSH_ENV)",
		"TRACING_ENABLED":     "use SOUNDSHARE_TRACING_ENABLED (or SNDSH_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use SOUNDSHARE_OTLP_ENDPOINT (or SNDSH_OTLP_ENDPOINT)",
		"TRACING_SAMPLE_RATE": "use SOUNDSHARE_TRACING_SAMPLE_RATE (or SNDSH_TRACING_SAMPLE_RATE)",
		"REDIS_ADDR":          "use SOUNDSHARE_REDIS_ADDR (or SNDSH_REDIS_ADDR)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
