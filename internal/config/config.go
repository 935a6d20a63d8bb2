package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// PagingConfig holds the per-endpoint default page sizes and the global cap.
type PagingConfig struct {
	Tasks       int
	Contractors int
	Warehouse   int
	Max         int
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL      string
	DatabaseMaxConns int32
	JWTSecret        string
	Port             string
	GeocoderBaseURL  string
	GeocoderAuth     bool
	PhoneRegion      string
	SearchRadiusKm   float64
	Paging           PagingConfig
	RateLimitSearch  RateLimitConfig
	TokenTTL         time.Duration
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		Port:            getEnv("PORT", "8080"),
		GeocoderBaseURL: strings.TrimRight(getEnv("GEOCODER_BASE_URL", "http://geocoder:9000"), "/"),
		GeocoderAuth:    parseBool(getEnv("GEOCODER_ID_TOKEN", "false")),
		PhoneRegion:     strings.ToUpper(getEnv("PHONE_REGION", "RU")),
		TokenTTL:        parseDuration(getEnv("JWT_TTL", "24h")),
	}

	var err error
	if cfg.Paging.Tasks, err = parsePositiveInt("TASKS_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.Paging.Contractors, err = parsePositiveInt("CONTRACTORS_PAGE_SIZE", 15); err != nil {
		return nil, err
	}
	if cfg.Paging.Warehouse, err = parsePositiveInt("WAREHOUSE_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.Paging.Max, err = parsePositiveInt("MAX_PAGE_SIZE", 100); err != nil {
		return nil, err
	}
	maxConns, err := parsePositiveInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseMaxConns = int32(maxConns)

	radius, err := strconv.ParseFloat(getEnv("SEARCH_RADIUS_KM", "50"), 64)
	if err != nil || radius < 0 {
		return nil, fmt.Errorf("invalid SEARCH_RADIUS_KM value: %q", os.Getenv("SEARCH_RADIUS_KM"))
	}
	cfg.SearchRadiusKm = radius

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_SEARCH", "30/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SEARCH value: %w", err)
	}
	cfg.RateLimitSearch = rl

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return n, nil
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
