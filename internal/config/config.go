package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host string
	Port string

	// GeminiAPIKey authenticates against the generative model API.
	// Injected here so nothing reads ambient globals at call time.
	GeminiAPIKey string
	GeminiModel  string

	RequestTimeout   time.Duration
	ModelCallTimeout time.Duration
	MaxUploadSize    int64

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:         getEnvOrDefault("HOST", "0.0.0.0"),
		Port:         getEnvOrDefault("PORT", "8080"),
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),

		RequestTimeout:   parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ModelCallTimeout: parseDurationOrDefault("MODEL_CALL_TIMEOUT", 25*time.Second),
		MaxUploadSize:    parseIntOrDefault("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB

		RetryMaxAttempts:    int(parseIntOrDefault("RETRY_MAX_ATTEMPTS", 3)),
		RetryInitialBackoff: parseDurationOrDefault("RETRY_INITIAL_BACKOFF", 500*time.Millisecond),
		RetryMaxBackoff:     parseDurationOrDefault("RETRY_MAX_BACKOFF", 15*time.Second),

		BreakerEnabled:          parseBoolOrDefault("BREAKER_ENABLED", true),
		BreakerMinRequests:      uint32(parseIntOrDefault("BREAKER_MIN_REQUESTS", 10)),
		BreakerFailureRatio:     parseFloatOrDefault("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeout:      parseDurationOrDefault("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		BreakerHalfOpenMaxCalls: uint32(parseIntOrDefault("BREAKER_HALF_OPEN_MAX_CALLS", 2)),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", cfg.MaxUploadSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ModelCallTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, model=%s)",
			cfg.RequestTimeout, cfg.ModelCallTimeout)
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1 (got %d)", cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialBackoff <= 0 || cfg.RetryMaxBackoff < cfg.RetryInitialBackoff {
		return nil, fmt.Errorf("invalid retry backoff range (initial=%s, max=%s)",
			cfg.RetryInitialBackoff, cfg.RetryMaxBackoff)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
