// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/rules"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Port            string
	LogLevel        logger.Level
	CacheTTL        time.Duration
	CacheMaxEntries int
	CostLimit       uint64
	ShutdownTimeout time.Duration

	// CEL parser limits; -1 removes a limit.
	ParserRecursionLimit int
	ExpressionSizeLimit  int
}

// Default returns the settings used when no environment overrides are present.
func Default() *Config {
	cache := rules.DefaultCacheConfig()
	return &Config{
		Port:            "8080",
		LogLevel:        logger.LevelInfo,
		CacheTTL:        cache.TTL,
		CacheMaxEntries: cache.MaxEntries,
		CostLimit:       rules.DefaultCostLimit,
		ShutdownTimeout: 30 * time.Second,

		ParserRecursionLimit: rules.DefaultParserRecursionLimit,
		ExpressionSizeLimit:  rules.DefaultExpressionSizeLimit,
	}
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := Default()
	var errs []error

	if v := env("PORT"); v != "" {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			errs = append(errs, fmt.Errorf("PORT: %q is not a valid port", v))
		} else {
			cfg.Port = v
		}
	}

	if v := env("LOG_LEVEL"); v != "" {
		level, err := logger.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		} else {
			cfg.LogLevel = level
		}
	}

	if v := env("RULES_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("RULES_CACHE_TTL: %q is not a non-negative duration", v))
		} else {
			cfg.CacheTTL = d
		}
	}

	if v := env("RULES_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("RULES_CACHE_MAX_ENTRIES: %q is not a non-negative integer", v))
		} else {
			cfg.CacheMaxEntries = n
		}
	}

	if v := env("RULES_COST_LIMIT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RULES_COST_LIMIT: %q is not a non-negative integer", v))
		} else {
			cfg.CostLimit = n
		}
	}

	if v := env("RULES_PARSER_RECURSION_LIMIT"); v != "" {
		if n, ok := parseLimit(v); ok {
			cfg.ParserRecursionLimit = n
		} else {
			errs = append(errs, fmt.Errorf("RULES_PARSER_RECURSION_LIMIT: %q is not a positive integer or -1", v))
		}
	}

	if v := env("RULES_EXPRESSION_SIZE_LIMIT"); v != "" {
		if n, ok := parseLimit(v); ok {
			cfg.ExpressionSizeLimit = n
		} else {
			errs = append(errs, fmt.Errorf("RULES_EXPRESSION_SIZE_LIMIT: %q is not a positive integer or -1", v))
		}
	}

	if v := env("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %q is not a positive duration", v))
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// CacheConfig returns the program cache settings.
func (c *Config) CacheConfig() rules.CacheConfig {
	return rules.CacheConfig{TTL: c.CacheTTL, MaxEntries: c.CacheMaxEntries}
}

// NewEngine builds an evaluator configured by c.
func (c *Config) NewEngine() (*rules.Engine, error) {
	return rules.NewEngine(
		rules.WithCache(rules.NewInMemoryProgramCache(c.CacheConfig())),
		rules.WithCostLimit(c.CostLimit),
		rules.WithParserLimits(c.ParserRecursionLimit, c.ExpressionSizeLimit),
	)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// parseLimit accepts a positive integer, or -1 for unlimited.
func parseLimit(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil || n == 0 || n < -1 {
		return 0, false
	}
	return n, true
}
