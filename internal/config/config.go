package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort         = "8080"
	defaultPriceWorkers = 8
)

// Config holds application configuration sourced from environment variables
type Config struct {
	// DatabaseURL selects PostgreSQL storage; empty means in-memory stores
	DatabaseURL string
	Port        string
	// RulesCacheTTL bounds how long a rule snapshot is reused; 0 keeps it until the next edit
	RulesCacheTTL time.Duration
	// SeedDefaultRules stores the default rule set on startup when none exists
	SeedDefaultRules bool
	// PriceWorkers bounds concurrent line item pricing per quote
	PriceWorkers int
}

// Load reads the environment (after a best-effort .env load) and returns a Config.
// Variables already set in the environment win over the .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             os.Getenv("PORT"),
		SeedDefaultRules: true,
		PriceWorkers:     defaultPriceWorkers,
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if v := os.Getenv("RULES_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RULES_CACHE_TTL %q: %w", v, err)
		}
		if ttl < 0 {
			return Config{}, fmt.Errorf("invalid RULES_CACHE_TTL %q: must not be negative", v)
		}
		cfg.RulesCacheTTL = ttl
	}

	if v := os.Getenv("SEED_DEFAULT_RULES"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEED_DEFAULT_RULES %q: %w", v, err)
		}
		cfg.SeedDefaultRules = seed
	}

	if v := os.Getenv("PRICE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid PRICE_WORKERS %q: must be a positive integer", v)
		}
		cfg.PriceWorkers = n
	}

	return cfg, nil
}
