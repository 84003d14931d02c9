package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
}

type VisibilityConfig struct {
	// LiveFallback switches ComputeVisible from strict home-required mode to
	// an explicit single-bubble degraded result for users without a claim.
	LiveFallback bool
	// ResultTTL bounds how long a computed union is served from cache.
	ResultTTL time.Duration
}

type DecayConfig struct {
	// Interval between supply-path health decrements. One day in production;
	// configurable so staging can decay faster.
	Interval time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	Auth         AuthConfig
	Visibility   VisibilityConfig
	Decay        DecayConfig
	ServerPort   string
	MetricsPort  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "fogline"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Auth: AuthConfig{
			JWTSecret:       getEnvOrDefault("JWT_SECRET_KEY", ""),
			TokenExpiration: getEnvDurationOrDefault("JWT_TOKEN_EXPIRATION", 7*24*time.Hour),
		},
		Visibility: VisibilityConfig{
			LiveFallback: getEnvBoolOrDefault("VISIBILITY_LIVE_FALLBACK", false),
			ResultTTL:    getEnvDurationOrDefault("VISIBILITY_RESULT_TTL", 5*time.Second),
		},
		Decay: DecayConfig{
			Interval: getEnvDurationOrDefault("SUPPLY_PATH_DECAY_INTERVAL", 24*time.Hour),
		},
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9092"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
