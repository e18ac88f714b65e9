// backend/internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string   `validate:"required"`
	LogMode     string   `validate:"oneof=dev prod production"`
	CORSOrigins []string `validate:"dive,required"`

	DB        DatabaseConfig
	RedisAddr string

	JWTSecret           string
	AccessTokenTTL      time.Duration `validate:"gt=0"`
	RefreshTokenTTL     time.Duration `validate:"gt=0"`
	SampleCountCacheTTL time.Duration `validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver     string `validate:"oneof=postgres sqlite"`
	Host       string `validate:"required_if=Driver postgres"`
	Port       string `validate:"required_if=Driver postgres"`
	User       string `validate:"required_if=Driver postgres"`
	Password   string
	Name       string `validate:"required_if=Driver postgres"`
	SSLMode    string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	SQLitePath string `validate:"required_if=Driver sqlite"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env is not an error; it is reported through warn.
func Load(warn func(msg string, kv ...interface{})) (*Config, error) {
	if err := godotenv.Load(); err != nil && warn != nil {
		warn(".env file not found, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function so tests can inject values.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	accessTTL, err := time.ParseDuration(get("ACCESS_TOKEN_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	refreshTTL, err := time.ParseDuration(get("REFRESH_TOKEN_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	cacheTTL, err := time.ParseDuration(get("SAMPLE_COUNT_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("SAMPLE_COUNT_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		HTTPAddr:    get("HTTP_ADDR", ":8080"),
		LogMode:     get("LOG_MODE", "dev"),
		CORSOrigins: splitList(get("CORS_ORIGINS", "http://localhost:3000")),
		DB: DatabaseConfig{
			Driver:     get("DB_DRIVER", "postgres"),
			Host:       get("DB_HOST", ""),
			Port:       get("DB_PORT", "5432"),
			User:       get("DB_USER", ""),
			Password:   getenv("DB_PASSWORD"),
			Name:       get("DB_NAME", ""),
			SSLMode:    get("DB_SSLMODE", "disable"),
			SQLitePath: get("SQLITE_PATH", "lesson-system.db"),
		},
		RedisAddr:           get("REDIS_ADDR", ""),
		JWTSecret:           getenv("JWT_SECRET"),
		AccessTokenTTL:      accessTTL,
		RefreshTokenTTL:     refreshTTL,
		SampleCountCacheTTL: cacheTTL,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
