package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrNoRedisURL = errors.New("REDIS_URL is not set")

type Config struct {
	Port           string
	RedisURL       string
	DatabaseURL    string
	RoomTTL        time.Duration
	LogLevel       string
	LogPretty      bool
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	TurnTimers     bool
}

func Default() Config {
	return Config{
		Port:           "8080",
		RoomTTL:        30 * time.Minute,
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		TurnTimers:     true,
	}
}

// LoadDotEnv reads .env.local, falling back to .env. Neither has to exist and
// variables already set in the environment win.
func LoadDotEnv() bool {
	if err := godotenv.Load(".env.local"); err == nil {
		return true
	}
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment on top of Default. Values
// that do not parse keep their default.
func Load() (Config, error) {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if raw := os.Getenv("ROOM_TTL_MINUTES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoomTTL = time.Duration(value) * time.Minute
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := os.Getenv("LOG_PRETTY"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.LogPretty = value
		}
	}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		if origins := splitList(raw); len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.RateLimitRPS = value
		}
	}
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RateLimitBurst = value
		}
	}
	if raw := os.Getenv("TURN_TIMERS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.TurnTimers = value
		}
	}

	if cfg.RedisURL == "" {
		return cfg, ErrNoRedisURL
	}
	return cfg, nil
}

// AllowAllOrigins reports whether CORS is open to any origin.
func (c Config) AllowAllOrigins() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
