package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "REDIS_URL", "DATABASE_URL", "ROOM_TTL_MINUTES", "LOG_LEVEL", "LOG_PRETTY",
	"ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "TURN_TIMERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	want := Default()
	want.RedisURL = "redis://localhost:6379/0"
	assert.Equal(t, want, cfg)
	assert.True(t, cfg.AllowAllOrigins())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/hotseat")
	t.Setenv("ROOM_TTL_MINUTES", "45")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("TURN_TIMERS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		Port:           "9000",
		RedisURL:       "redis://cache:6379/1",
		DatabaseURL:    "postgres://u:p@db/hotseat",
		RoomTTL:        45 * time.Minute,
		LogLevel:       "debug",
		LogPretty:      true,
		AllowedOrigins: []string{"https://a.example", "https://b.example"},
		RateLimitRPS:   2.5,
		RateLimitBurst: 4,
		TurnTimers:     false,
	}, cfg)
	assert.False(t, cfg.AllowAllOrigins())
}

func TestLoad_BadValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("ROOM_TTL_MINUTES", "-5")
	t.Setenv("LOG_PRETTY", "sometimes")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	t.Setenv("RATE_LIMIT_BURST", "0")
	t.Setenv("ALLOWED_ORIGINS", " , ")

	cfg, err := Load()
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.RoomTTL, cfg.RoomTTL)
	assert.Equal(t, def.LogPretty, cfg.LogPretty)
	assert.Equal(t, def.RateLimitRPS, cfg.RateLimitRPS)
	assert.Equal(t, def.RateLimitBurst, cfg.RateLimitBurst)
	assert.Equal(t, def.AllowedOrigins, cfg.AllowedOrigins)
}

func TestLoad_RequiresRedis(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.ErrorIs(t, err, ErrNoRedisURL)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.False(t, LoadDotEnv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_URL=redis://from-file:6379\n"), 0o600))
	require.NoError(t, os.Unsetenv("REDIS_URL"))
	assert.True(t, LoadDotEnv())
	assert.Equal(t, "redis://from-file:6379", os.Getenv("REDIS_URL"))
}
