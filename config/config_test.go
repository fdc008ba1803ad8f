package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "telegram-zao-bot", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "Asia/Shanghai", cfg.App.Timezone)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 30*time.Second, cfg.Telegram.PollTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Redis.RankTTL)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoadBadTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_TIMEZONE")
}

func TestLoadProductionNeedsDatabase(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://zao:zao@db:5432/zao")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestPoolConfigOverrides(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "zao",
		Password: "secret",
		Name:     "zao_prod",
		SSLMode:  "require",
		MaxConns: 20,
	}

	cfg := db.PoolConfig()
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "zao", cfg.User)
	assert.Equal(t, "zao_prod", cfg.Database)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, int32(20), cfg.MaxConns)
}

func TestPoolConfigDefaults(t *testing.T) {
	cfg := DatabaseConfig{}.PoolConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "zao", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestCacheConfig(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380, Password: "p", DB: 2, PoolSize: 4}

	cfg := r.CacheConfig()
	assert.Equal(t, "cache.internal", cfg.Host)
	assert.Equal(t, 6380, cfg.Port)
	assert.Equal(t, "p", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 4, cfg.PoolSize)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("CFG_TEST_INT", 7))

	t.Setenv("CFG_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("CFG_TEST_DUR", time.Minute))

	t.Setenv("CFG_TEST_BOOL", "true")
	assert.True(t, getEnvBool("CFG_TEST_BOOL", false))
}
