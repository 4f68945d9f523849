package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BOT_RECONNECT_DELAY", "250ms")
	t.Setenv("LEDGER_BACKEND", "Postgres")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, 250*time.Millisecond, cfg.Bot.ReconnectDelay)
	assert.Equal(t, "postgres", cfg.Ledger.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Root)
	assert.False(t, cfg.MinIO.Enabled())
}

func TestValidate(t *testing.T) {
	t.Run("valid json ledger", func(t *testing.T) {
		cfg := &AppConfig{
			Bot:     BotConfig{Token: "t"},
			Storage: StorageConfig{Root: "uploads"},
			Ledger:  LedgerConfig{Backend: "json", Path: "stats.json"},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing token", func(t *testing.T) {
		cfg := &AppConfig{
			Storage: StorageConfig{Root: "uploads"},
			Ledger:  LedgerConfig{Backend: "json", Path: "stats.json"},
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "BOT_TOKEN")
	})

	t.Run("postgres ledger needs database", func(t *testing.T) {
		cfg := &AppConfig{
			Bot:     BotConfig{Token: "t"},
			Storage: StorageConfig{Root: "uploads"},
			Ledger:  LedgerConfig{Backend: "postgres"},
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DB_HOST")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &AppConfig{
			Bot:     BotConfig{Token: "t"},
			Storage: StorageConfig{Root: "uploads"},
			Ledger:  LedgerConfig{Backend: "redis"},
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{TimeZone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"

	os.Setenv(key, "3s")
	assert.Equal(t, 3*time.Second, getEnvDuration(key, time.Second))

	os.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))

	os.Unsetenv(key)
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}

func TestGetEnvFloat(t *testing.T) {
	key := "TEST_FLOAT_VAR"

	os.Setenv(key, "2.5")
	assert.Equal(t, 2.5, getEnvFloat(key, 1))

	os.Setenv(key, "x")
	assert.Equal(t, 1.0, getEnvFloat(key, 1))

	os.Unsetenv(key)
}
