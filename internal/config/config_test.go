package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ENV", "LISTEN_ADDR", "DATABASE_URL", "NEON_DATABASE_URL", "STORE_BACKEND", "LOCAL_STORE_PATH",
	"GOOGLE_CLIENT_ID", "LOG_LEVEL", "EVENT_WORKERS", "EVENT_QUEUE_SIZE", "EMAIL_TEMPLATES_FILE",
	"ENHANCE_DELAY", "STAGE_POLICY", "COMPANY_NAME",
}

// clearEnv blanks every key for the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	assert.ErrorIs(t, err, ErrNoDatabaseURL)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendLocal, cfg.StoreBackend)
	assert.Equal(t, 2, cfg.EventWorkers)
	assert.Equal(t, 256, cfg.EventQueueSize)
	assert.Equal(t, 2*time.Second, cfg.EnhanceDelay)
	assert.Equal(t, "fallback", cfg.StagePolicy)
}

func TestLoadPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEON_DATABASE_URL", "postgres://neon/db")
	t.Setenv("EVENT_WORKERS", "nope")
	t.Setenv("ENHANCE_DELAY", "150ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://neon/db", cfg.DatabaseURL)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 2, cfg.EventWorkers)
	assert.Equal(t, 150*time.Millisecond, cfg.EnhanceDelay)

	t.Setenv("DATABASE_URL", "postgres://primary/db")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.DatabaseURL)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMPANY_NAME=Acme\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	// godotenv never overrides a set variable, even an empty one.
	os.Unsetenv("COMPANY_NAME")

	require.NoError(t, LoadDotenv(path, filepath.Join(t.TempDir(), "missing.env")))
	cfg, _ := Load()
	assert.Equal(t, "Acme", cfg.CompanyName)
	assert.Equal(t, "warn", cfg.LogLevel)
}
