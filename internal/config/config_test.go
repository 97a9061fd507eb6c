package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtportal/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "test-key")
	t.Setenv("UPLOAD_DIR", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
	assert.Equal(t, 1000, cfg.MaxHistoryMessages)
	assert.Equal(t, 10, cfg.LoginRatePerMinute)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "test-key")
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("MAX_HISTORY_MESSAGES", "50")
	t.Setenv("CORS_ORIGINS", "https://portal.court.test, https://staging.court.test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 50, cfg.MaxHistoryMessages)
	assert.Equal(t, []string{"https://portal.court.test", "https://staging.court.test"}, cfg.CORSOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENCRYPTION_KEY", "x")

	_, err := config.Load()
	assert.Error(t, err)
}
