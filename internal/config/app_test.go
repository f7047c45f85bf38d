package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STORAGE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("SCAN_INTERVAL_HOURS", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultStorageURL, cfg.StorageURL)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Zero(t, cfg.ScanIntervalHours)
	assert.False(t, cfg.UseBrowser)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("STORAGE_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("SCAN_INTERVAL_HOURS", "6")
	t.Setenv("TELEGRAM_CHAT_ID", "123456789")
	t.Setenv("USE_BROWSER", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.GeminiAPIKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.StorageURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 6, cfg.ScanIntervalHours)
	assert.Equal(t, int64(123456789), cfg.TelegramChatID)
	assert.True(t, cfg.UseBrowser)
}

func TestFromEnvBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvPortOutOfRange(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvNegativeInterval(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SCAN_INTERVAL_HOURS", "-1")
	_, err := FromEnv()
	assert.Error(t, err)
}
