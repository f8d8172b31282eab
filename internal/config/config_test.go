package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbridge/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "https://quickbooks.api.intuit.com", cfg.QBO.APIBaseURL)
	assert.Equal(t, "noop", cfg.Email.Provider)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, int64(3600), cfg.S3.PresignExpiry)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QBRIDGE_SERVER_PORT", ":9000")
	t.Setenv("QBRIDGE_QBO_PUBLIC_URL", "https://bridge.example.com/")
	t.Setenv("QBRIDGE_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	// Trailing slash is stripped so the redirect URI concatenates cleanly.
	assert.Equal(t, "https://bridge.example.com", cfg.QBO.PublicURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "7777")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Port)

	// An explicit QBRIDGE_SERVER_PORT wins over the platform PORT.
	t.Setenv("QBRIDGE_SERVER_PORT", ":8081")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.Port)
}
