package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CHANGE_FEED", "SYNC_RIDE_LIMIT", "SYNC_REFRESH_INTERVAL", "CORS_ALLOWED_ORIGINS", "PLACEHOLDER_MODE", "AWS_S3_BUCKET", "EMAIL_FROM", "SMTP_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "redis", cfg.Feed.Kind)
	assert.Equal(t, 100, cfg.Sync.RideLimit)
	assert.Zero(t, cfg.Sync.RefreshInterval)
	assert.False(t, cfg.Sync.Placeholder)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Storage.S3Enabled())
	assert.Equal(t, "587", cfg.Mail.Port)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHANGE_FEED", "AMQP")
	t.Setenv("SYNC_RIDE_LIMIT", "250")
	t.Setenv("SYNC_REFRESH_INTERVAL", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.mooveit.app, http://localhost:3000")
	t.Setenv("PLACEHOLDER_MODE", "true")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "rides")
	t.Setenv("EMAIL_FROM", "noreply@mooveit.app")
	t.Setenv("EMAIL_PASSWORD", "pw")
	t.Setenv("SMTP_HOST", "smtp.mooveit.app")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "amqp", cfg.Feed.Kind)
	assert.Equal(t, 250, cfg.Sync.RideLimit)
	assert.Equal(t, 45*time.Second, cfg.Sync.RefreshInterval)
	assert.Equal(t, []string{"https://admin.mooveit.app", "http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Sync.Placeholder)
	assert.Contains(t, cfg.Database.DSN(), "host=db")
	assert.Contains(t, cfg.Database.DSN(), "dbname=rides")
	assert.True(t, cfg.Mail.Enabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                  "70000",
		"CHANGE_FEED":           "kafka",
		"SYNC_REFRESH_INTERVAL": "soon",
		"SYNC_RIDE_LIMIT":       "-5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
