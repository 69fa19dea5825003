package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "JWT_EXPIRES", "ACTIVATION_TOKEN_TTL", "CORS_ORIGINS", "MONGO_URL", "MONGO_PUBLIC_URL", "PAYMENT_CURRENCY"} {
		t.Setenv(k, "")
	}
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.DBDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURL)
	assert.Equal(t, 5*24*time.Hour, cfg.JWTExpires)
	assert.Equal(t, 5*time.Minute, cfg.ActivationTokenTTL)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "SECRET", cfg.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES", "7d")
	t.Setenv("ACTIVATION_TOKEN_TTL", "10m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MONGO_URL", "")
	t.Setenv("MONGO_PUBLIC_URL", "mongodb://public:27017")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET_KEY", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpires)
	assert.Equal(t, 10*time.Minute, cfg.ActivationTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "mongodb://public:27017", cfg.MongoURL)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, "s3cr3t", cfg.JWTSecret)
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}
