package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("BODY_LIMIT_BYTES", "")
	t.Setenv("BODY_LIMIT_MB", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, "development", cfg.Server.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8*1024*1024, cfg.Server.BodyLimitBytes)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("BODY_LIMIT_BYTES", "1024")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PAYMENT_CURRENCY", "USD")
	t.Setenv("APP_BASE_URL", "https://fence.example.com/")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("JWT_SECRET", "legacy")

	cfg := Load()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 1024, cfg.Server.BodyLimitBytes)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "usd", cfg.Payments.Currency)
	assert.Equal(t, "https://fence.example.com", cfg.Payments.BaseURL)
	assert.Equal(t, "legacy", cfg.Auth.SessionSecret)
}
