package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ConfirmationTTL)
	assert.Equal(t, "asgr", cfg.Mongo.Database)
	assert.True(t, cfg.Mongo.Transactions)
	assert.Equal(t, "No Reply <no-reply@asgr-game.com>", cfg.SMTP.From)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "s3cret",
		"JWT_ALGORITHM":      "HS512",
		"JWT_TTL":            "5m",
		"MONGO_TRANSACTIONS": "false",
		"REDIS_ENABLED":      "false",
		"MAIL_WORKERS":       "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Mongo.Transactions)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.SMTP.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":    "s3cret",
		"JWT_ALGORITHM": "RS256",
	}))
	assert.ErrorContains(t, err, "JWT_ALGORITHM")
}
