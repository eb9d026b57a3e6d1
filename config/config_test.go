package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"PAYMOB_API_KEY":        "key",
		"PAYMOB_INTEGRATION_ID": "4242",
	}))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "https://accept.paymob.com", cfg.Paymob.BaseURL)
	assert.Equal(t, int64(4242), cfg.Paymob.IntegrationID)
	assert.Equal(t, "EGP", cfg.Paymob.Currency)
	assert.Equal(t, "EG", cfg.Paymob.Country)
	assert.Equal(t, 3600, cfg.Paymob.PaymentKeyExpiration)
	assert.Equal(t, 50*time.Minute, cfg.Paymob.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Paymob.HTTPTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Database.DSN)
	assert.False(t, cfg.IsProduction())
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"PAYMOB_API_KEY":        " key ",
		"PAYMOB_INTEGRATION_ID": 7,
		"PAYMOB_CURRENCY":       "usd",
		"CORS_ALLOWED_ORIGINS":  "https://shop.example.com, https://admin.example.com,",
		"ENVIRONMENT":           "production",
		"PAYMOB_TOKEN_TTL":      "10m",
	}))
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.Paymob.APIKey)
	assert.Equal(t, "USD", cfg.Paymob.Currency)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Paymob.TokenTTL)
	assert.True(t, cfg.IsProduction())
}

func TestFromViper_RequiresSecrets(t *testing.T) {
	_, err := FromViper(newViper(map[string]any{"PAYMOB_INTEGRATION_ID": 1}))
	assert.ErrorContains(t, err, "PAYMOB_API_KEY")

	_, err = FromViper(newViper(map[string]any{"PAYMOB_API_KEY": "k"}))
	assert.ErrorContains(t, err, "PAYMOB_INTEGRATION_ID")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PAYMOB_API_KEY", "env-key")
	t.Setenv("PAYMOB_INTEGRATION_ID", "99")
	t.Setenv("PORT", "6000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Paymob.APIKey)
	assert.Equal(t, int64(99), cfg.Paymob.IntegrationID)
	assert.Equal(t, "6000", cfg.Server.Port)
}
