package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("NODE_ENV", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.Pagarme.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.RefundWindow)
	assert.Equal(t, "https://api.pagar.me/core/v5", cfg.Pagarme.BaseURL)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("NODE_ENV", "staging")
	t.Setenv("PORT", "8080")
	t.Setenv("FRONTEND_URL", "https://davori.com.br/")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PAGARME_TIMEOUT", "5s")
	t.Setenv("REFUND_WINDOW", "48h")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://davori.com.br", cfg.FrontendURL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.Pagarme.Timeout)
	assert.Equal(t, 48*time.Hour, cfg.Orders().RefundWindow)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing webhook secret",
			env:     map[string]string{"PAGARME_SECRET_KEY": "sk_live", "JWT_ACCESS_SECRET": "jwt"},
			wantErr: "PAGARME_WEBHOOK_SECRET",
		},
		{
			name:    "missing gateway key",
			env:     map[string]string{"PAGARME_WEBHOOK_SECRET": "whsec", "JWT_ACCESS_SECRET": "jwt"},
			wantErr: "PAGARME_SECRET_KEY",
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"PAGARME_WEBHOOK_SECRET": "whsec", "PAGARME_SECRET_KEY": "sk_live"},
			wantErr: "JWT_ACCESS_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "production")
			t.Setenv("PAGARME_WEBHOOK_SECRET", "")
			t.Setenv("PAGARME_SECRET_KEY", "")
			t.Setenv("JWT_ACCESS_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("complete", func(t *testing.T) {
		t.Setenv("ENV", "PRODUCTION")
		t.Setenv("PAGARME_WEBHOOK_SECRET", "whsec")
		t.Setenv("PAGARME_SECRET_KEY", "sk_live")
		t.Setenv("JWT_ACCESS_SECRET", "jwt")

		cfg, err := Load()

		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}
