package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetEnv clears every variable Load reads so host settings cannot leak
// into the test, then sets the one required key.
func resetEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"PORT", "DEBUG", "DATABASE_PATH", "CACHE_TTL_SECONDS",
		"OPENAI_API_KEY", "OPENAI_MODEL", "MODEL_RATE_RPM",
		"SERPAPI_KEY", "TWITTER_BEARER_TOKEN", "ENTITIES",
		"DEFAULT_DAYS", "DEFAULT_LIMIT", "REPORT_SCHEDULE",
		"TEAMS_WEBHOOK_URL", "NOTIFICATION_EMAIL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
		"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_CONTAINER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	resetEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "data/mentions.db", cfg.DatabasePath)
	assert.Equal(t, 300, cfg.CacheTTLSeconds)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 20, cfg.ModelRateRPM)
	assert.Equal(t, []string{"Taboola"}, cfg.Entities)
	assert.Equal(t, 30, cfg.DefaultDays)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, "weekly", cfg.ReportSchedule)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "mention-archives", cfg.StorageContainer)
}

func TestLoadOverrides(t *testing.T) {
	resetEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("MODEL_RATE_RPM", "5")
	t.Setenv("ENTITIES", "Acme, Initech ,")
	t.Setenv("REPORT_SCHEDULE", "daily")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 60, cfg.CacheTTLSeconds)
	assert.Equal(t, 5, cfg.ModelRateRPM)
	assert.Equal(t, []string{"Acme", "Initech"}, cfg.Entities)
	assert.Equal(t, "daily", cfg.ReportSchedule)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing OpenAI key",
			env:     map[string]string{"OPENAI_API_KEY": ""},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "unknown schedule",
			env:     map[string]string{"REPORT_SCHEDULE": "hourly"},
			wantErr: "REPORT_SCHEDULE",
		},
		{
			name:    "zero cache TTL",
			env:     map[string]string{"CACHE_TTL_SECONDS": "0"},
			wantErr: "CACHE_TTL_SECONDS",
		},
		{
			name:    "email without SMTP",
			env:     map[string]string{"NOTIFICATION_EMAIL": "team@example.com"},
			wantErr: "SMTP configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetSliceEnvTrimsParts(t *testing.T) {
	t.Setenv("TEST_SLICE", " a , b,, c ")
	assert.Equal(t, []string{"a", "b", "c"}, getSliceEnv("TEST_SLICE", nil))

	t.Setenv("TEST_SLICE", " , ,")
	assert.Equal(t, []string{"fallback"}, getSliceEnv("TEST_SLICE", []string{"fallback"}))
}
