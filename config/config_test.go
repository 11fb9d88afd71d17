package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"SERVER_PORT", "DATABASE_URL", "JWT_SECRET_KEY", "JUDGE_URL", "JUDGE_API_KEY", "JUDGE_TIMEOUT",
	"JUDGE_RETRIES", "MAX_REMATCHES", "SWEEP_INTERVAL", "CORS_ALLOWED_ORIGINS",
	"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
}

// clearEnv обнуляет переменные, чтобы окружение машины не влияло на тест.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allVars {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, 3, cfg.JudgeRetries)
	assert.Equal(t, 3, cfg.MaxRematches)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JUDGE_URL", "http://judge.local/")
	t.Setenv("JUDGE_TIMEOUT", "5s")
	t.Setenv("MAX_REMATCHES", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("R2_ACCOUNT_ID", "acc")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "bucket")
	t.Setenv("R2_PUBLIC_BASE_URL", "https://cdn.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "http://judge.local", cfg.JudgeURL)
	assert.Equal(t, 5*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, 0, cfg.MaxRematches)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{}},
		{"bad port", map[string]string{"JWT_SECRET_KEY": "s", "SERVER_PORT": "http"}},
		{"port out of range", map[string]string{"JWT_SECRET_KEY": "s", "SERVER_PORT": "70000"}},
		{"bad timeout", map[string]string{"JWT_SECRET_KEY": "s", "JUDGE_TIMEOUT": "soon"}},
		{"negative interval", map[string]string{"JWT_SECRET_KEY": "s", "SWEEP_INTERVAL": "-1s"}},
		{"zero retries", map[string]string{"JWT_SECRET_KEY": "s", "JUDGE_RETRIES": "0"}},
		{"negative rematches", map[string]string{"JWT_SECRET_KEY": "s", "MAX_REMATCHES": "-2"}},
		{"partial r2", map[string]string{"JWT_SECRET_KEY": "s", "R2_BUCKET_NAME": "bucket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadPartialR2IsSentinel(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET_KEY", "s")
	t.Setenv("R2_ACCOUNT_ID", "acc")

	_, err := Load()
	assert.ErrorIs(t, err, ErrPartialR2Config)
}
