package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomwatch/backend/internal/phenology"
)

// clearEnv unsets every bound variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range env {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	// keep Load from picking up a stray ./.env
	testChdir(t, t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:4000", cfg.Addr())
	assert.Equal(t, "bloomwatch-backend", cfg.Server.ServiceName)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://appeears.earthdatacloud.nasa.gov/api", cfg.AppEEARS.BaseURL)
	assert.Equal(t, 11*time.Hour, cfg.AppEEARS.TokenMaxAge)
	assert.Equal(t, 4*time.Second, cfg.AppEEARS.PollInterval)
	assert.Equal(t, 60, cfg.AppEEARS.PollMaxAttempts)
	assert.Equal(t, "MYD13Q1.061", cfg.NDVI.DefaultProduct)
	assert.Equal(t, int64(1), cfg.NDVI.MaxConcurrent)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.CredentialsConfigured())
	assert.Equal(t, phenology.DefaultThresholds(), cfg.Thresholds())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("GO_ENV", "production")
	t.Setenv("APPEEARS_API_URL", "http://localhost:9999/api/")
	t.Setenv("APPEEARS_USER", "alice")
	t.Setenv("APPEEARS_PASS", "secret")
	t.Setenv("APPEEARS_TOKEN_MAX_AGE", "30m")
	t.Setenv("APPEEARS_POLL_INTERVAL", "250ms")
	t.Setenv("APPEEARS_POLL_MAX_ATTEMPTS", "5")
	t.Setenv("NDVI_MAX_CONCURRENT", "2")
	t.Setenv("PHENOLOGY_PEAK_RATIO", "0.85")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:9999/api", cfg.AppEEARS.BaseURL)
	assert.True(t, cfg.CredentialsConfigured())
	assert.Equal(t, 30*time.Minute, cfg.AppEEARS.TokenMaxAge)
	assert.Equal(t, 250*time.Millisecond, cfg.PollPolicy().Interval)
	assert.Equal(t, 5, cfg.PollPolicy().MaxAttempts)
	assert.Equal(t, int64(2), cfg.NDVI.MaxConcurrent)
	assert.Equal(t, 0.85, cfg.Thresholds().PeakRatio)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APPEEARS_USER=bob\nAPPEEARS_PASS=hunter2\nPORT=5000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.AppEEARS.Username)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.True(t, cfg.CredentialsConfigured())
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "port", key: "PORT", val: "70000"},
		{name: "log level", key: "LOG_LEVEL", val: "chatty"},
		{name: "poll attempts", key: "APPEEARS_POLL_MAX_ATTEMPTS", val: "0"},
		{name: "gate limit", key: "NDVI_MAX_CONCURRENT", val: "0"},
		{name: "peak ratio", key: "PHENOLOGY_PEAK_RATIO", val: "1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadThresholds_IgnoresServerSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("APPEEARS_POLL_INTERVAL", "soon")
	t.Setenv("PHENOLOGY_RISING_SLOPE", "0.05")

	th, err := LoadThresholds("")
	require.NoError(t, err)
	assert.Equal(t, 0.05, th.RisingSlope)
	assert.Equal(t, phenology.DefaultThresholds().FlatSlope, th.FlatSlope)

	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadThresholds_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("PHENOLOGY_PEAK_RATIO", "1.5")

	_, err := LoadThresholds("")
	assert.Error(t, err)
}
