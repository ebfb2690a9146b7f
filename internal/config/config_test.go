package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanode/climate-weather-data/internal/weather"
	"github.com/johanode/climate-weather-data/internal/weather/providers"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SMHI_BASE_URL", "HTTP_TIMEOUT", "CATALOG_REFRESH_INTERVAL",
		"CATALOG_MAX_AGE", "CATALOG_PARAMETERS", "GEOCODER_API_KEY", "LOG_LEVEL", "LOG_FORMAT", "FETCH_MAX_RETRIES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, providers.DefaultSMHIBaseURL, cfg.SMHIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 6*time.Hour, cfg.CatalogRefreshInterval)
	assert.Equal(t, 24*time.Hour, cfg.CatalogMaxAge)
	assert.Equal(t, uint64(3), cfg.FetchMaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)

	all, err := weather.GroupParameters(weather.GroupAll)
	require.NoError(t, err)
	assert.Equal(t, all, cfg.CatalogParameters)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("CATALOG_PARAMETERS", "wind, 2, PrecipPast24hAt06, WindGust")
	t.Setenv("FETCH_MAX_RETRIES", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []int{weather.WindSpeed, weather.WindGust, weather.TemperaturePast24h, weather.PrecipPast24hAt06}, cfg.CatalogParameters)
	assert.Zero(t, cfg.FetchMaxRetries)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CATALOG_MAX_AGE", "a day")
	_, err := Load()
	assert.ErrorContains(t, err, "CATALOG_MAX_AGE")

	t.Setenv("CATALOG_MAX_AGE", "")
	t.Setenv("CATALOG_PARAMETERS", "Moonlight")
	_, err = Load()
	assert.ErrorContains(t, err, "Moonlight")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn", "json")
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	assert.Equal(t, zerolog.InfoLevel, NewLogger(&buf, "loud", "console").GetLevel())
}
