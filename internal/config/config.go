package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/johanode/climate-weather-data/internal/weather"
	"github.com/johanode/climate-weather-data/internal/weather/providers"
)

type AppConfig struct {
	Port string

	// SMHI metobs API.
	SMHIBaseURL     string
	HTTPTimeout     time.Duration
	FetchMaxRetries uint64

	// Station catalog cache and its refresh job.
	CatalogRefreshInterval time.Duration
	CatalogMaxAge          time.Duration // 0 = never expires
	CatalogParameters      []int

	// GeocoderAPIKey enables place name lookups for the nearest stations.
	GeocoderAPIKey string

	LogLevel  string
	LogFormat string // json or console
}

// Load reads configuration from the environment, and from a .env file when
// there is one, with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:           getenvDefault("PORT", "8080"),
		SMHIBaseURL:    getenvDefault("SMHI_BASE_URL", providers.DefaultSMHIBaseURL),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		LogFormat:      getenvDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.CatalogRefreshInterval, err = getenvDuration("CATALOG_REFRESH_INTERVAL", "6h"); err != nil {
		return nil, err
	}
	if cfg.CatalogMaxAge, err = getenvDuration("CATALOG_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	cfg.FetchMaxRetries = uint64(max(getenvInt("FETCH_MAX_RETRIES", 3), 0))

	if cfg.CatalogParameters, err = weather.ParseParameters(getenvDefault("CATALOG_PARAMETERS", weather.GroupAll)); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_PARAMETERS: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the root logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
