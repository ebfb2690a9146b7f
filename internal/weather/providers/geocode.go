package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"github.com/johanode/climate-weather-data/internal/weather"
)

var errNoAPIKey = fmt.Errorf("%w: api key not set", weather.ErrNoGeocoder)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
// Results are memoized per location.
type GoogleGeocoder struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]geocoder.Location
}

// NewGoogleGeocoder configures the geocoder package with apiKey.
func NewGoogleGeocoder(apiKey string, logger zerolog.Logger) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		lookup: geocoder.Geocoding,
		logger: logger.With().Str("provider", "geocoder").Logger(),
		cache:  make(map[string]geocoder.Location),
	}
}

// Locate implements weather.Geocoder.
func (g *GoogleGeocoder) Locate(ctx context.Context, loc weather.Location) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if geocoder.ApiKey == "" {
		return 0, 0, errNoAPIKey
	}

	key := loc.Key()
	g.mu.Lock()
	cached, ok := g.cache[key]
	g.mu.Unlock()
	if ok {
		return cached.Latitude, cached.Longitude, nil
	}

	res, err := g.lookup(geocoder.Address{City: loc.City, Country: loc.Country})
	if err != nil {
		g.logger.Warn().Err(err).Str("location", key).Msg("geocoding failed")
		return 0, 0, fmt.Errorf("geocode %s: %w", key, err)
	}

	g.mu.Lock()
	g.cache[key] = res
	g.mu.Unlock()
	return res.Latitude, res.Longitude, nil
}
