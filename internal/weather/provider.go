package weather

import (
	"context"
	"errors"
	"time"

	"github.com/johanode/climate-weather-data/internal/series"
)

var (
	// ErrNotFound is returned for unknown parameters and stations.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned by a Provider when the upstream has no data for
	// the requested parameter and station, e.g. an inactive station asked
	// for its latest months.
	ErrNoData = errors.New("no data available")

	// ErrNoGeocoder is returned for place lookups when no Geocoder is
	// configured.
	ErrNoGeocoder = errors.New("no geocoder configured")
)

// Provider abstracts the observation data source (the SMHI metobs API).
type Provider interface {
	Name() string

	// Stations lists the stations that observe a parameter.
	Stations(ctx context.Context, parameter int) ([]Station, error)

	// Corrected returns the quality controlled archive, which lags behind
	// real time by about three months.
	Corrected(ctx context.Context, parameter, station int) (*series.Series, error)

	// LatestMonths returns the last four months of uncorrected data.
	LatestMonths(ctx context.Context, parameter, station int) (*series.Series, error)
}

// Store caches station lists per parameter.
type Store interface {
	SaveStations(parameter int, stations []Station)
	GetStations(parameter int) ([]Station, error)
}

// Geocoder resolves a named place to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, loc Location) (lat, lon float64, err error)
}

// Clock returns the current time.
type Clock func() time.Time
