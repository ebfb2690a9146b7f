package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanode/climate-weather-data/internal/climate"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/store"
	"github.com/johanode/climate-weather-data/internal/weather"
)

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) Stations(_ context.Context, parameter int) ([]weather.Station, error) {
	return []weather.Station{{
		ID:        188790,
		Name:      "Abisko Aut",
		Latitude:  68.3538,
		Longitude: 18.8164,
		Active:    true,
		From:      time.Date(1913, 1, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC),
	}}, nil
}

// Corrected serves June 2024 with the day of the month as value.
func (fakeProvider) Corrected(_ context.Context, parameter, _ int) (*series.Series, error) {
	switch parameter {
	case weather.TemperaturePast24h, weather.TemperatureMaxPast24h:
	case weather.TemperatureMinPast24h:
		return nil, errors.New("connection reset")
	default:
		return nil, weather.ErrNoData
	}

	rows := make([]series.Row, 30)
	for i := range rows {
		rows[i] = series.Row{Date: time.Date(2024, 6, i+1, 0, 0, 0, 0, time.UTC), Value: float64(i + 1), Quality: "G"}
	}
	return series.New("", []string{series.ColDate, series.ColValue, series.ColQuality}, period.PrecisionDay, rows), nil
}

func (fakeProvider) LatestMonths(context.Context, int, int) (*series.Series, error) {
	return nil, weather.ErrNoData
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 9, 20, 12, 0, 0, 0, time.UTC) }

	service := weather.NewService(weather.ServiceConfig{
		Provider: fakeProvider{},
		Store:    store.NewMemoryStore(time.Hour),
		Logger:   zerolog.Nop(),
		Now:      now,
	})
	engine, err := climate.NewEngine(climate.EngineConfig{Fetcher: service, Logger: zerolog.Nop(), Now: now})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestLogger(zerolog.Nop()))
	RegisterRoutes(app, service, engine)
	return app
}

func get(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestPeriodEndpoint(t *testing.T) {
	app := newTestApp(t)

	var body struct {
		Interval []string `json:"interval"`
	}
	code := get(t, app, "/api/v1/period?ts=2024-06-15&period=month&format=2006-01-02", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"2024-06-01", "2024-06-30"}, body.Interval)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/period?ts=2024-06-15&period=fortnight", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/period?period=month", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/period?ts=someday", nil))
}

func TestParametersEndpoint(t *testing.T) {
	app := newTestApp(t)

	var all []weather.Parameter
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/parameters", &all))
	assert.Len(t, all, 40)

	var wind []weather.Parameter
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/parameters?group=wind", &wind))
	assert.Equal(t, "WindSpeed", wind[0].Label)
	assert.Equal(t, "WindGust", wind[1].Label)
}

func TestStationsEndpoint(t *testing.T) {
	app := newTestApp(t)

	var body struct {
		Count    int               `json:"count"`
		Stations []weather.Station `json:"stations"`
	}
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/stations?parameter=2,WindGust", &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Abisko Aut", body.Stations[0].Name)

	var none struct {
		Count    int               `json:"count"`
		Stations []weather.Station `json:"stations"`
	}
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/stations?parameter=2&ts=1900", &none))
	assert.Zero(t, none.Count)
	assert.Empty(t, none.Stations)

	var since struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/stations?parameter=2&from=2020", &since))
	assert.Equal(t, 1, since.Count)

	var until struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/stations?parameter=2&to=2020&full_period=true", &until))
	assert.Equal(t, 1, until.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/stations", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/stations?parameter=Moonlight", nil))
	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/v1/stations?parameter=99", nil))
}

func TestNearestStationsEndpoint(t *testing.T) {
	app := newTestApp(t)

	var nearby []weather.NearbyStation
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/stations/nearest?lat=67.8558&lon=20.2253&limit=3", &nearby))
	require.Len(t, nearby, 1)
	assert.Equal(t, 188790, nearby[0].ID)
	assert.InDelta(t, 80, nearby[0].DistanceKm, 5)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/stations/nearest", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/stations/nearest?lat=123&lon=20", nil))
	assert.Equal(t, http.StatusNotImplemented, get(t, app, "/api/v1/stations/nearest?city=Kiruna&country=Sweden", nil))
}

func TestValuesEndpoint(t *testing.T) {
	app := newTestApp(t)

	var body seriesResponse
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/values?parameter=2&station=Abisko&ts=2024-06", &body))
	assert.Equal(t, 30, body.Count)
	assert.Equal(t, series.ColDate, body.Index)
	assert.Equal(t, "day", body.Resolution)
	assert.Equal(t, "Abisko Aut", body.Station)
	assert.Equal(t, "2024-06-01T00:00:00Z", body.Rows[0][series.ColDate])
	assert.Equal(t, 1.0, body.Rows[0][series.ColValue])

	var slice seriesResponse
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/values?parameter=2&station=188790&ts=2024-06-10&to=2024-06-12&column=Value", &slice))
	assert.Equal(t, 3, slice.Count)
	assert.Equal(t, "Abisko Aut", slice.Station)
	assert.Equal(t, []string{series.ColDate, series.ColValue}, slice.Columns)
	assert.NotContains(t, slice.Rows[0], series.ColQuality)

	cases := map[string]int{
		"/api/v1/values?station=188790":                                   http.StatusBadRequest,
		"/api/v1/values?parameter=2&station=188790&to=2024-06-12":         http.StatusBadRequest,
		"/api/v1/values?parameter=Temperature&station=188790":             http.StatusBadRequest,
		"/api/v1/values?parameter=2&station=188790&column=Snow":           http.StatusBadRequest,
		"/api/v1/values?parameter=2&station=188790&ts=2024&period=decade": http.StatusBadRequest,
		"/api/v1/values?parameter=5&station=188790":                       http.StatusNotFound,
		"/api/v1/values?parameter=19&station=188790":                      http.StatusBadGateway,
	}
	for target, want := range cases {
		assert.Equal(t, want, get(t, app, target, nil), target)
	}
}

func TestIndicatorsEndpoint(t *testing.T) {
	app := newTestApp(t)

	var all []climate.Indicator
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/indicators", &all))
	assert.Len(t, all, 39)

	var wind []climate.Indicator
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/indicators?category=wind", &wind))
	assert.Len(t, wind, 3)
}

func TestIndicatorEndpoint(t *testing.T) {
	app := newTestApp(t)

	var r map[string]any
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/indicators/WarmDays?station=188790&ts=2024-06&period=month", &r))
	assert.Equal(t, "WarmDays", r["indicator"])
	assert.Equal(t, 10.0, r["value"])

	var each []map[string]any
	require.Equal(t, http.StatusOK, get(t, app, "/api/v1/indicators/warmdays?station=188790&each=month&from=2024-05&to=2024-06", &each))
	require.Len(t, each, 2)
	assert.Nil(t, each[0]["value"])
	assert.Equal(t, 10.0, each[1]["value"])

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/indicators/WarmDays", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/indicators/Sunshine?station=188790", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/v1/indicators/WarmDays?station=188790&each=month", nil))
	assert.Equal(t, http.StatusBadGateway, get(t, app, "/api/v1/indicators/FrostDays?station=188790&ts=2024-06", nil))
}
