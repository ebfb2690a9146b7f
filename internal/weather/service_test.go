package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanode/climate-weather-data/internal/match"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/store"
	"github.com/johanode/climate-weather-data/internal/weather"
)

// mockProvider serves canned series and station lists.
type mockProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	stations  map[int][]weather.Station
	corrected *series.Series
	latest    *series.Series
	latestErr error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		calls:    make(map[string]int),
		stations: make(map[int][]weather.Station),
	}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockProvider) Stations(_ context.Context, parameter int) ([]weather.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["stations"]++
	return m.stations[parameter], nil
}

func (m *mockProvider) Corrected(_ context.Context, _, _ int) (*series.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["corrected"]++
	if m.corrected == nil {
		return nil, weather.ErrNoData
	}
	return m.corrected, nil
}

func (m *mockProvider) LatestMonths(_ context.Context, _, _ int) (*series.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["latest"]++
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	if m.latest == nil {
		return nil, weather.ErrNoData
	}
	return m.latest, nil
}

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func dailySeries(from, to time.Time, value float64) *series.Series {
	var rows []series.Row
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		rows = append(rows, series.Row{From: d.Add(-24 * time.Hour), To: d, Date: d, Value: value, Quality: "G"})
	}
	cols := []string{series.ColFrom, series.ColTo, series.ColDate, series.ColValue, series.ColQuality}
	return series.New("daily", cols, period.PrecisionDay, rows)
}

func hourlySeries(from time.Time, hours int) *series.Series {
	rows := make([]series.Row, hours)
	for i := range rows {
		rows[i] = series.Row{DateUTC: from.Add(time.Duration(i) * time.Hour), Value: float64(i), Quality: "Y"}
	}
	return series.New("hourly", []string{series.ColDateUTC, series.ColValue, series.ColQuality}, period.PrecisionInstant, rows)
}

func newService(p *mockProvider, now time.Time) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider: p,
		Store:    store.NewMemoryStore(time.Hour),
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	})
}

func TestValues_StitchesHistoricalAndRecent(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2024, 1, 1), day(2024, 6, 30), 1)
	p.latest = dailySeries(day(2024, 5, 1), day(2024, 9, 19), 2)
	svc := newService(p, day(2024, 9, 20))

	got, err := svc.Values(context.Background(), weather.ValuesRequest{
		Parameter: "TemperaturePast24h",
		Station:   "188790",
		At:        "2024-06-10",
		Period:    "month",
		Column:    series.ColValue,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, p.count("corrected"))
	assert.Equal(t, 1, p.count("latest"))
	assert.Equal(t, "TemperaturePast24h", got.Name)
	require.Equal(t, 30, got.Len())
	for _, v := range got.Values() {
		assert.Equal(t, 1.0, v)
	}
}

func TestValues_SourceSelection(t *testing.T) {
	now := day(2024, 9, 20)

	tests := []struct {
		name          string
		req           weather.ValuesRequest
		wantCorrected int
		wantLatest    int
	}{
		{
			name:          "old window uses archive only",
			req:           weather.ValuesRequest{At: "2019", Period: "year"},
			wantCorrected: 1,
		},
		{
			name:       "last week uses latest months only",
			req:        weather.ValuesRequest{At: "2024-09-18", Period: "-7days"},
			wantLatest: 1,
		},
		{
			name:          "no timestamp uses both",
			req:           weather.ValuesRequest{},
			wantCorrected: 1,
			wantLatest:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider()
			p.corrected = dailySeries(day(2019, 1, 1), day(2024, 6, 30), 1)
			p.latest = dailySeries(day(2024, 5, 20), day(2024, 9, 19), 2)
			svc := newService(p, now)

			tt.req.Parameter = "2"
			tt.req.Station = "188790"
			_, err := svc.Values(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCorrected, p.count("corrected"))
			assert.Equal(t, tt.wantLatest, p.count("latest"))
		})
	}
}

func TestValues_WithoutTimestampReturnsEverything(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2024, 1, 1), day(2024, 6, 30), 1)
	p.latest = dailySeries(day(2024, 6, 1), day(2024, 9, 19), 2)
	svc := newService(p, day(2024, 9, 20))

	got, err := svc.Values(context.Background(), weather.ValuesRequest{Parameter: "2", Station: "1"})
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), got.Key(0))
	assert.Equal(t, day(2024, 9, 19), got.Key(got.Len()-1))
}

func TestValues_InactiveStationFallsBackToArchive(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2024, 1, 1), day(2024, 6, 30), 1)
	svc := newService(p, day(2024, 9, 20))

	got, err := svc.Values(context.Background(), weather.ValuesRequest{
		Parameter: "2", Station: "1", At: "2024-06", Period: "",
	})
	require.NoError(t, err)
	assert.Equal(t, 30, got.Len())
	assert.Equal(t, 1, p.count("latest"))
}

func TestValues_NoDataAnywhere(t *testing.T) {
	svc := newService(newMockProvider(), day(2024, 9, 20))
	_, err := svc.Values(context.Background(), weather.ValuesRequest{Parameter: "2", Station: "1"})
	assert.ErrorIs(t, err, weather.ErrNoData)
}

func TestValues_UpstreamFailure(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2024, 1, 1), day(2024, 6, 30), 1)
	p.latestErr = errors.New("connection reset")
	svc := newService(p, day(2024, 9, 20))

	_, err := svc.Values(context.Background(), weather.ValuesRequest{Parameter: "2", Station: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestValues_HourlyUsesRangeMode(t *testing.T) {
	p := newMockProvider()
	p.corrected = hourlySeries(day(2024, 4, 1), 72)
	svc := newService(p, day(2024, 12, 1))

	got, err := svc.Values(context.Background(), weather.ValuesRequest{
		Parameter: "TemperaturePast1h", Station: "1", At: "2024-04-02", Period: "day",
	})
	require.NoError(t, err)
	require.Equal(t, 24, got.Len())
	assert.Equal(t, series.ColDateUTC, got.Index)
	assert.Equal(t, 24.0, got.Values()[0])
}

func TestValues_Errors(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2024, 1, 1), day(2024, 6, 30), 1)
	svc := newService(p, day(2024, 12, 1))
	ctx := context.Background()

	_, err := svc.Values(ctx, weather.ValuesRequest{Parameter: "2", Station: "1", At: "2024-01-01", Period: "fortnight"})
	assert.ErrorIs(t, err, period.ErrInvalidPeriod)

	_, err = svc.Values(ctx, weather.ValuesRequest{Parameter: "2", Station: "1", At: "someday"})
	assert.ErrorIs(t, err, period.ErrInvalidTimestamp)

	_, err = svc.Values(ctx, weather.ValuesRequest{Parameter: "99", Station: "1"})
	assert.ErrorIs(t, err, weather.ErrNotFound)

	_, err = svc.Values(ctx, weather.ValuesRequest{Parameter: "Temperature", Station: "1"})
	assert.ErrorIs(t, err, match.ErrAmbiguousMatch)

	_, err = svc.Values(ctx, weather.ValuesRequest{Parameter: "2", Station: "1", At: "2024-03", Column: "Snow"})
	assert.ErrorIs(t, err, series.ErrColumnNotFound)
}

func TestValues_ExplicitRange(t *testing.T) {
	p := newMockProvider()
	p.corrected = dailySeries(day(2023, 1, 1), day(2024, 6, 30), 1)
	svc := newService(p, day(2024, 12, 1))

	got, err := svc.Values(context.Background(), weather.ValuesRequest{
		Parameter: "2", Station: "1", At: "2024-02-10", To: "2024-01-25",
	})
	require.NoError(t, err)
	assert.Equal(t, 17, got.Len())
	assert.Equal(t, day(2024, 1, 25), got.Key(0))
}

func testStations() map[int][]weather.Station {
	abisko := weather.Station{ID: 188790, Name: "Abisko Aut", Latitude: 68.3538, Longitude: 18.8164, From: day(1913, 1, 1), To: day(2024, 9, 1)}
	lulea := weather.Station{ID: 162860, Name: "Luleå-Kallax Flygplats", Latitude: 65.5436, Longitude: 22.1113, From: day(1944, 1, 1), To: day(2024, 9, 1)}
	stockholm := weather.Station{ID: 98230, Name: "Stockholm-Observatoriekullen A", Latitude: 59.3417, Longitude: 18.0549, From: day(1756, 1, 1), To: day(2024, 9, 1)}
	old := weather.Station{ID: 98210, Name: "Stockholm", Latitude: 59.3428, Longitude: 18.0497, From: day(1756, 1, 1), To: day(1995, 12, 31)}

	return map[int][]weather.Station{
		weather.TemperaturePast24h: {abisko, lulea, stockholm, old},
		weather.PrecipPast24hAt06:  {lulea, stockholm, old},
		weather.WindGust:           {abisko, lulea},
	}
}

func TestStationsFor(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := newService(p, day(2024, 9, 20))
	ctx := context.Background()

	got, err := svc.StationsFor(ctx, []int{weather.TemperaturePast24h, weather.PrecipPast24hAt06}, weather.StationFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int{162860, 98230, 98210}, stationIDs(got))

	got, err = svc.StationsFor(ctx, []int{weather.TemperaturePast24h}, weather.StationFilter{At: day(2000, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int{188790, 162860, 98230}, stationIDs(got))

	got, err = svc.StationsFor(ctx, []int{weather.PrecipPast24hAt06, weather.WindGust}, weather.StationFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int{162860}, stationIDs(got))

	// Overlap keeps the closed station, full period drops it.
	window := weather.StationFilter{From: day(1990, 1, 1), To: day(2000, 1, 1)}
	got, err = svc.StationsFor(ctx, []int{weather.PrecipPast24hAt06}, window)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	window.FullPeriod = true
	got, err = svc.StationsFor(ctx, []int{weather.PrecipPast24hAt06}, window)
	require.NoError(t, err)
	assert.Equal(t, []int{162860, 98230}, stationIDs(got))

	// Station lists are cached per parameter.
	assert.Equal(t, 3, p.count("stations"))
}

func TestHasStation(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := newService(p, day(2024, 9, 20))

	ok, err := svc.HasStation(context.Background(), []int{weather.WindGust}, 188790, weather.StationFilter{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasStation(context.Background(), []int{weather.WindGust}, 98230, weather.StationFilter{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveStation(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := newService(p, day(2024, 9, 20))
	ctx := context.Background()

	st, err := svc.ResolveStation(ctx, "abisko")
	require.NoError(t, err)
	assert.Equal(t, 188790, st.ID)

	st, err = svc.ResolveStation(ctx, "luleå")
	require.NoError(t, err)
	assert.Equal(t, 162860, st.ID)

	// Exact name wins over the longer one containing it.
	st, err = svc.ResolveStation(ctx, "Stockholm")
	require.NoError(t, err)
	assert.Equal(t, 98210, st.ID)

	_, err = svc.ResolveStation(ctx, "stock")
	assert.ErrorIs(t, err, match.ErrAmbiguousMatch)

	_, err = svc.ResolveStation(ctx, "Kiruna")
	assert.ErrorIs(t, err, match.ErrNoMatch)

	st, err = svc.ResolveStation(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, st.ID)

	name, err := svc.StationName(ctx, 162860)
	require.NoError(t, err)
	assert.Equal(t, "Luleå-Kallax Flygplats", name)

	_, err = svc.StationName(ctx, 42)
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestNearestStations(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := newService(p, day(2024, 9, 20))

	// Kiruna.
	got, err := svc.NearestStations(context.Background(), 67.8558, 20.2253, nil, weather.StationFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 188790, got[0].ID)
	assert.Equal(t, 162860, got[1].ID)
	assert.InDelta(t, 80, got[0].DistanceKm, 5)
}

type stubGeocoder struct{ lat, lon float64 }

func (g stubGeocoder) Locate(context.Context, weather.Location) (float64, float64, error) {
	return g.lat, g.lon, nil
}

func TestNearestStationsTo(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := weather.NewService(weather.ServiceConfig{
		Provider: p,
		Geocoder: stubGeocoder{lat: 59.33, lon: 18.06},
		Logger:   zerolog.Nop(),
	})

	got, err := svc.NearestStationsTo(context.Background(), weather.Location{City: "Stockholm", Country: "Sweden"},
		[]int{weather.TemperaturePast24h}, weather.StationFilter{At: day(2020, 1, 1)}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 98230, got[0].ID)
}

func TestRefreshStations(t *testing.T) {
	p := newMockProvider()
	p.stations = testStations()
	svc := newService(p, day(2024, 9, 20))
	ctx := context.Background()

	require.NoError(t, svc.RefreshStations(ctx, []int{weather.TemperaturePast24h, weather.WindGust}))
	assert.Equal(t, 2, p.count("stations"))

	_, err := svc.Stations(ctx, weather.WindGust)
	require.NoError(t, err)
	assert.Equal(t, 2, p.count("stations"))

	err = svc.RefreshStations(ctx, []int{99})
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func stationIDs(stations []weather.Station) []int {
	ids := make([]int, len(stations))
	for i, st := range stations {
		ids[i] = st.ID
	}
	return ids
}
