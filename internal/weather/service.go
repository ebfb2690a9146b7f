package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/johanode/climate-weather-data/internal/match"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
)

// The corrected archive lags about three months behind; the latest-months
// endpoint covers roughly the last four.
const (
	correctedLag  = 3
	latestMonths  = 4
	defaultLimit  = 5
	stationsParam = TemperaturePast24h
)

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Provider Provider
	Store    Store
	Geocoder Geocoder
	Logger   zerolog.Logger

	// Now defaults to time.Now.
	Now Clock
}

// Service resolves parameters and stations and assembles observation series
// from the corrected archive and the latest months.
type Service struct {
	provider Provider
	store    Store
	geocoder Geocoder
	logger   zerolog.Logger
	now      Clock
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		provider: cfg.Provider,
		store:    cfg.Store,
		geocoder: cfg.Geocoder,
		logger:   cfg.Logger.With().Str("component", "weather").Logger(),
		now:      cfg.Now,
	}
}

// ValuesRequest selects observations. Parameter and Station accept ids or
// names. Without At the whole reconciled series is returned. With At alone
// the window is At's own span; with Period it is resolved around At; with To
// it is the explicit range At..To.
type ValuesRequest struct {
	Parameter string
	Station   string
	At        string
	To        string
	Period    string
	Direction string
	Column    string

	// CheckStation verifies that the station observes the parameter first.
	CheckStation bool
}

// Window resolves the time window of the request. ok is false when the
// request has no timestamp.
func (r ValuesRequest) Window() (iv period.Interval, ok bool, err error) {
	if strings.TrimSpace(r.At) == "" {
		return period.Interval{}, false, nil
	}

	if strings.TrimSpace(r.To) != "" {
		rng, err := period.ParseRange(r.At, r.To)
		if err != nil {
			return period.Interval{}, false, err
		}
		iv, err = period.Resolve(rng.Start, rng)
		return iv, err == nil, err
	}

	anchor, err := period.ParseTimestamp(r.At)
	if err != nil {
		return period.Interval{}, false, err
	}
	var d period.Descriptor = period.Point{At: anchor}
	if strings.TrimSpace(r.Period) != "" {
		if d, err = period.Parse(r.Period, r.Direction); err != nil {
			return period.Interval{}, false, err
		}
	}
	iv, err = period.Resolve(anchor, d)
	return iv, err == nil, err
}

// Values fetches and stitches the series for a parameter at a station and
// restricts it to the requested window.
func (s *Service) Values(ctx context.Context, req ValuesRequest) (*series.Series, error) {
	param, err := s.ResolveParameter(req.Parameter)
	if err != nil {
		return nil, err
	}
	station, err := s.ResolveStation(ctx, req.Station)
	if err != nil {
		return nil, err
	}

	if req.CheckStation {
		ok, err := s.HasStation(ctx, []int{param.ID}, station.ID, StationFilter{})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: parameter %s at station %d", ErrNotFound, param.Label, station.ID)
		}
	}

	iv, windowed, err := req.Window()
	if err != nil {
		return nil, err
	}
	return s.values(ctx, param, station.ID, iv, windowed, req.Column)
}

// ValuesIn is Values for an already resolved window, without column
// selection.
func (s *Service) ValuesIn(ctx context.Context, parameter, station string, iv period.Interval) (*series.Series, error) {
	param, err := s.ResolveParameter(parameter)
	if err != nil {
		return nil, err
	}
	st, err := s.ResolveStation(ctx, station)
	if err != nil {
		return nil, err
	}
	return s.values(ctx, param, st.ID, iv, true, "")
}

func (s *Service) values(ctx context.Context, param Parameter, station int, iv period.Interval, windowed bool, column string) (*series.Series, error) {
	now := s.now().UTC()
	historical := !windowed || !iv.Start.After(now.AddDate(0, -correctedLag, 0))
	recent := !windowed || iv.End.After(now.AddDate(0, -latestMonths, 0))

	joined, err := s.fetch(ctx, param, station, historical, recent)
	if err != nil {
		return nil, err
	}
	joined.Name = param.Label

	if !windowed {
		if column == "" {
			return joined, nil
		}
		return joined.Select(column)
	}

	if joined.Resolution == period.PrecisionInstant {
		iv = iv.Range()
	}
	return series.Filter(joined, iv, column)
}

func (s *Service) fetch(ctx context.Context, param Parameter, station int, historical, recent bool) (*series.Series, error) {
	var (
		wg      sync.WaitGroup
		sources [2]*series.Series
		errs    [2]error
	)

	logger := s.logger.With().Str("provider", s.provider.Name()).Int("parameter", param.ID).Int("station", station).Logger()
	logger.Debug().Bool("historical", historical).Bool("recent", recent).Msg("fetching observations")

	get := func(i int, name string, fn func(context.Context, int, int) (*series.Series, error)) {
		defer wg.Done()
		src, err := fn(ctx, param.ID, station)
		if errors.Is(err, ErrNoData) {
			logger.Debug().Str("source", name).Msg("no data")
			return
		}
		sources[i], errs[i] = src, err
	}

	if historical {
		wg.Add(1)
		go get(0, "corrected-archive", s.provider.Corrected)
	}
	if recent {
		wg.Add(1)
		go get(1, "latest-months", s.provider.LatestMonths)
	}
	wg.Wait()

	if err := errors.Join(errs[:]...); err != nil {
		logger.Error().Err(err).Msg("fetch failed")
		return nil, err
	}

	var key string
	for _, src := range sources {
		if src != nil {
			idx, err := series.DetectIndex(src)
			if err != nil {
				return nil, err
			}
			key = idx
			break
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%w: parameter %s at station %d", ErrNoData, param.Label, station)
	}

	// Historical first so that corrected values win on overlap.
	return series.Reconcile(key, sources[0], sources[1])
}

// Parameters returns the parameter catalogue.
func (s *Service) Parameters() []Parameter {
	return Parameters()
}

// ResolveParameter accepts a numeric id or a parameter label.
func (s *Service) ResolveParameter(text string) (Parameter, error) {
	return ResolveParameter(text)
}

// Stations returns the stations observing a parameter, from the store when
// cached.
func (s *Service) Stations(ctx context.Context, parameter int) ([]Station, error) {
	if s.store != nil {
		if cached, err := s.store.GetStations(parameter); err == nil {
			return cached, nil
		}
	}
	return s.refreshStations(ctx, parameter)
}

func (s *Service) refreshStations(ctx context.Context, parameter int) ([]Station, error) {
	if _, err := ParameterByID(parameter); err != nil {
		return nil, err
	}
	stations, err := s.provider.Stations(ctx, parameter)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		s.store.SaveStations(parameter, stations)
	}
	return stations, nil
}

// RefreshStations reloads the station lists of the given parameters
// concurrently. Failures are logged and joined; successful lists are stored
// regardless.
func (s *Service) RefreshStations(ctx context.Context, parameters []int) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	s.logger.Debug().Ints("parameters", parameters).Msg("refreshing station catalog")
	for _, p := range parameters {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			stations, err := s.refreshStations(ctx, p)
			if err != nil {
				s.logger.Warn().Err(err).Int("parameter", p).Msg("station refresh failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("parameter %d: %w", p, err))
				mu.Unlock()
				return
			}
			s.logger.Debug().Int("parameter", p).Int("stations", len(stations)).Msg("station catalog refreshed")
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// StationsFor returns the stations that observe every one of the given
// parameters and pass the filter, in the order of the first parameter's list.
func (s *Service) StationsFor(ctx context.Context, parameters []int, f StationFilter) ([]Station, error) {
	if len(parameters) == 0 {
		return nil, fmt.Errorf("%w: no parameters given", ErrNotFound)
	}

	var (
		base   []Station
		common map[int]bool
	)
	for i, p := range parameters {
		stations, err := s.Stations(ctx, p)
		if err != nil {
			return nil, err
		}

		ids := make(map[int]bool)
		for _, st := range stations {
			if f.Keep(st) && (i == 0 || common[st.ID]) {
				ids[st.ID] = true
			}
		}
		if i == 0 {
			base = stations
		}
		common = ids
		if len(common) == 0 {
			s.logger.Debug().Ints("parameters", parameters).Msg("no common stations")
			return nil, nil
		}
	}

	var out []Station
	for _, st := range base {
		if common[st.ID] {
			out = append(out, st)
		}
	}
	return out, nil
}

// HasStation reports whether station observes all parameters within the
// filter.
func (s *Service) HasStation(ctx context.Context, parameters []int, station int, f StationFilter) (bool, error) {
	stations, err := s.StationsFor(ctx, parameters, f)
	if err != nil {
		return false, err
	}
	for _, st := range stations {
		if st.ID == station {
			return true, nil
		}
	}
	return false, nil
}

// StationName returns the name of a station id, looked up among the
// stations observing daily mean temperature.
func (s *Service) StationName(ctx context.Context, id int) (string, error) {
	stations, err := s.Stations(ctx, stationsParam)
	if err != nil {
		return "", err
	}
	for _, st := range stations {
		if st.ID == id {
			return st.Name, nil
		}
	}
	return "", fmt.Errorf("%w: station %d", ErrNotFound, id)
}

// ResolveStation accepts a numeric station id, returned as is, or an
// unambiguous part of a station name ("Luleå", "abisko").
func (s *Service) ResolveStation(ctx context.Context, text string) (Station, error) {
	text = strings.TrimSpace(text)
	if id, err := strconv.Atoi(text); err == nil {
		return Station{ID: id}, nil
	}

	stations, err := s.Stations(ctx, stationsParam)
	if err != nil {
		return Station{}, err
	}
	names := make([]string, len(stations))
	for i, st := range stations {
		names[i] = st.Name
	}
	name, err := match.Match(text, names)
	if err != nil {
		return Station{}, err
	}
	for _, st := range stations {
		if st.Name == name {
			return st, nil
		}
	}
	return Station{}, fmt.Errorf("%w: station %q", ErrNotFound, text)
}

// NearestStations returns up to limit stations observing every given
// parameter (daily mean temperature by default), closest first.
func (s *Service) NearestStations(ctx context.Context, lat, lon float64, parameters []int, f StationFilter, limit int) ([]NearbyStation, error) {
	if len(parameters) == 0 {
		parameters = []int{stationsParam}
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	stations, err := s.StationsFor(ctx, parameters, f)
	if err != nil {
		return nil, err
	}
	return nearest(stations, lat, lon, limit), nil
}

// NearestStationsTo geocodes loc and returns the stations closest to it.
func (s *Service) NearestStationsTo(ctx context.Context, loc Location, parameters []int, f StationFilter, limit int) ([]NearbyStation, error) {
	if s.geocoder == nil {
		return nil, ErrNoGeocoder
	}
	lat, lon, err := s.geocoder.Locate(ctx, loc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("location", loc.Key()).Float64("lat", lat).Float64("lon", lon).Msg("geocoded")
	return s.NearestStations(ctx, lat, lon, parameters, f, limit)
}
