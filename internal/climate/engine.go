// Package climate computes climate indicators from station observations.
package climate

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/johanode/climate-weather-data/internal/match"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/weather"
)

//go:embed indicators.yaml
var defaultCatalogue []byte

var ErrInvalidCatalogue = errors.New("invalid indicator catalogue")

// Fetcher returns the observations of a parameter at a station within a
// window. *weather.Service implements it.
type Fetcher interface {
	ValuesIn(ctx context.Context, parameter, station string, iv period.Interval) (*series.Series, error)
}

// Indicator describes one entry of the catalogue.
type Indicator struct {
	Name        string   `yaml:"name" json:"name"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Unit        string   `yaml:"unit" json:"unit"`
	Period      string   `yaml:"period" json:"period"`
	Parameters  []string `yaml:"parameters" json:"parameters"`

	params  []int
	compute computeFunc
}

// Result is the value of an indicator over one window. Date is set for
// indicators that name a day, in which case Value is its day of the year.
type Result struct {
	Indicator string
	Station   string
	Start     time.Time
	End       time.Time
	Value     float64
	Date      time.Time
}

// MarshalJSON renders NaN as null.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Indicator string     `json:"indicator"`
		Station   string     `json:"station"`
		Start     time.Time  `json:"start"`
		End       time.Time  `json:"end"`
		Value     *float64   `json:"value"`
		Date      *time.Time `json:"date,omitempty"`
	}{
		Indicator: r.Indicator,
		Station:   r.Station,
		Start:     r.Start,
		End:       r.End,
	}
	if !math.IsNaN(r.Value) {
		out.Value = &r.Value
	}
	if !r.Date.IsZero() {
		out.Date = &r.Date
	}
	return json.Marshal(out)
}

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	Fetcher Fetcher
	Logger  zerolog.Logger

	// Catalogue overrides the embedded indicators.yaml.
	Catalogue []byte

	// Now is used when no timestamp is given. Defaults to time.Now.
	Now func() time.Time
}

// Engine evaluates the indicators of a catalogue.
type Engine struct {
	fetcher    Fetcher
	logger     zerolog.Logger
	now        func() time.Time
	indicators []Indicator
	names      []string
}

// NewEngine loads and validates the catalogue. Every indicator must have a
// known computation, a valid default period and resolvable parameters.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("climate: no fetcher configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	data := cfg.Catalogue
	if data == nil {
		data = defaultCatalogue
	}

	indicators, err := loadCatalogue(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(indicators))
	for i, ind := range indicators {
		names[i] = ind.Name
	}

	return &Engine{
		fetcher:    cfg.Fetcher,
		logger:     cfg.Logger.With().Str("component", "climate").Logger(),
		now:        cfg.Now,
		indicators: indicators,
		names:      names,
	}, nil
}

func loadCatalogue(data []byte) ([]Indicator, error) {
	var indicators []Indicator
	if err := yaml.Unmarshal(data, &indicators); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalogue, err)
	}

	seen := make(map[string]bool, len(indicators))
	for i := range indicators {
		ind := &indicators[i]
		if seen[ind.Name] {
			return nil, fmt.Errorf("%w: duplicate indicator %q", ErrInvalidCatalogue, ind.Name)
		}
		seen[ind.Name] = true

		ind.compute = registry[ind.Name]
		if ind.compute == nil {
			return nil, fmt.Errorf("%w: no computation for %q", ErrInvalidCatalogue, ind.Name)
		}
		if _, err := period.Parse(ind.Period, ""); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalogue, ind.Name, err)
		}
		if len(ind.Parameters) == 0 {
			return nil, fmt.Errorf("%w: %s has no parameters", ErrInvalidCatalogue, ind.Name)
		}
		for _, text := range ind.Parameters {
			p, err := weather.ResolveParameter(text)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalogue, ind.Name, err)
			}
			ind.params = append(ind.params, p.ID)
		}
	}
	return indicators, nil
}

// Indicators returns the catalogue in file order.
func (e *Engine) Indicators() []Indicator {
	out := make([]Indicator, len(e.indicators))
	copy(out, e.indicators)
	return out
}

// Lookup finds an indicator by an unambiguous part of its name.
func (e *Engine) Lookup(name string) (Indicator, error) {
	found, err := match.Match(name, e.names)
	if err != nil {
		return Indicator{}, err
	}
	for _, ind := range e.indicators {
		if ind.Name == found {
			return ind, nil
		}
	}
	return Indicator{}, fmt.Errorf("%w: indicator %q", weather.ErrNotFound, name)
}

// Evaluate computes an indicator for the window around at. An empty
// periodText uses the indicator's default period; an empty at means now.
func (e *Engine) Evaluate(ctx context.Context, name, station, at, periodText, direction string) (Result, error) {
	ind, err := e.Lookup(name)
	if err != nil {
		return Result{}, err
	}

	anchor := period.FromTime(e.now().UTC(), period.PrecisionDay)
	if strings.TrimSpace(at) != "" {
		if anchor, err = period.ParseTimestamp(at); err != nil {
			return Result{}, err
		}
	}
	if strings.TrimSpace(periodText) == "" {
		periodText = ind.Period
	}
	d, err := period.Parse(periodText, direction)
	if err != nil {
		return Result{}, err
	}
	iv, err := period.Resolve(anchor, d)
	if err != nil {
		return Result{}, err
	}

	in, err := e.inputs(ctx, ind, station, iv)
	if err != nil {
		return Result{}, err
	}
	return e.result(ind, station, iv, in), nil
}

// EvaluateEach computes an indicator for every calendar bucket of unit
// between from and to. Observations are fetched once for the whole range.
func (e *Engine) EvaluateEach(ctx context.Context, name, station, from, to string, unit period.Unit) ([]Result, error) {
	ind, err := e.Lookup(name)
	if err != nil {
		return nil, err
	}
	rng, err := period.ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	iv, err := period.Resolve(rng.Start, rng)
	if err != nil {
		return nil, err
	}

	in, err := e.inputs(ctx, ind, station, iv)
	if err != nil {
		return nil, err
	}

	buckets := period.Split(iv, unit)
	out := make([]Result, 0, len(buckets))
	for _, b := range buckets {
		sub := make(inputs, len(in))
		for id, s := range in {
			window := b
			if s.Resolution == period.PrecisionInstant {
				window = b.Range()
			}
			if sub[id], err = series.Filter(s, window, ""); err != nil {
				return nil, err
			}
		}
		out = append(out, e.result(ind, station, b, sub))
	}
	return out, nil
}

func (e *Engine) result(ind Indicator, station string, iv period.Interval, in inputs) Result {
	o := ind.compute(in)
	e.logger.Debug().
		Str("indicator", ind.Name).
		Str("station", station).
		Time("start", iv.Start).
		Time("end", iv.End).
		Float64("value", o.value).
		Msg("indicator evaluated")

	return Result{
		Indicator: ind.Name,
		Station:   station,
		Start:     iv.Start,
		End:       iv.End,
		Value:     o.value,
		Date:      o.date,
	}
}

// inputs fetches every parameter of ind concurrently. A parameter without
// data contributes an empty input.
func (e *Engine) inputs(ctx context.Context, ind Indicator, station string, iv period.Interval) (inputs, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		in   = make(inputs, len(ind.params))
	)

	for _, id := range ind.params {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()

			s, err := e.fetcher.ValuesIn(ctx, strconv.Itoa(id), station, iv)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, weather.ErrNoData):
				e.logger.Debug().Str("indicator", ind.Name).Int("parameter", id).Msg("no data")
			case err != nil:
				errs = append(errs, fmt.Errorf("parameter %d: %w", id, err))
			default:
				in[id] = s
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return in, nil
}
