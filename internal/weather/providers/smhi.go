package providers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/weather"
)

// DefaultSMHIBaseURL is the metobs API root.
const DefaultSMHIBaseURL = "https://opendata-download-metobs.smhi.se/api/version/1.0"

// SMHIConfig configures an SMHIProvider.
type SMHIConfig struct {
	BaseURL    string
	Client     *http.Client
	MaxRetries uint64

	// RetryInterval is the first backoff delay. Default: 500ms
	RetryInterval time.Duration

	Logger zerolog.Logger
}

// SMHIProvider implements the weather.Provider interface for the SMHI
// meteorological observations API.
type SMHIProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

func NewSMHIProvider(cfg SMHIConfig) *SMHIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSMHIBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	logger := cfg.Logger.With().Str("provider", "smhi").Logger()

	return &SMHIProvider{
		name:    "smhi",
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: cfg.Client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: cfg.RetryInterval,
				MaxInterval:     5 * time.Second,
			},
			Logger: logger,
		},
		circuit: newCircuitBreaker("smhi", logger),
		logger:  logger,
	}
}

func (p *SMHIProvider) Name() string {
	return p.name
}

func (p *SMHIProvider) get(ctx context.Context, path string) (*http.Response, error) {
	u := p.baseURL + path
	p.logger.Debug().Str("url", u).Msg("fetching")

	return doRequestWithResilience(ctx, p.httpCfg, p.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	})
}

// Stations implements weather.Provider.
func (p *SMHIProvider) Stations(ctx context.Context, parameter int) ([]weather.Station, error) {
	resp, err := p.get(ctx, fmt.Sprintf("/parameter/%d.json", parameter))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Station []struct {
			ID        int     `json:"id"`
			Name      string  `json:"name"`
			Owner     string  `json:"owner"`
			Height    float64 `json:"height"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Active    bool    `json:"active"`
			From      int64   `json:"from"`
			To        int64   `json:"to"`
			Updated   int64   `json:"updated"`
		} `json:"station"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode stations of parameter %d: %w", parameter, err)
	}

	stations := make([]weather.Station, len(payload.Station))
	for i, s := range payload.Station {
		stations[i] = weather.Station{
			ID:        s.ID,
			Name:      s.Name,
			Owner:     s.Owner,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Height:    s.Height,
			Active:    s.Active,
			From:      time.UnixMilli(s.From).UTC(),
			To:        time.UnixMilli(s.To).UTC(),
			Updated:   time.UnixMilli(s.Updated).UTC(),
		}
	}
	return stations, nil
}

// Corrected implements weather.Provider.
func (p *SMHIProvider) Corrected(ctx context.Context, parameter, station int) (*series.Series, error) {
	resp, err := p.get(ctx, fmt.Sprintf("/parameter/%d/station/%d/period/corrected-archive/data.csv", parameter, station))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s, err := ParseCorrectedCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parameter %d station %d: %w", parameter, station, err)
	}
	s.Name = strconv.Itoa(parameter)
	return s, nil
}

// LatestMonths implements weather.Provider.
func (p *SMHIProvider) LatestMonths(ctx context.Context, parameter, station int) (*series.Series, error) {
	resp, err := p.get(ctx, fmt.Sprintf("/parameter/%d/station/%d/period/latest-months/data.json", parameter, station))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s, err := ParseLatestMonthsJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parameter %d station %d: %w", parameter, station, err)
	}
	s.Name = strconv.Itoa(parameter)
	return s, nil
}

var errNoHeader = errors.New("no data header in csv")

// ParseCorrectedCSV reads a corrected-archive download. The file starts with
// station and parameter metadata; the data table begins at a header row of
// either "Datum;Tid (UTC);<value>;Kvalitet" (sub-daily) or
// "Från Datum Tid (UTC);Till Datum Tid (UTC);Representativt dygn|Representativ månad;<value>;Kvalitet".
func ParseCorrectedCSV(r io.Reader) (*series.Series, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var parse func([]string) (series.Row, bool)
	var s *series.Series

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}

		if parse == nil {
			switch {
			case rec[0] == "Datum" && len(rec) >= 4:
				parse = parseInstantRecord
				s = series.New("", []string{series.ColDateUTC, series.ColValue, series.ColQuality}, period.PrecisionInstant, nil)
			case strings.HasPrefix(rec[0], "Från Datum") && len(rec) >= 5:
				res := period.PrecisionDay
				if strings.Contains(strings.ToLower(rec[2]), "månad") {
					res = period.PrecisionMonth
				}
				parse = parseSpanRecord
				s = series.New("", []string{series.ColFrom, series.ColTo, series.ColDate, series.ColValue, series.ColQuality}, res, nil)
			}
			continue
		}

		if row, ok := parse(rec); ok {
			s.Rows = append(s.Rows, row)
		}
	}

	if s == nil {
		return nil, errNoHeader
	}
	return s, nil
}

func parseInstantRecord(rec []string) (series.Row, bool) {
	if len(rec) < 4 {
		return series.Row{}, false
	}
	t, err := time.Parse("2006-01-02 15:04:05", rec[0]+" "+rec[1])
	if err != nil {
		return series.Row{}, false
	}
	row := series.Row{DateUTC: t, Quality: rec[3]}
	row.Value, row.Label = parseValue(rec[2])
	return row, true
}

func parseSpanRecord(rec []string) (series.Row, bool) {
	if len(rec) < 5 {
		return series.Row{}, false
	}
	from, err1 := time.Parse("2006-01-02 15:04:05", rec[0])
	to, err2 := time.Parse("2006-01-02 15:04:05", rec[1])
	ref, err3 := parseRef(rec[2])
	if err := errors.Join(err1, err2, err3); err != nil {
		return series.Row{}, false
	}
	row := series.Row{From: from, To: to, Date: ref, Quality: rec[4]}
	row.Value, row.Label = parseValue(rec[3])
	return row, true
}

func parseRef(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01", s)
}

// parseValue returns NaN for non-numeric text such as precipitation types.
func parseValue(s string) (float64, string) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), s
	}
	return v, s
}

// ParseLatestMonthsJSON reads a latest-months download. Sub-daily rows carry
// "date"; daily and monthly rows carry "from", "to" and "ref". Times are
// epoch milliseconds; values are strings.
func ParseLatestMonthsJSON(r io.Reader) (*series.Series, error) {
	var payload struct {
		Value []struct {
			Date    *int64          `json:"date"`
			From    *int64          `json:"from"`
			To      *int64          `json:"to"`
			Ref     string          `json:"ref"`
			Value   json.RawMessage `json:"value"`
			Quality string          `json:"quality"`
		} `json:"value"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode latest months: %w", err)
	}
	if len(payload.Value) == 0 {
		return nil, weather.ErrNoData
	}

	first := payload.Value[0]
	var s *series.Series
	if first.Date != nil {
		s = series.New("", []string{series.ColDateUTC, series.ColValue, series.ColQuality}, period.PrecisionInstant, nil)
	} else {
		res := period.PrecisionDay
		if len(first.Ref) == len("2006-01") {
			res = period.PrecisionMonth
		}
		s = series.New("", []string{series.ColFrom, series.ColTo, series.ColDate, series.ColValue, series.ColQuality}, res, nil)
	}

	for _, v := range payload.Value {
		row := series.Row{Quality: v.Quality}
		if raw := strings.TrimSpace(string(v.Value)); raw == "" || raw == "null" {
			row.Value = math.NaN()
		} else {
			row.Value, row.Label = parseValue(strings.Trim(raw, `"`))
		}

		switch {
		case v.Date != nil:
			row.DateUTC = time.UnixMilli(*v.Date).UTC()
		case v.From != nil && v.To != nil:
			ref, err := parseRef(v.Ref)
			if err != nil {
				return nil, fmt.Errorf("latest months: bad ref %q: %w", v.Ref, err)
			}
			row.From = time.UnixMilli(*v.From).UTC()
			row.To = time.UnixMilli(*v.To).UTC()
			row.Date = ref
		default:
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}
