package httpapi

import (
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/johanode/climate-weather-data/internal/match"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/store"
	"github.com/johanode/climate-weather-data/internal/weather"
)

// bindQuery parses and validates the query string into q.
func bindQuery(c *fiber.Ctx, q any) error {
	if err := c.QueryParser(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

type periodQuery struct {
	TS        string `query:"ts" validate:"required"`
	Period    string `query:"period"`
	Direction string `query:"direction"`
	Format    string `query:"format"`
}

// stationFilterQuery selects stations with data at ts, or over from..to.
type stationFilterQuery struct {
	TS         string `query:"ts"`
	From       string `query:"from"`
	To         string `query:"to"`
	FullPeriod bool   `query:"full_period"`
}

func (q stationFilterQuery) filter() (weather.StationFilter, error) {
	var f weather.StationFilter
	if q.TS != "" {
		ts, err := period.ParseTimestamp(q.TS)
		if err != nil {
			return f, err
		}
		f.At = ts.Start()
	}
	if q.From != "" {
		ts, err := period.ParseTimestamp(q.From)
		if err != nil {
			return f, err
		}
		f.From = ts.Start()
	}
	if q.To != "" {
		ts, err := period.ParseTimestamp(q.To)
		if err != nil {
			return f, err
		}
		f.To = ts.End()
	}
	f.FullPeriod = q.FullPeriod
	return f, nil
}

type stationsQuery struct {
	stationFilterQuery
	Parameter string `query:"parameter" validate:"required"`
}

type nearestQuery struct {
	stationFilterQuery
	Lat       *float64 `query:"lat" validate:"omitempty,latitude"`
	Lon       *float64 `query:"lon" validate:"omitempty,longitude"`
	City      string   `query:"city"`
	Country   string   `query:"country"`
	Parameter string   `query:"parameter"`
	Limit     int      `query:"limit" validate:"omitempty,min=1,max=100"`
}

type valuesQuery struct {
	Parameter    string `query:"parameter" validate:"required"`
	Station      string `query:"station" validate:"required"`
	TS           string `query:"ts" validate:"required_with=To"`
	To           string `query:"to"`
	Period       string `query:"period" validate:"excluded_with=To"`
	Direction    string `query:"direction"`
	Column       string `query:"column"`
	CheckStation bool   `query:"check_station"`
}

type indicatorQuery struct {
	Station   string `query:"station" validate:"required"`
	TS        string `query:"ts"`
	Period    string `query:"period"`
	Direction string `query:"direction"`
	Each      string `query:"each"`
	From      string `query:"from"`
	To        string `query:"to"`
}

// toHTTPError maps domain errors to HTTP status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, period.ErrInvalidTimestamp),
		errors.Is(err, period.ErrInvalidPeriod),
		errors.Is(err, match.ErrNoMatch),
		errors.Is(err, match.ErrAmbiguousMatch),
		errors.Is(err, series.ErrColumnNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrNotFound),
		errors.Is(err, weather.ErrNoData),
		errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrNoGeocoder):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

type seriesResponse struct {
	Name       string           `json:"name"`
	Station    string           `json:"station,omitempty"`
	Index      string           `json:"index"`
	Resolution string           `json:"resolution"`
	Columns    []string         `json:"columns"`
	Count      int              `json:"count"`
	Rows       []map[string]any `json:"rows"`
}

// newSeriesResponse renders the visible columns of every row. Non-numeric
// values are rendered as their text; missing values as null.
func newSeriesResponse(s *series.Series) seriesResponse {
	resp := seriesResponse{
		Name:       s.Name,
		Index:      s.Index,
		Resolution: s.Resolution.String(),
		Columns:    s.Columns,
		Count:      s.Len(),
		Rows:       make([]map[string]any, 0, s.Len()),
	}
	for _, r := range s.Rows {
		row := make(map[string]any, len(s.Columns))
		for _, col := range s.Columns {
			if t, ok := r.Time(col); ok {
				row[col] = t.Format(time.RFC3339)
				continue
			}
			switch col {
			case series.ColValue:
				row[col] = value(r)
			case series.ColQuality:
				row[col] = r.Quality
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

func value(r series.Row) any {
	switch {
	case !math.IsNaN(r.Value):
		return r.Value
	case r.Label != "":
		return r.Label
	default:
		return nil
	}
}
