package httpapi

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/johanode/climate-weather-data/internal/climate"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, engine *climate.Engine) {
	v1 := app.Group("/api/v1")

	v1.Get("/period", func(c *fiber.Ctx) error {
		var q periodQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}

		keys, err := period.Get(q.TS, q.Period, q.Direction, q.Format)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{
			"ts":        q.TS,
			"period":    q.Period,
			"direction": q.Direction,
			"interval":  keys,
		})
	})

	v1.Get("/parameters", func(c *fiber.Ctx) error {
		group := c.Query("group")
		if group == "" {
			return c.JSON(service.Parameters())
		}

		ids, err := weather.GroupParameters(group)
		if err != nil {
			return toHTTPError(err)
		}
		params := make([]weather.Parameter, 0, len(ids))
		for _, id := range ids {
			p, err := weather.ParameterByID(id)
			if err != nil {
				return toHTTPError(err)
			}
			params = append(params, p)
		}
		return c.JSON(params)
	})

	v1.Get("/stations", func(c *fiber.Ctx) error {
		var q stationsQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		params, err := weather.ParseParameters(q.Parameter)
		if err != nil {
			return toHTTPError(err)
		}
		filter, err := q.filter()
		if err != nil {
			return toHTTPError(err)
		}

		stations, err := service.StationsFor(c.UserContext(), params, filter)
		if err != nil {
			return toHTTPError(err)
		}
		if stations == nil {
			stations = []weather.Station{}
		}
		return c.JSON(fiber.Map{
			"parameters": params,
			"count":      len(stations),
			"stations":   stations,
		})
	})

	v1.Get("/stations/nearest", func(c *fiber.Ctx) error {
		var q nearestQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		if (q.Lat == nil || q.Lon == nil) && q.City == "" {
			return fiber.NewError(fiber.StatusBadRequest, "either lat and lon or city is required")
		}

		var params []int
		if q.Parameter != "" {
			var err error
			if params, err = weather.ParseParameters(q.Parameter); err != nil {
				return toHTTPError(err)
			}
		}
		filter, err := q.filter()
		if err != nil {
			return toHTTPError(err)
		}

		var nearby []weather.NearbyStation
		if q.Lat != nil && q.Lon != nil {
			nearby, err = service.NearestStations(c.UserContext(), *q.Lat, *q.Lon, params, filter, q.Limit)
		} else {
			loc := weather.Location{City: q.City, Country: q.Country}
			nearby, err = service.NearestStationsTo(c.UserContext(), loc, params, filter, q.Limit)
		}
		if err != nil {
			return toHTTPError(err)
		}
		if nearby == nil {
			nearby = []weather.NearbyStation{}
		}
		return c.JSON(nearby)
	})

	v1.Get("/values", func(c *fiber.Ctx) error {
		var q valuesQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}

		s, err := service.Values(c.UserContext(), weather.ValuesRequest{
			Parameter:    q.Parameter,
			Station:      q.Station,
			At:           q.TS,
			To:           q.To,
			Period:       q.Period,
			Direction:    q.Direction,
			Column:       q.Column,
			CheckStation: q.CheckStation,
		})
		if err != nil {
			return toHTTPError(err)
		}

		resp := newSeriesResponse(s)
		resp.Station = stationName(c.UserContext(), service, q.Station)
		return c.JSON(resp)
	})

	v1.Get("/indicators", func(c *fiber.Ctx) error {
		indicators := engine.Indicators()
		if category := c.Query("category"); category != "" {
			kept := indicators[:0]
			for _, ind := range indicators {
				if strings.EqualFold(ind.Category, category) {
					kept = append(kept, ind)
				}
			}
			indicators = kept
		}
		return c.JSON(indicators)
	})

	v1.Get("/indicators/:name", func(c *fiber.Ctx) error {
		var q indicatorQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		name := c.Params("name")

		if q.Each == "" {
			r, err := engine.Evaluate(c.UserContext(), name, q.Station, q.TS, q.Period, q.Direction)
			if err != nil {
				return toHTTPError(err)
			}
			return c.JSON(r)
		}

		if q.From == "" || q.To == "" {
			return fiber.NewError(fiber.StatusBadRequest, "from and to query parameters are required with each")
		}
		unit, err := period.ParseUnit(q.Each)
		if err != nil {
			return toHTTPError(err)
		}
		results, err := engine.EvaluateEach(c.UserContext(), name, q.Station, q.From, q.To, unit)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(results)
	})
}

// stationName names the station of a values request. Numeric ids are looked
// up in the station catalog; a failed lookup leaves the name empty.
func stationName(ctx context.Context, service *weather.Service, text string) string {
	st, err := service.ResolveStation(ctx, text)
	if err != nil {
		return ""
	}
	if st.Name != "" {
		return st.Name
	}
	name, _ := service.StationName(ctx, st.ID)
	return name
}
