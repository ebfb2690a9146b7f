package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/johanode/climate-weather-data/internal/climate"
	"github.com/johanode/climate-weather-data/internal/config"
	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/store"
	"github.com/johanode/climate-weather-data/internal/weather"
	"github.com/johanode/climate-weather-data/internal/weather/providers"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "period":
		err = runPeriod(os.Args[2:])
	case "parameters":
		err = runParameters(os.Args[2:])
	case "stations":
		err = runStations(ctx, os.Args[2:])
	case "values":
		err = runValues(ctx, os.Args[2:])
	case "indicator":
		err = runIndicator(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "climatectl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: climatectl <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  period      resolve a timestamp and period to an interval")
	fmt.Fprintln(os.Stderr, "  parameters  list the SMHI observation parameters")
	fmt.Fprintln(os.Stderr, "  stations    list stations observing parameters, or the nearest ones")
	fmt.Fprintln(os.Stderr, "  values      print observations of a parameter at a station")
	fmt.Fprintln(os.Stderr, "  indicator   evaluate a climate indicator")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "run 'climatectl <command> -h' for the options of a command")
}

func runPeriod(args []string) error {
	fs := flag.NewFlagSet("period", flag.ExitOnError)
	ts := fs.String("ts", "", "timestamp (2024, 2024-06, 2024-06-15, 2024-06-15T12:00)")
	p := fs.String("period", "", "period: day, week, month, season, year, or a duration like -7days")
	dir := fs.String("direction", "", "forward or backward")
	format := fs.String("format", "key", "key, iso, or a time layout")
	fs.Parse(args)

	if *ts == "" {
		return errors.New("-ts is required")
	}
	out, err := period.Get(*ts, *p, *dir, *format)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(out, " "))
	return nil
}

func runParameters(args []string) error {
	fs := flag.NewFlagSet("parameters", flag.ExitOnError)
	group := fs.String("group", "", "temperature, precipitation, wind, combination or all")
	fs.Parse(args)

	params := weather.Parameters()
	if *group != "" {
		ids, err := weather.GroupParameters(*group)
		if err != nil {
			return err
		}
		params = params[:0]
		for _, id := range ids {
			p, err := weather.ParameterByID(id)
			if err != nil {
				return err
			}
			params = append(params, p)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tLABEL\tNAME\tNOTE")
	for _, p := range params {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Label, p.Name, p.Note)
	}
	return w.Flush()
}

func runStations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stations", flag.ExitOnError)
	params := fs.String("parameter", "TemperaturePast24h", "comma-separated parameter ids, labels or groups")
	at := fs.String("ts", "", "keep stations with data at this time")
	lat := fs.Float64("lat", math.NaN(), "latitude for a nearest station search")
	lon := fs.Float64("lon", math.NaN(), "longitude for a nearest station search")
	city := fs.String("city", "", "place name for a nearest station search")
	country := fs.String("country", "", "country of -city")
	limit := fs.Int("limit", 5, "number of nearest stations")
	fs.Parse(args)

	svc := newService()
	ids, err := weather.ParseParameters(*params)
	if err != nil {
		return err
	}
	var filter weather.StationFilter
	if *at != "" {
		ts, err := period.ParseTimestamp(*at)
		if err != nil {
			return err
		}
		filter.At = ts.Start()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	var nearby []weather.NearbyStation
	switch {
	case !math.IsNaN(*lat) && !math.IsNaN(*lon):
		nearby, err = svc.NearestStations(ctx, *lat, *lon, ids, filter, *limit)
	case *city != "":
		nearby, err = svc.NearestStationsTo(ctx, weather.Location{City: *city, Country: *country}, ids, filter, *limit)
	default:
		stations, err := svc.StationsFor(ctx, ids, filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tNAME\tACTIVE\tFROM\tTO")
		for _, st := range stations {
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", st.ID, st.Name, st.Active, st.From.Format(time.DateOnly), st.To.Format(time.DateOnly))
		}
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "ID\tNAME\tDISTANCE (KM)")
	for _, st := range nearby {
		fmt.Fprintf(w, "%d\t%s\t%.1f\n", st.ID, st.Name, st.DistanceKm)
	}
	return nil
}

func runValues(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("values", flag.ExitOnError)
	var req weather.ValuesRequest
	fs.StringVar(&req.Parameter, "parameter", "", "parameter id or label")
	fs.StringVar(&req.Station, "station", "", "station id or name")
	fs.StringVar(&req.At, "ts", "", "timestamp (empty = whole series)")
	fs.StringVar(&req.To, "to", "", "end of an explicit range starting at -ts")
	fs.StringVar(&req.Period, "period", "", "period around -ts")
	fs.StringVar(&req.Direction, "direction", "", "forward or backward")
	fs.StringVar(&req.Column, "column", "", "value column to keep")
	fs.BoolVar(&req.CheckStation, "check", false, "verify that the station observes the parameter")
	fs.Parse(args)

	if req.Parameter == "" || req.Station == "" {
		return errors.New("-parameter and -station are required")
	}

	s, err := newService().Values(ctx, req)
	if err != nil {
		return err
	}
	return printSeries(s)
}

func printSeries(s *series.Series) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(s.Columns, "\t"))
	for _, r := range s.Rows {
		cells := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			if t, ok := r.Time(col); ok {
				cells[i] = t.Format(time.DateTime)
				continue
			}
			switch col {
			case series.ColValue:
				cells[i] = r.Label
			case series.ColQuality:
				cells[i] = r.Quality
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func runIndicator(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("indicator", flag.ExitOnError)
	list := fs.Bool("list", false, "list the indicator catalogue")
	name := fs.String("name", "", "indicator name")
	station := fs.String("station", "", "station id or name")
	at := fs.String("ts", "", "timestamp (empty = now)")
	p := fs.String("period", "", "period around -ts (empty = the indicator's default)")
	dir := fs.String("direction", "", "forward or backward")
	each := fs.String("each", "", "evaluate per day, week, month, season or year between -from and -to")
	from := fs.String("from", "", "start of the range for -each")
	to := fs.String("to", "", "end of the range for -each")
	fs.Parse(args)

	engine, err := climate.NewEngine(climate.EngineConfig{Fetcher: newService(), Logger: newLogger()})
	if err != nil {
		return err
	}

	if *list {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tPERIOD\tUNIT\tTITLE")
		for _, ind := range engine.Indicators() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ind.Name, ind.Category, ind.Period, ind.Unit, ind.Title)
		}
		return w.Flush()
	}

	if *name == "" || *station == "" {
		return errors.New("-name and -station are required")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *each == "" {
		r, err := engine.Evaluate(ctx, *name, *station, *at, *p, *dir)
		if err != nil {
			return err
		}
		return enc.Encode(r)
	}

	unit, err := period.ParseUnit(*each)
	if err != nil {
		return err
	}
	results, err := engine.EvaluateEach(ctx, *name, *station, *from, *to, unit)
	if err != nil {
		return err
	}
	return enc.Encode(results)
}

func newLogger() zerolog.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return config.NewLogger(os.Stderr, level, "console")
}

// newService builds a service on the SMHI provider. Configuration errors
// fall back to the defaults.
func newService() *weather.Service {
	log := newLogger()
	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("using default configuration")
		cfg = &config.AppConfig{SMHIBaseURL: providers.DefaultSMHIBaseURL, HTTPTimeout: 30 * time.Second}
	}

	var geo weather.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey, log)
	}
	return weather.NewService(weather.ServiceConfig{
		Provider: providers.NewSMHIProvider(providers.SMHIConfig{
			BaseURL:    cfg.SMHIBaseURL,
			Client:     &http.Client{Timeout: cfg.HTTPTimeout},
			MaxRetries: cfg.FetchMaxRetries,
			Logger:     log,
		}),
		Store:    store.NewMemoryStore(0),
		Geocoder: geo,
		Logger:   log,
	})
}
