package climate

import (
	"math"
	"strings"
	"time"

	"github.com/johanode/climate-weather-data/internal/period"
	"github.com/johanode/climate-weather-data/internal/series"
	"github.com/johanode/climate-weather-data/internal/weather"
)

const (
	warmDay      = 20.0
	coldDay      = -7.0
	vegThreshold = 5.0
	vegDays      = 4
	windyGust    = 21.0

	// Mean temperature bands for cold rain and warm snow.
	coldRainLow  = 0.58
	coldRainHigh = 2.0
	warmSnowLow  = -2.0
)

// Precipitation type categories, as reported by parameter 18.
var precipTypes = map[string][]string{
	"rain":            {"regn", "duggregn", "regnskurar"},
	"snow":            {"snowfall", "snöfall", "kornsnö", "snöbyar", "snöhagel"},
	"snowslush":       {"snöblandat regn", "byar av snöblandat regn"},
	"supercooledrain": {"underkyld nederbörd"},
}

func isType(category, label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, t := range precipTypes[category] {
		if label == t {
			return true
		}
	}
	return false
}

type outcome struct {
	value float64
	date  time.Time
}

type computeFunc func(in inputs) outcome

// inputs maps parameter ids to their observations. Missing parameters are
// nil.
type inputs map[int]*series.Series

// daily returns the series of a parameter at daily resolution. Sub-daily
// series are reduced to their daily maxima.
func (in inputs) daily(id int) *series.Series {
	s := in[id]
	if s.Len() == 0 || s.Resolution != period.PrecisionInstant {
		return s
	}
	return s.Daily(weather.Max)
}

// day is one calendar day of joined observations, keyed by parameter id.
type day struct {
	date time.Time
	rows map[int]series.Row
}

func (d day) value(id int) (float64, bool) {
	r, ok := d.rows[id]
	if !ok || math.IsNaN(r.Value) {
		return math.NaN(), false
	}
	return r.Value, true
}

// join lines up the daily rows of ids by date, in the order of the first
// parameter. Days the first parameter lacks are dropped.
func (in inputs) join(ids ...int) []day {
	base := in.daily(ids[0])
	others := make(map[int]map[time.Time]series.Row, len(ids)-1)
	for _, id := range ids[1:] {
		others[id] = in.daily(id).ByDate()
	}

	out := make([]day, 0, base.Len())
	for i := 0; i < base.Len(); i++ {
		d := dayOf(base.Key(i))
		rows := map[int]series.Row{ids[0]: base.Rows[i]}
		for id, byDate := range others {
			if r, ok := byDate[d]; ok {
				rows[id] = r
			}
		}
		out = append(out, day{date: d, rows: rows})
	}
	return out
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func reduce(id int, r weather.Reducer) computeFunc {
	return func(in inputs) outcome {
		return outcome{value: weather.Aggregate(in.daily(id).Values(), r)}
	}
}

func count(id int, pred func(float64) bool) computeFunc {
	return reduce(id, weather.CountIf(pred))
}

// joined reduces a derived daily value. f reports false for days that do
// not contribute.
func joined(r weather.Reducer, f func(d day) (float64, bool), ids ...int) computeFunc {
	return func(in inputs) outcome {
		if in[ids[0]].Len() == 0 {
			return outcome{value: math.NaN()}
		}
		var values []float64
		for _, d := range in.join(ids...) {
			if v, ok := f(d); ok {
				values = append(values, v)
			}
		}
		return outcome{value: weather.Aggregate(values, r)}
	}
}

// countDays counts the days where pred holds. The result is NaN only when
// the first parameter has no observations at all.
func countDays(pred func(d day) bool, ids ...int) computeFunc {
	return joined(weather.Sum, func(d day) (float64, bool) {
		if pred(d) {
			return 1, true
		}
		return 0, true
	}, ids...)
}

// typedPrecip sums or maximizes precipitation on days of a type category.
func typedPrecip(category string, r weather.Reducer) computeFunc {
	return joined(r, func(d day) (float64, bool) {
		p, ok := d.value(weather.PrecipPast24hAt06)
		if !ok || !isType(category, d.rows[weather.PrecipTypePast24h].Label) {
			return 0, false
		}
		return p, true
	}, weather.PrecipPast24hAt06, weather.PrecipTypePast24h)
}

// tempBand counts days with precipitation above minPrecip and a daily mean
// temperature strictly between lo and hi.
func tempBand(lo, hi, minPrecip float64) computeFunc {
	return countDays(func(d day) bool {
		p, ok1 := d.value(weather.PrecipPast24hAt06)
		t, ok2 := d.value(weather.TemperaturePast24h)
		return ok1 && ok2 && p > minPrecip && t > lo && t < hi
	}, weather.PrecipPast24hAt06, weather.TemperaturePast24h)
}

// typedBand counts days of a precipitation type category with more than
// minPrecip and a daily mean temperature accepted by temp.
func typedBand(category string, temp func(float64) bool, minPrecip float64) computeFunc {
	return countDays(func(d day) bool {
		p, ok1 := d.value(weather.PrecipPast24hAt06)
		t, ok2 := d.value(weather.TemperaturePast24h)
		return ok1 && ok2 && p > minPrecip && temp(t) &&
			isType(category, d.rows[weather.PrecipTypePast24h].Label)
	}, weather.PrecipPast24hAt06, weather.PrecipTypePast24h, weather.TemperaturePast24h)
}

// vegSeason finds the vegetation season in a daily mean temperature series.
// It starts on the day that completes the first run of vegDays days above
// vegThreshold. It ends on the last day before the first run of vegDays days
// at or below the threshold that lies from July onwards.
func vegSeason(s *series.Series) (start, end time.Time, ok bool) {
	var (
		dates []time.Time
		temps []float64
	)
	for i, v := range s.Values() {
		if !math.IsNaN(v) {
			dates = append(dates, dayOf(s.Key(i)))
			temps = append(temps, v)
		}
	}

	first, run := -1, 0
	for i, v := range temps {
		if v <= vegThreshold {
			run = 0
			continue
		}
		if run++; run >= vegDays {
			first = i
			break
		}
	}
	if first < 0 {
		return time.Time{}, time.Time{}, false
	}

	prev, run := first, 0
	for i := first; i < len(temps); i++ {
		if dates[i].Month() >= time.July && temps[i] <= vegThreshold {
			if run++; run >= vegDays {
				return dates[first], dates[prev], true
			}
			continue
		}
		run, prev = 0, i
	}
	return time.Time{}, time.Time{}, false
}

func vegStart(in inputs) outcome {
	start, _, ok := vegSeason(in.daily(weather.TemperaturePast24h))
	if !ok {
		return outcome{value: math.NaN()}
	}
	return outcome{value: float64(start.YearDay()), date: start}
}

func vegEnd(in inputs) outcome {
	_, end, ok := vegSeason(in.daily(weather.TemperaturePast24h))
	if !ok {
		return outcome{value: math.NaN()}
	}
	return outcome{value: float64(end.YearDay()), date: end}
}

func vegLength(in inputs) outcome {
	start, end, ok := vegSeason(in.daily(weather.TemperaturePast24h))
	if !ok {
		return outcome{value: math.NaN()}
	}
	return outcome{value: end.Sub(start).Hours() / 24}
}

func above(limit float64) func(float64) bool { return func(v float64) bool { return v > limit } }
func below(limit float64) func(float64) bool { return func(v float64) bool { return v < limit } }

var registry = map[string]computeFunc{
	"TAS": reduce(weather.TemperatureMeanPastMonth, weather.Mean),
	"TX":  reduce(weather.TemperatureMaxPast24h, weather.Max),
	"TN":  reduce(weather.TemperatureMinPast24h, weather.Min),
	"DTR": joined(weather.Max, func(d day) (float64, bool) {
		lo, ok1 := d.value(weather.TemperatureMinPast24h)
		hi, ok2 := d.value(weather.TemperatureMaxPast24h)
		return hi - lo, ok1 && ok2
	}, weather.TemperatureMinPast24h, weather.TemperatureMaxPast24h),

	"WarmDays":    count(weather.TemperatureMaxPast24h, above(warmDay)),
	"ConWarmDays": reduce(weather.TemperatureMaxPast24h, weather.LongestRun(above(warmDay))),
	"ZeroCrossingDays": countDays(func(d day) bool {
		lo, ok1 := d.value(weather.TemperatureMinPast24h)
		hi, ok2 := d.value(weather.TemperatureMaxPast24h)
		return ok1 && ok2 && lo < 0 && hi > 0
	}, weather.TemperatureMinPast24h, weather.TemperatureMaxPast24h),

	"VegSeasonDayStart": vegStart,
	"VegSeasonDayEnd":   vegEnd,
	"VegSeasonLength":   vegLength,

	"FrostDays": count(weather.TemperatureMinPast24h, below(0)),
	"ColdDays":  count(weather.TemperatureMaxPast24h, below(coldDay)),

	"PR":            reduce(weather.PrecipPast24hAt06, weather.Sum),
	"PRRN":          typedPrecip("rain", weather.Sum),
	"PRSN":          typedPrecip("snow", weather.Sum),
	"SuperCooledPR": typedPrecip("supercooledrain", weather.Sum),
	"PR7Dmax":       reduce(weather.PrecipPast24hAt06, weather.RollingSumMax(7)),
	"PRmax":         reduce(weather.PrecipPast24hAt06, weather.Max),
	"PRSNmax":       typedPrecip("snow", weather.Max),
	"PRgt10Days":    count(weather.PrecipPast24hAt06, above(10)),
	"PRgt25Days":    count(weather.PrecipPast24hAt06, above(25)),
	"DryDays":       count(weather.PrecipPast24hAt06, below(1)),

	"SncDays": count(weather.SnowDepthPast24h, above(0)),
	"SNWmax":  reduce(weather.SnowDepthPast24h, weather.Max),

	"SfcWind":     reduce(weather.WindSpeed, weather.Max),
	"WindGustMax": reduce(weather.WindGust, weather.Max),
	"WindyDays":   count(weather.WindGust, above(windyGust)),

	"ColdRainDays":     tempBand(coldRainLow, coldRainHigh, 0),
	"ColdRainGT10Days": tempBand(coldRainLow, coldRainHigh, 10),
	"ColdRainGT20Days": tempBand(coldRainLow, coldRainHigh, 20),
	"WarmSnowDays":     tempBand(warmSnowLow, coldRainLow, 0),
	"WarmSnowGT10Days": tempBand(warmSnowLow, coldRainLow, 10),
	"WarmSnowGT20Days": tempBand(warmSnowLow, coldRainLow, 20),

	"ColdPRRNdays":     typedBand("rain", below(coldRainHigh), 0),
	"ColdPRRNgt10Days": typedBand("rain", below(coldRainHigh), 10),
	"ColdPRRNgt20Days": typedBand("rain", below(coldRainHigh), 20),
	"WarmPRSNdays":     typedBand("snow", above(warmSnowLow), 0),
	"WarmPRSNgt10days": typedBand("snow", above(warmSnowLow), 10),
	"WarmPRSNgt20days": typedBand("snow", above(warmSnowLow), 20),
}
