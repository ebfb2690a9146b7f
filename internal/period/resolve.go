package period

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a resolved window. Start and End are inclusive and widened to
// whole days for calendar periods. Keys holds the same window as short index
// tokens: one key for day, month and year, two for week and season, and
// instant keys for offsets and range-mode intervals.
type Interval struct {
	Start time.Time
	End   time.Time
	Keys  []Timestamp
}

// Range returns the interval in date-time range mode, keyed by its full
// Start/End instants. Used for sub-daily series.
func (iv Interval) Range() Interval {
	return Interval{
		Start: iv.Start,
		End:   iv.End,
		Keys: []Timestamp{
			{Time: iv.Start, Precision: PrecisionInstant},
			{Time: iv.End, Precision: PrecisionInstant},
		},
	}
}

// Contains reports whether t lies within [Start, End].
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Format renders the interval. "key" (or "") yields the index keys, "iso"
// the ISO start and end, and anything else is used as a time layout, either
// Go style ("2006-01-02") or strftime style ("%Y-%m-%d").
func (iv Interval) Format(format string) []string {
	switch strings.ToLower(format) {
	case "", "key":
		out := make([]string, len(iv.Keys))
		for i, k := range iv.Keys {
			out[i] = k.String()
		}
		return out
	case "iso", "isoformat":
		return []string{iv.Start.Format(isoLayout), iv.End.Format(isoLayout)}
	}

	layout := format
	if strings.Contains(format, "%") {
		layout = strftimeLayout(format)
	}
	return []string{iv.Start.Format(layout), iv.End.Format(layout)}
}

// Resolve expands d around anchor. Range and Point descriptors ignore the
// anchor.
func Resolve(anchor Timestamp, d Descriptor) (Interval, error) {
	switch d := d.(type) {
	case Point:
		return Interval{Start: d.At.Start(), End: d.At.End(), Keys: []Timestamp{d.At}}, nil

	case Range:
		s, e := d.Start, d.End
		if e.Start().Before(s.Start()) {
			s, e = e, s
		}
		return Interval{Start: s.Start(), End: e.End(), Keys: []Timestamp{s, e}}, nil

	case Offset:
		a := anchor.Time
		if d.Direction == DirectionBackward {
			return instantInterval(a.Add(-d.Duration), a), nil
		}
		return instantInterval(a, a.Add(d.Duration)), nil

	case Symbolic:
		cal := Calendar(anchor.Time, d.Unit)
		switch d.Direction {
		case DirectionForward:
			return instantInterval(anchor.Time, cal.End), nil
		case DirectionBackward:
			return instantInterval(cal.Start, anchor.Time), nil
		default:
			return cal, nil
		}

	case nil:
		return Interval{}, fmt.Errorf("%w: no period given", ErrInvalidPeriod)

	default:
		return Interval{}, fmt.Errorf("%w: unsupported descriptor %T", ErrInvalidPeriod, d)
	}
}

// Calendar returns the calendar period of the given unit that contains t.
func Calendar(t time.Time, u Unit) Interval {
	t = t.UTC()
	switch u {
	case Week:
		day := truncate(t, PrecisionDay)
		monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		sunday := monday.AddDate(0, 0, 6)
		first := Timestamp{Time: monday, Precision: PrecisionDay}
		last := Timestamp{Time: sunday, Precision: PrecisionDay}
		return Interval{Start: first.Start(), End: last.End(), Keys: []Timestamp{first, last}}

	case Month:
		m := Timestamp{Time: truncate(t, PrecisionMonth), Precision: PrecisionMonth}
		return Interval{Start: m.Start(), End: m.End(), Keys: []Timestamp{m}}

	case Season:
		// Dec/Jan/Feb, Mar/Apr/May, Jun/Jul/Aug, Sep/Oct/Nov: a December
		// season ends in February of the next year, a January or February
		// season starts in December of the previous one.
		into := (int(t.Month()) % 12) % 3
		first := Timestamp{Time: truncate(t, PrecisionMonth).AddDate(0, -into, 0), Precision: PrecisionMonth}
		last := Timestamp{Time: first.Time.AddDate(0, 2, 0), Precision: PrecisionMonth}
		return Interval{Start: first.Start(), End: last.End(), Keys: []Timestamp{first, last}}

	case Year:
		y := Timestamp{Time: truncate(t, PrecisionYear), Precision: PrecisionYear}
		return Interval{Start: y.Start(), End: y.End(), Keys: []Timestamp{y}}

	default:
		d := Timestamp{Time: truncate(t, PrecisionDay), Precision: PrecisionDay}
		return Interval{Start: d.Start(), End: d.End(), Keys: []Timestamp{d}}
	}
}

// Split cuts iv into consecutive calendar buckets of unit u. The first and
// last buckets are clipped to iv.
func Split(iv Interval, u Unit) []Interval {
	var out []Interval
	for cur := Calendar(iv.Start, u); !cur.Start.After(iv.End); cur = Calendar(cur.End.Add(time.Microsecond), u) {
		if cur.Start.Before(iv.Start) || cur.End.After(iv.End) {
			start, end := cur.Start, cur.End
			if start.Before(iv.Start) {
				start = iv.Start
			}
			if end.After(iv.End) {
				end = iv.End
			}
			out = append(out, instantInterval(start, end))
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Get resolves a timestamp text and a period text and renders the result in
// the given format. An empty period resolves the timestamp on its own.
func Get(ts, periodText, direction, format string) ([]string, error) {
	anchor, err := ParseTimestamp(ts)
	if err != nil {
		return nil, err
	}

	var d Descriptor = Point{At: anchor}
	if strings.TrimSpace(periodText) != "" {
		d, err = Parse(periodText, direction)
		if err != nil {
			return nil, err
		}
	}

	iv, err := Resolve(anchor, d)
	if err != nil {
		return nil, err
	}
	return iv.Format(format), nil
}

func instantInterval(start, end time.Time) Interval {
	return Interval{
		Start: start,
		End:   end,
		Keys: []Timestamp{
			{Time: start, Precision: PrecisionInstant},
			{Time: end, Precision: PrecisionInstant},
		},
	}
}

var strftime = strings.NewReplacer(
	"%Y", "2006",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%f", "000000",
	"%b", "Jan",
	"%B", "January",
	"%y", "06",
	"%%", "%",
)

func strftimeLayout(format string) string {
	return strftime.Replace(format)
}
