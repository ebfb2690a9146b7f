// Package period turns an anchor timestamp and a period descriptor into a
// concrete date/time interval.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// ErrInvalidTimestamp is returned when text cannot be parsed as a date/time.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidPeriod is returned when a period descriptor is neither a
	// duration nor one of the symbolic periods.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Precision is the granularity a timestamp was written with. Lower values are
// finer.
type Precision int

const (
	PrecisionInstant Precision = iota
	PrecisionDay
	PrecisionMonth
	PrecisionYear
)

func (p Precision) String() string {
	switch p {
	case PrecisionInstant:
		return "instant"
	case PrecisionDay:
		return "day"
	case PrecisionMonth:
		return "month"
	case PrecisionYear:
		return "year"
	default:
		return fmt.Sprintf("precision(%d)", int(p))
	}
}

// Timestamp is a UTC instant together with the precision it denotes. The
// timestamp "2024-06" covers the whole of June 2024.
type Timestamp struct {
	Time      time.Time
	Precision Precision
}

// FromTime wraps t (converted to UTC) truncated to precision p.
func FromTime(t time.Time, p Precision) Timestamp {
	return Timestamp{Time: truncate(t.UTC(), p), Precision: p}
}

// Start returns the first instant covered by the timestamp.
func (ts Timestamp) Start() time.Time {
	return ts.Time
}

// End returns the last instant covered by the timestamp, with the time of day
// widened to 23:59:59.999999 for day precision and coarser.
func (ts Timestamp) End() time.Time {
	switch ts.Precision {
	case PrecisionDay:
		return ts.Time.AddDate(0, 0, 1).Add(-time.Microsecond)
	case PrecisionMonth:
		return ts.Time.AddDate(0, 1, 0).Add(-time.Microsecond)
	case PrecisionYear:
		return ts.Time.AddDate(1, 0, 0).Add(-time.Microsecond)
	default:
		return ts.Time
	}
}

// Contains reports whether t falls inside the span of the timestamp.
func (ts Timestamp) Contains(t time.Time) bool {
	return !t.Before(ts.Start()) && !t.After(ts.End())
}

// String renders the timestamp as a short index key: "2024", "2024-09",
// "2024-09-01" or a full ISO date-time.
func (ts Timestamp) String() string {
	switch ts.Precision {
	case PrecisionYear:
		return ts.Time.Format("2006")
	case PrecisionMonth:
		return ts.Time.Format("2006-01")
	case PrecisionDay:
		return ts.Time.Format("2006-01-02")
	default:
		return ts.Time.Format(isoLayout)
	}
}

const isoLayout = "2006-01-02T15:04:05.999999"

var layouts = []struct {
	layout    string
	precision Precision
}{
	{"2006", PrecisionYear},
	{"2006-01", PrecisionMonth},
	{"2006-01-02", PrecisionDay},
	{"2006-01-02 15:04", PrecisionInstant},
	{"2006-01-02 15:04:05", PrecisionInstant},
	{"2006-01-02T15:04", PrecisionInstant},
	{"2006-01-02T15:04:05", PrecisionInstant},
	{time.RFC3339Nano, PrecisionInstant},
}

// ParseTimestamp parses text as a calendar date or date-time. Short forms
// keep their precision ("2012" is a year, "2012-04-03" a day); anything the
// fixed layouts do not cover goes through a free-form date parser.
func ParseTimestamp(text string) (Timestamp, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Timestamp{}, fmt.Errorf("%w: empty input", ErrInvalidTimestamp)
	}

	for _, l := range layouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return Timestamp{Time: t.UTC(), Precision: l.precision}, nil
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}
	t = t.UTC()
	if t.Equal(truncate(t, PrecisionDay)) {
		return Timestamp{Time: t, Precision: PrecisionDay}, nil
	}
	return Timestamp{Time: t, Precision: PrecisionInstant}, nil
}

func truncate(t time.Time, p Precision) time.Time {
	switch p {
	case PrecisionDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PrecisionMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PrecisionYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}
