// Package series holds time-indexed observation tables and the operations
// that stitch and window them.
package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/johanode/climate-weather-data/internal/period"
)

// Column names, as they appear after translation of the SMHI headers.
const (
	ColDateUTC = "Date (UTC)"
	ColFrom    = "From Date (UTC)"
	ColTo      = "To Date (UTC)"
	ColDate    = "Date"
	ColValue   = "Value"
	ColQuality = "Quality"
)

// ErrColumnNotFound is returned when a requested column is not part of a series.
var ErrColumnNotFound = errors.New("column not found")

// Row is one observation. Time columns a series does not carry are zero.
// Label keeps the raw value text; Value is NaN when that text is not numeric
// (precipitation type, for example).
type Row struct {
	DateUTC time.Time
	From    time.Time
	To      time.Time
	Date    time.Time
	Value   float64
	Label   string
	Quality string
}

// Time returns the value of a time column.
func (r Row) Time(col string) (time.Time, bool) {
	switch col {
	case ColDateUTC:
		return r.DateUTC, true
	case ColFrom:
		return r.From, true
	case ColTo:
		return r.To, true
	case ColDate:
		return r.Date, true
	default:
		return time.Time{}, false
	}
}

// Series is an ordered table of rows indexed by one of its time columns.
// Resolution is the granularity of the index: instant for hourly data, day
// for daily values and month for monthly aggregates.
type Series struct {
	Name       string
	Index      string
	Resolution period.Precision
	Columns    []string
	Rows       []Row
}

// New creates a series and picks its index column.
func New(name string, columns []string, resolution period.Precision, rows []Row) *Series {
	s := &Series{
		Name:       name,
		Columns:    slices.Clone(columns),
		Resolution: resolution,
		Rows:       rows,
	}
	s.Index, _ = DetectIndex(s)
	return s
}

// DetectIndex picks "Date (UTC)" for sub-daily data and "Date" otherwise.
func DetectIndex(s *Series) (string, error) {
	switch {
	case s.Has(ColDateUTC):
		return ColDateUTC, nil
	case s.Has(ColDate):
		return ColDate, nil
	default:
		return "", fmt.Errorf("%w: neither %q nor %q in %s", ErrColumnNotFound, ColDate, ColDateUTC, s.Name)
	}
}

// Has reports whether col is one of the series' columns.
func (s *Series) Has(col string) bool {
	return slices.Contains(s.Columns, col)
}

// Len returns the number of rows; a nil series is empty.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Key returns the index value of row i.
func (s *Series) Key(i int) time.Time {
	t, _ := s.Rows[i].Time(s.Index)
	return t
}

// Values returns the numeric values in row order.
func (s *Series) Values() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Rows[i].Value
	}
	return out
}

// ByDate maps the UTC calendar day of each index value to the first row on
// that day.
func (s *Series) ByDate() map[time.Time]Row {
	out := make(map[time.Time]Row, s.Len())
	for i := 0; i < s.Len(); i++ {
		d := startOfDay(s.Key(i))
		if _, ok := out[d]; !ok {
			out[d] = s.Rows[i]
		}
	}
	return out
}

// Select narrows the visible columns to the index and col.
func (s *Series) Select(col string) (*Series, error) {
	if !s.Has(col) {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, col, s.Name)
	}
	out := s.derive(s.Rows)
	if col != s.Index {
		out.Columns = []string{s.Index, col}
	}
	return out, nil
}

// Daily groups rows by the UTC calendar day of the index and reduces each
// group with agg. The result is indexed by "Date".
func (s *Series) Daily(agg func([]float64) float64) *Series {
	var (
		rows []Row
		vals []float64
		day  time.Time
	)
	flush := func() {
		if len(vals) > 0 {
			v := agg(vals)
			rows = append(rows, Row{Date: day, Value: v, Label: formatValue(v)})
		}
		vals = vals[:0]
	}

	for i := range s.Rows {
		d := startOfDay(s.Key(i))
		if !d.Equal(day) {
			flush()
			day = d
		}
		if !math.IsNaN(s.Rows[i].Value) {
			vals = append(vals, s.Rows[i].Value)
		}
	}
	flush()

	return New(s.Name, []string{ColDate, ColValue}, period.PrecisionDay, rows)
}

func (s *Series) derive(rows []Row) *Series {
	return &Series{
		Name:       s.Name,
		Index:      s.Index,
		Resolution: s.Resolution,
		Columns:    slices.Clone(s.Columns),
		Rows:       rows,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
