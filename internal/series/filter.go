package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/johanode/climate-weather-data/internal/period"
)

var errMissingKey = errors.New("key not in index")

// Filter restricts s to the interval iv and, when column is set, to that
// value column. The interval keys are looked up against the index first:
//
//   - a single key at least as coarse as the series resolution selects every
//     row inside its span ("2024-06" on a daily series);
//   - a single key finer than the resolution must match an index value
//     exactly;
//   - two keys select the inclusive slice between them.
//
// When a single key has no match the rows are instead selected by
// containment: rows whose [From, To] span overlaps iv when the series carries
// span columns, rows whose index lies within iv otherwise.
func Filter(s *Series, iv period.Interval, column string) (*Series, error) {
	if column != "" && !s.Has(column) {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, column, s.Name)
	}

	if s.Index == "" {
		idx, err := DetectIndex(s)
		if err != nil {
			return nil, err
		}
		s = s.derive(s.Rows)
		s.Index = idx
	}

	rows, err := lookup(s, iv)
	if errors.Is(err, errMissingKey) {
		rows = contained(s, iv)
	}

	out := s.derive(rows)
	if column != "" {
		return out.Select(column)
	}
	return out, nil
}

func lookup(s *Series, iv period.Interval) ([]Row, error) {
	switch len(iv.Keys) {
	case 0:
		return nil, errMissingKey

	case 1:
		k := iv.Keys[0]
		var match func(time.Time) bool
		if k.Precision < s.Resolution {
			match = k.Time.Equal
		} else {
			match = k.Contains
		}
		rows := s.selectRows(match)
		if len(rows) == 0 {
			return nil, errMissingKey
		}
		return rows, nil

	default:
		lo, hi := iv.Keys[0].Start(), iv.Keys[len(iv.Keys)-1].End()
		return s.selectRows(func(t time.Time) bool {
			return !t.Before(lo) && !t.After(hi)
		}), nil
	}
}

func contained(s *Series, iv period.Interval) []Row {
	if s.Has(ColFrom) && s.Has(ColTo) {
		var out []Row
		for _, r := range s.Rows {
			if !r.From.After(iv.End) && !r.To.Before(iv.Start) {
				out = append(out, r)
			}
		}
		return out
	}
	return s.selectRows(iv.Contains)
}

func (s *Series) selectRows(keep func(time.Time) bool) []Row {
	var out []Row
	for i, r := range s.Rows {
		if keep(s.Key(i)) {
			out = append(out, r)
		}
	}
	return out
}
