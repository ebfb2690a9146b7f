package period

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/johanode/climate-weather-data/internal/match"
)

// Unit is one of the symbolic calendar periods.
type Unit int

const (
	Day Unit = iota
	Week
	Month
	Season
	Year
)

var unitNames = []string{"day", "week", "month", "season", "year"}

func (u Unit) String() string {
	if u < Day || u > Year {
		return fmt.Sprintf("unit(%d)", int(u))
	}
	return unitNames[u]
}

// ParseUnit matches text against day/week/month/season/year, accepting any
// unambiguous prefix ("y", "ye", "year").
func ParseUnit(text string) (Unit, error) {
	name, err := match.Match(text, unitNames, match.ForwardOnly())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPeriod, err)
	}
	for i, n := range unitNames {
		if n == name {
			return Unit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, text)
}

// Direction says which side of the anchor a window extends to.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return ""
	}
}

// ParseDirection accepts "", or any unambiguous prefix of "forward" or
// "backward".
func ParseDirection(text string) (Direction, error) {
	if strings.TrimSpace(text) == "" {
		return DirectionNone, nil
	}
	name, err := match.Match(text, []string{"backward", "forward"}, match.ForwardOnly())
	if err != nil {
		return DirectionNone, fmt.Errorf("%w: direction: %w", ErrInvalidPeriod, err)
	}
	if name == "forward" {
		return DirectionForward, nil
	}
	return DirectionBackward, nil
}

// Descriptor is one of Symbolic, Offset, Range or Point.
type Descriptor interface {
	descriptor()
}

// Symbolic is a calendar period around the anchor. With a direction set the
// window runs from the anchor to the edge of the calendar period instead.
type Symbolic struct {
	Unit      Unit
	Direction Direction
}

// Offset is a window of fixed length starting or ending at the anchor.
// Duration is never negative; Direction is always Forward or Backward.
type Offset struct {
	Duration  time.Duration
	Direction Direction
}

// Range is an explicit pair of timestamps.
type Range struct {
	Start, End Timestamp
}

// Point is a single explicit timestamp covering its own span.
type Point struct {
	At Timestamp
}

func (Symbolic) descriptor() {}
func (Offset) descriptor()   {}
func (Range) descriptor()    {}
func (Point) descriptor()    {}

// Parse decides how a period text is to be interpreted. Duration syntax is
// tried first ("-7days", "48hours", "1w", "36h"); only if that fails is the
// text matched against the symbolic periods.
func Parse(text, direction string) (Descriptor, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty period", ErrInvalidPeriod)
	}

	if d, ok := ParseOffset(text); ok {
		if dir == DirectionNone {
			dir = DirectionForward
			if d < 0 {
				dir = DirectionBackward
			}
		}
		if d < 0 {
			d = -d
		}
		return Offset{Duration: d, Direction: dir}, nil
	}

	unit, err := ParseUnit(text)
	if err != nil {
		return nil, err
	}
	return Symbolic{Unit: unit, Direction: dir}, nil
}

// ParseRange builds an explicit range from two timestamp texts.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseTimestamp(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseTimestamp(end)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

var (
	offsetPattern = regexp.MustCompile(`^([+-])?\s*((?:\d+(?:\.\d+)?\s*[a-zA-Z]+[\s,]*)+)$`)
	offsetTerm    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+)`)
)

var offsetUnits = map[string]time.Duration{
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"ms": time.Millisecond, "us": time.Microsecond, "ns": time.Nanosecond,
}

// ParseOffset parses a signed relative duration. Besides Go duration syntax
// it accepts day and week units and spelled-out unit names, optionally
// separated by spaces: "-7days", "48 hours", "1 day 12 hours". A bare "m" is
// minutes; calendar months and years are not durations.
func ParseOffset(text string) (time.Duration, bool) {
	s := strings.TrimSpace(text)
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}

	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	var total time.Duration
	for _, term := range offsetTerm.FindAllStringSubmatch(m[2], -1) {
		unit, ok := offsetUnits[strings.ToLower(term[2])]
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseFloat(term[1], 64)
		if err != nil {
			return 0, false
		}
		d := n * float64(unit)
		if d >= math.MaxInt64 || total > math.MaxInt64-time.Duration(d) {
			return 0, false
		}
		total += time.Duration(d)
	}

	if m[1] == "-" {
		total = -total
	}
	return total, true
}
