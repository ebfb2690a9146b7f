package weather

import (
	"time"
)

// Parameter describes one SMHI observation parameter.
type Parameter struct {
	ID    int    `json:"key"`
	Label string `json:"label"`
	Name  string `json:"name"`
	Note  string `json:"note"`
}

// Station is an observation station as listed for a parameter.
// From and To bound the period the station has data for.
type Station struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Height    float64   `json:"height"`
	Active    bool      `json:"active"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Updated   time.Time `json:"updated"`
}

// Location represents a named place, resolved to coordinates by a Geocoder.
// City must be provided.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// StationFilter narrows a station list to stations with data at a point in
// time or over a window. The zero value keeps every station.
type StationFilter struct {
	// At keeps stations whose [From, To] contains At.
	At time.Time

	// From/To keep stations overlapping the window, or covering all of it
	// when FullPeriod is set. A zero bound leaves that side open.
	From       time.Time
	To         time.Time
	FullPeriod bool
}

// Keep reports whether st passes the filter.
func (f StationFilter) Keep(st Station) bool {
	if !f.At.IsZero() {
		return !st.From.After(f.At) && !st.To.Before(f.At)
	}
	if f.FullPeriod {
		return (f.From.IsZero() || !st.From.After(f.From)) &&
			(f.To.IsZero() || !st.To.Before(f.To))
	}
	return (f.To.IsZero() || !st.From.After(f.To)) &&
		(f.From.IsZero() || !st.To.Before(f.From))
}

// NearbyStation is a station together with its distance from a query point.
type NearbyStation struct {
	Station
	DistanceKm float64 `json:"distanceKm"`
}
