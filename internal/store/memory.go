package store

import (
	"errors"
	"sync"
	"time"

	"github.com/johanode/climate-weather-data/internal/weather"
)

var (
	// ErrNotFound is returned when no station list is cached for a parameter,
	// or the cached list has expired.
	ErrNotFound = errors.New("no stations cached for parameter")
)

// StationList holds a fetched station list and the time it was stored.
type StationList struct {
	Stations []weather.Station
	StoredAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of station lists.
type MemoryStore struct {
	mu sync.RWMutex

	// key: parameter id
	data map[int]*StationList

	// maxAge is the retention of a cached list (0 = unlimited).
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a new MemoryStore. If maxAge is <= 0, cached lists
// never expire.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:   make(map[int]*StationList),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SaveStations replaces the cached station list of a parameter.
func (s *MemoryStore) SaveStations(parameter int, stations []weather.Station) {
	list := &StationList{
		Stations: append([]weather.Station(nil), stations...),
		StoredAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[parameter] = list
}

// GetStations returns the cached station list of a parameter.
func (s *MemoryStore) GetStations(parameter int) ([]weather.Station, error) {
	s.mu.RLock()
	list, ok := s.data[parameter]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(list) {
		s.mu.Lock()
		if s.data[parameter] == list {
			delete(s.data, parameter)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]weather.Station(nil), list.Stations...), nil
}

// Prune drops expired lists and returns how many were removed.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, list := range s.data {
		if s.expired(list) {
			delete(s.data, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(list *StationList) bool {
	if s.maxAge <= 0 {
		return false
	}
	return s.now().Sub(list.StoredAt) > s.maxAge
}
