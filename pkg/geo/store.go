// Package geo holds the geospatial core of the dashboard: the station
// coordinate store, great-circle distances, heatmap points and train routes.
// Everything here is a pure transform over already-loaded tables.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/1F47E/rail-eda/pkg/models"
)

var (
	// ErrNotFound means an identifier does not resolve to data
	ErrNotFound = errors.New("not found")
	// ErrTrainNotFound means no schedule entry carries the train number
	ErrTrainNotFound = fmt.Errorf("train %w", ErrNotFound)
	// ErrRouteTooShort means fewer than two stops of a route have coordinates
	ErrRouteTooShort = errors.New("route has fewer than two located stops")
	// ErrInvalidInput means a coordinate is malformed or out of range
	ErrInvalidInput = errors.New("invalid input")
)

// Entry is a station with a validated coordinate
type Entry struct {
	Code     string          `json:"station_code"`
	Name     string          `json:"station_name"`
	Location models.Location `json:"location"`
}

// Rejection records a station dropped because its coordinate was invalid
type Rejection struct {
	Code string
	Err  error
}

// Store maps station identifiers to coordinates. It is read-only once built.
type Store struct {
	entries  []Entry
	byCode   map[string]int
	byName   map[string]int
	rejected []Rejection
}

// BuildStore keeps the stations that carry a usable coordinate.
// Stations with a blank latitude or longitude are skipped silently, stations
// with an out-of-range or non-finite value are recorded in Rejected.
func BuildStore(stations []models.Station) *Store {
	s := &Store{
		entries: make([]Entry, 0, len(stations)),
		byCode:  make(map[string]int, len(stations)),
		byName:  make(map[string]int, len(stations)),
	}

	for _, st := range stations {
		if st.Latitude == nil || st.Longitude == nil {
			continue
		}
		loc := models.Location{Lat: *st.Latitude, Lon: *st.Longitude}
		if err := ValidateLocation(loc); err != nil {
			s.rejected = append(s.rejected, Rejection{Code: st.Code, Err: err})
			continue
		}

		idx := len(s.entries)
		s.entries = append(s.entries, Entry{Code: st.Code, Name: st.Name, Location: loc})

		// First occurrence wins for both keys.
		if _, dup := s.byCode[st.Code]; !dup && st.Code != "" {
			s.byCode[st.Code] = idx
		}
		if _, dup := s.byName[st.Name]; !dup && st.Name != "" {
			s.byName[st.Name] = idx
		}
	}

	return s
}

// ValidateLocation checks that loc is finite and within WGS84 ranges
func ValidateLocation(loc models.Location) error {
	if math.IsNaN(loc.Lat) || math.IsInf(loc.Lat, 0) || loc.Lat < -90 || loc.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, loc.Lat)
	}
	if math.IsNaN(loc.Lon) || math.IsInf(loc.Lon, 0) || loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, loc.Lon)
	}
	return nil
}

// Lookup resolves a station code, or failing that a station name
func (s *Store) Lookup(codeOrName string) (models.Location, error) {
	e, err := s.Resolve(codeOrName)
	if err != nil {
		return models.Location{}, err
	}
	return e.Location, nil
}

// LookupCode resolves a station code only
func (s *Store) LookupCode(code string) (models.Location, error) {
	if idx, ok := s.byCode[code]; ok {
		return s.entries[idx].Location, nil
	}
	return models.Location{}, fmt.Errorf("station %q: %w", code, ErrNotFound)
}

// Resolve returns the full entry for a station code or name
func (s *Store) Resolve(codeOrName string) (Entry, error) {
	if idx, ok := s.byCode[codeOrName]; ok {
		return s.entries[idx], nil
	}
	if idx, ok := s.byName[codeOrName]; ok {
		return s.entries[idx], nil
	}
	return Entry{}, fmt.Errorf("station %q: %w", codeOrName, ErrNotFound)
}

// AllValid returns every stored coordinate
func (s *Store) AllValid() []models.Location {
	out := make([]models.Location, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Location
	}
	return out
}

// Entries returns a copy of the stored stations in input order
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Rejected returns the stations excluded for invalid coordinates
func (s *Store) Rejected() []Rejection {
	return s.rejected
}

// Len returns the number of stations with a valid coordinate
func (s *Store) Len() int {
	return len(s.entries)
}

// Center returns the mean coordinate of the store, false when empty
func (s *Store) Center() (models.Location, bool) {
	if len(s.entries) == 0 {
		return models.Location{}, false
	}
	var lat, lon float64
	for _, e := range s.entries {
		lat += e.Location.Lat
		lon += e.Location.Lon
	}
	n := float64(len(s.entries))
	return models.Location{Lat: lat / n, Lon: lon / n}, true
}
