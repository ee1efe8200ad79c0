// Package dataset loads the stations, trains and schedules CSV files and
// caches the parsed tables until the files change on disk.
package dataset

import (
	"sort"
	"strings"
)

// Kind names one of the three datasets
type Kind string

const (
	KindStations  Kind = "stations"
	KindTrains    Kind = "trains"
	KindSchedules Kind = "schedules"
)

// Kinds lists the datasets in tab order
var Kinds = []Kind{KindStations, KindTrains, KindSchedules}

// Column names shared by schemas and renderers
const (
	ColStationCode   = "station_code"
	ColStationName   = "station_name"
	ColState         = "state"
	ColZone          = "zone"
	ColAddress       = "address"
	ColLatitude      = "latitude"
	ColLongitude     = "longitude"
	ColTrainNumber   = "train_number"
	ColTrainType     = "train_type"
	ColDistanceKm    = "distance_km"
	ColAvgSpeed      = "avg_speed"
	ColHaltMin       = "halt_min"
	ColArrivalTime   = "arrival_time"
	ColDepartureTime = "departure_time"
	ColDay           = "day"
)

// Schema declares the columns a dataset is expected to carry.
// Required columns gate the whole table, optional ones gate single charts.
type Schema struct {
	Kind     Kind
	Required []string
	Optional []string
}

var (
	StationsSchema = Schema{
		Kind:     KindStations,
		Required: []string{ColStationCode, ColStationName},
		Optional: []string{ColState, ColZone, ColAddress, ColLatitude, ColLongitude},
	}
	TrainsSchema = Schema{
		Kind:     KindTrains,
		Optional: []string{ColTrainNumber, ColTrainType, ColZone, ColDistanceKm, ColAvgSpeed},
	}
	SchedulesSchema = Schema{
		Kind:     KindSchedules,
		Required: []string{ColTrainNumber, ColStationCode},
		Optional: []string{ColStationName, ColHaltMin, ColArrivalTime, ColDepartureTime, ColDay},
	}
)

// SchemaFor returns the schema of a dataset kind
func SchemaFor(kind Kind) (Schema, bool) {
	switch kind {
	case KindStations:
		return StationsSchema, true
	case KindTrains:
		return TrainsSchema, true
	case KindSchedules:
		return SchedulesSchema, true
	}
	return Schema{}, false
}

// Capabilities is the set of known columns present in a loaded file
type Capabilities map[string]bool

// Has reports whether the column is present
func (c Capabilities) Has(col string) bool {
	return c[col]
}

// HasAll reports whether every column is present
func (c Capabilities) HasAll(cols ...string) bool {
	for _, col := range cols {
		if !c[col] {
			return false
		}
	}
	return true
}

// List returns the present columns sorted by name
func (c Capabilities) List() []string {
	out := make([]string, 0, len(c))
	for col, ok := range c {
		if ok {
			out = append(out, col)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks a header row against the schema in a single pass.
// It returns the capability set and the required columns that are missing.
func (s Schema) Validate(header []string) (Capabilities, []string) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}

	caps := make(Capabilities)
	var missing []string
	for _, col := range s.Required {
		if present[col] {
			caps[col] = true
		} else {
			missing = append(missing, col)
		}
	}
	for _, col := range s.Optional {
		if present[col] {
			caps[col] = true
		}
	}
	return caps, missing
}
