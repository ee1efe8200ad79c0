package stats

import (
	"fmt"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/models"
)

// Chart sizes used by the dashboard tabs
const (
	HeadRows         = 10
	SampleRows       = 20
	TopStates        = 15
	TopAddresses     = 20
	TopBusiest       = 20
	TopHalts         = 20
	TopTrainsByStops = 10
	DistanceBins     = 50
	SpeedBins        = 50
	StopsBins        = 30
	HaltBins         = 40
	MaxTimingSamples = 5000
)

// Shape is the row and column count of a dataset
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Warnings collects user-facing notes for one tab
type Warnings []string

func (w *Warnings) missing(col string, kind dataset.Kind) {
	*w = append(*w, fmt.Sprintf("'%s' column not found in %s dataset.", col, kind))
}

// StationsReport backs the Stations tab
type StationsReport struct {
	Available    bool             `json:"available"`
	Shape        Shape            `json:"shape"`
	Head         []models.Station `json:"head"`
	TopStates    []Count          `json:"top_states,omitempty"`
	Zones        []Count          `json:"zones,omitempty"`
	TopAddresses []Count          `json:"top_addresses,omitempty"`
	StateZone    *Matrix          `json:"state_zone,omitempty"`
	Warnings     Warnings         `json:"warnings,omitempty"`
}

// TrainsReport backs the Trains tab
type TrainsReport struct {
	Available bool       `json:"available"`
	Shape     Shape      `json:"shape"`
	Types     []Count    `json:"types,omitempty"`
	Zones     []Count    `json:"zones,omitempty"`
	Distance  *Histogram `json:"distance,omitempty"`
	Speed     *Histogram `json:"speed,omitempty"`
	Warnings  Warnings   `json:"warnings,omitempty"`
}

// TimingPair is one arrival/departure sample in minutes after midnight
type TimingPair struct {
	Departure int `json:"departure"`
	Arrival   int `json:"arrival"`
}

// SchedulesReport backs the Schedules tab
type SchedulesReport struct {
	Available      bool                   `json:"available"`
	Shape          Shape                  `json:"shape"`
	Busiest        []Count                `json:"busiest,omitempty"`
	StopsPerTrain  *Histogram             `json:"stops_per_train,omitempty"`
	TopTrains      []Count                `json:"top_trains,omitempty"`
	AvgHalt        []Value                `json:"avg_halt,omitempty"`
	Halt           *Histogram             `json:"halt,omitempty"`
	Days           []Count                `json:"days,omitempty"`
	ArrivalHours   []Count                `json:"arrival_hours,omitempty"`
	DepartureHours []Count                `json:"departure_hours,omitempty"`
	Timings        []TimingPair           `json:"timings,omitempty"`
	Sample         []models.ScheduleEntry `json:"sample"`
	Warnings       Warnings               `json:"warnings,omitempty"`
}

// Stations summarises the stations table
func Stations(t *dataset.StationTable) *StationsReport {
	r := &StationsReport{
		Available: t.Available && len(t.Rows) > 0,
		Shape:     Shape{Rows: len(t.Rows), Columns: t.Columns()},
	}
	if !r.Available {
		r.Warnings = Warnings{"No station data available."}
		return r
	}
	for _, col := range t.Missing {
		r.Warnings.missing(col, dataset.KindStations)
	}

	r.Head = t.Rows[:min(HeadRows, len(t.Rows))]

	var states, zones, addresses []string
	for _, s := range t.Rows {
		states = append(states, s.State)
		zones = append(zones, s.Zone)
		addresses = append(addresses, s.Address)
	}

	if t.Caps.Has(dataset.ColState) {
		r.TopStates = Top(CountBy(states), TopStates)
	} else {
		r.Warnings.missing(dataset.ColState, dataset.KindStations)
	}
	if t.Caps.Has(dataset.ColZone) {
		r.Zones = CountBy(zones)
	} else {
		r.Warnings.missing(dataset.ColZone, dataset.KindStations)
	}
	if t.Caps.Has(dataset.ColAddress) {
		r.TopAddresses = Top(CountBy(addresses), TopAddresses)
	} else {
		r.Warnings.missing(dataset.ColAddress, dataset.KindStations)
	}
	if t.Caps.HasAll(dataset.ColState, dataset.ColZone) {
		r.StateZone = CrossTab(states, zones)
	}
	return r
}

// Trains summarises the trains table
func Trains(t *dataset.TrainTable) *TrainsReport {
	r := &TrainsReport{
		Available: t.Available && len(t.Rows) > 0,
		Shape:     Shape{Rows: len(t.Rows), Columns: t.Columns()},
	}
	if !r.Available {
		r.Warnings = Warnings{"No train data available."}
		return r
	}

	var types, zones []string
	var dist, speed []*float64
	for _, tr := range t.Rows {
		types = append(types, tr.Type)
		zones = append(zones, tr.Zone)
		dist = append(dist, tr.DistanceKm)
		speed = append(speed, tr.AvgSpeed)
	}

	if t.Caps.Has(dataset.ColTrainType) {
		r.Types = CountBy(types)
	} else {
		r.Warnings.missing(dataset.ColTrainType, dataset.KindTrains)
	}
	if t.Caps.Has(dataset.ColZone) {
		r.Zones = CountBy(zones)
	} else {
		r.Warnings.missing(dataset.ColZone, dataset.KindTrains)
	}
	if t.Caps.Has(dataset.ColDistanceKm) {
		r.Distance = NewHistogram(dataset.ColDistanceKm, dist, DistanceBins)
	} else {
		r.Warnings.missing(dataset.ColDistanceKm, dataset.KindTrains)
	}
	if t.Caps.Has(dataset.ColAvgSpeed) {
		r.Speed = NewHistogram(dataset.ColAvgSpeed, speed, SpeedBins)
	} else {
		r.Warnings.missing(dataset.ColAvgSpeed, dataset.KindTrains)
	}
	return r
}

// Schedules summarises the schedules table
func Schedules(t *dataset.ScheduleTable) *SchedulesReport {
	r := &SchedulesReport{
		Available: t.Available && len(t.Rows) > 0,
		Shape:     Shape{Rows: len(t.Rows), Columns: t.Columns()},
	}
	if !r.Available {
		r.Warnings = Warnings{"No schedules data available."}
		return r
	}
	for _, col := range t.Missing {
		r.Warnings.missing(col, dataset.KindSchedules)
	}

	caps := t.Caps
	r.Sample = t.Rows[:min(SampleRows, len(t.Rows))]

	// Busiest stations are keyed by name when the file has one
	useName := caps.Has(dataset.ColStationName)
	var stationKeys, trainKeys, days, arrivals, departures []string
	var halts []*float64
	for _, e := range t.Rows {
		key := e.StationCode
		if useName && e.StationName != "" {
			key = e.StationName
		}
		stationKeys = append(stationKeys, key)
		trainKeys = append(trainKeys, e.TrainNumber)
		days = append(days, e.Day)
		arrivals = append(arrivals, e.ArrivalTime)
		departures = append(departures, e.DepartureTime)
		halts = append(halts, e.HaltMin)
	}

	r.Busiest = Top(CountBy(stationKeys), TopBusiest)

	stops := CountBy(trainKeys)
	stopValues := make([]*float64, len(stops))
	for i, c := range stops {
		v := float64(c.Value)
		stopValues[i] = &v
	}
	r.StopsPerTrain = NewHistogram("stops", stopValues, StopsBins)
	r.TopTrains = Top(stops, TopTrainsByStops)

	if caps.Has(dataset.ColHaltMin) {
		r.AvgHalt = MeanBy(stationKeys, halts, TopHalts)
		r.Halt = NewHistogram(dataset.ColHaltMin, halts, HaltBins)
	} else {
		r.Warnings.missing(dataset.ColHaltMin, dataset.KindSchedules)
	}
	if caps.Has(dataset.ColDay) {
		r.Days = CountBy(days)
	}
	if caps.Has(dataset.ColArrivalTime) {
		r.ArrivalHours = HourCounts(arrivals)
	}
	if caps.Has(dataset.ColDepartureTime) {
		r.DepartureHours = HourCounts(departures)
	}
	if caps.HasAll(dataset.ColArrivalTime, dataset.ColDepartureTime) {
		r.Timings = timings(t.Rows, MaxTimingSamples)
	}
	return r
}

// timings samples rows where both clocks parse, evenly across the table
func timings(rows []models.ScheduleEntry, limit int) []TimingPair {
	var out []TimingPair
	step := 1
	if len(rows) > limit {
		step = len(rows)/limit + 1
	}
	for i := 0; i < len(rows); i += step {
		dep, ok1 := ParseClock(rows[i].DepartureTime)
		arr, ok2 := ParseClock(rows[i].ArrivalTime)
		if ok1 && ok2 {
			out = append(out, TimingPair{Departure: dep, Arrival: arr})
		}
	}
	return out
}
