package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/gocarina/gocsv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Meta describes one loaded file
type Meta struct {
	Kind      Kind
	Path      string
	Available bool
	ModTime   time.Time
	Header    []string
	Caps      Capabilities
	Missing   []string
	Warnings  []string
	// Raw holds the file bytes verbatim for downloads
	Raw []byte
}

// Columns returns the number of header columns
func (m *Meta) Columns() int {
	return len(m.Header)
}

func (m *Meta) warnf(format string, args ...interface{}) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// StationTable is the parsed stations file
type StationTable struct {
	Meta
	Rows []models.Station
}

// TrainTable is the parsed trains file
type TrainTable struct {
	Meta
	Rows []models.Train
}

// ScheduleTable is the parsed schedules file
type ScheduleTable struct {
	Meta
	Rows []models.ScheduleEntry
}

type stationRow struct {
	Code      string `csv:"station_code"`
	Name      string `csv:"station_name"`
	State     string `csv:"state"`
	Zone      string `csv:"zone"`
	Address   string `csv:"address"`
	Latitude  string `csv:"latitude"`
	Longitude string `csv:"longitude"`
}

type trainRow struct {
	Number     string `csv:"train_number"`
	Type       string `csv:"train_type"`
	Zone       string `csv:"zone"`
	DistanceKm string `csv:"distance_km"`
	AvgSpeed   string `csv:"avg_speed"`
}

type scheduleRow struct {
	TrainNumber   string `csv:"train_number"`
	StationCode   string `csv:"station_code"`
	StationName   string `csv:"station_name"`
	HaltMin       string `csv:"halt_min"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	Day           string `csv:"day"`
}

// ParseStations decodes a stations CSV
func ParseStations(data []byte) (*StationTable, error) {
	t := &StationTable{Meta: Meta{Kind: KindStations}}
	var rows []stationRow
	if err := decode(&t.Meta, StationsSchema, data, &rows); err != nil {
		return nil, err
	}

	invalid := 0
	t.Rows = make([]models.Station, 0, len(rows))
	for _, r := range rows {
		lat, ok1 := parseFloat(r.Latitude)
		lon, ok2 := parseFloat(r.Longitude)
		if !ok1 || !ok2 {
			invalid++
		}
		t.Rows = append(t.Rows, models.Station{
			Code:      strings.TrimSpace(r.Code),
			Name:      strings.TrimSpace(r.Name),
			State:     strings.TrimSpace(r.State),
			Zone:      strings.TrimSpace(r.Zone),
			Address:   strings.TrimSpace(r.Address),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	if invalid > 0 {
		t.warnf("%d stations have non-numeric coordinates", invalid)
	}
	return t, nil
}

// ParseTrains decodes a trains CSV
func ParseTrains(data []byte) (*TrainTable, error) {
	t := &TrainTable{Meta: Meta{Kind: KindTrains}}
	var rows []trainRow
	if err := decode(&t.Meta, TrainsSchema, data, &rows); err != nil {
		return nil, err
	}

	invalid := 0
	t.Rows = make([]models.Train, 0, len(rows))
	for _, r := range rows {
		dist, ok1 := parseFloat(r.DistanceKm)
		speed, ok2 := parseFloat(r.AvgSpeed)
		if !ok1 || !ok2 {
			invalid++
		}
		t.Rows = append(t.Rows, models.Train{
			Number:     strings.TrimSpace(r.Number),
			Type:       strings.TrimSpace(r.Type),
			Zone:       strings.TrimSpace(r.Zone),
			DistanceKm: dist,
			AvgSpeed:   speed,
		})
	}
	if invalid > 0 {
		t.warnf("%d trains have non-numeric distance or speed", invalid)
	}
	return t, nil
}

// ParseSchedules decodes a schedules CSV. Row order is kept as Sequence.
func ParseSchedules(data []byte) (*ScheduleTable, error) {
	t := &ScheduleTable{Meta: Meta{Kind: KindSchedules}}
	var rows []scheduleRow
	if err := decode(&t.Meta, SchedulesSchema, data, &rows); err != nil {
		return nil, err
	}

	invalid := 0
	t.Rows = make([]models.ScheduleEntry, 0, len(rows))
	for i, r := range rows {
		halt, ok := parseFloat(r.HaltMin)
		if !ok {
			invalid++
		}
		t.Rows = append(t.Rows, models.ScheduleEntry{
			Sequence:      i,
			TrainNumber:   strings.TrimSpace(r.TrainNumber),
			StationCode:   strings.TrimSpace(r.StationCode),
			StationName:   strings.TrimSpace(r.StationName),
			HaltMin:       halt,
			ArrivalTime:   strings.TrimSpace(r.ArrivalTime),
			DepartureTime: strings.TrimSpace(r.DepartureTime),
			Day:           strings.TrimSpace(r.Day),
		})
	}
	if invalid > 0 {
		t.warnf("%d schedule rows have a non-numeric halt_min", invalid)
	}
	return t, nil
}

// decode validates the header and unmarshals the rows into out.
// An empty file yields an available table with no rows.
func decode(meta *Meta, schema Schema, data []byte, out interface{}) error {
	meta.Raw = data
	meta.Available = true
	meta.Caps = make(Capabilities)

	body := bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	header, err := newCSVReader(body).Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read %s header: %w", schema.Kind, err)
	}
	meta.Header = header
	meta.Caps, meta.Missing = schema.Validate(header)
	for _, col := range meta.Missing {
		meta.warnf("'%s' column not found in %s dataset", col, schema.Kind)
	}

	if err := gocsv.UnmarshalCSV(newCSVReader(body), out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("failed to decode %s rows: %w", schema.Kind, err)
	}
	return nil
}

// newCSVReader tolerates ragged rows and stray quotes inside unquoted fields.
// Missing trailing cells decode as blanks.
func newCSVReader(body []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// parseFloat returns nil for a blank or NaN cell and false for garbage
func parseFloat(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	if math.IsNaN(v) {
		return nil, true
	}
	return &v, true
}
