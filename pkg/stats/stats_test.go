package stats

import (
	"testing"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestCountBy(t *testing.T) {
	counts := CountBy([]string{"NR", "CR", "NR", "", "WR", "CR", "NR"})

	assert.Equal(t, []Count{
		{Label: "NR", Value: 3},
		{Label: "CR", Value: 2},
		{Label: "WR", Value: 1},
	}, counts)
	assert.Len(t, Top(counts, 2), 2)
	assert.Len(t, Top(counts, 10), 3)
	assert.Empty(t, CountBy(nil))
}

func TestMeanBy(t *testing.T) {
	labels := []string{"A", "A", "B", "C", "C"}
	values := []*float64{f(2), f(4), f(10), nil, nil}

	means := MeanBy(labels, values, 5)
	assert.Equal(t, []Value{{Label: "B", Value: 10}, {Label: "A", Value: 3}}, means)
	assert.Len(t, MeanBy(labels, values, 1), 1)
}

func TestNewHistogram(t *testing.T) {
	var values []*float64
	for i := 0; i < 10; i++ {
		values = append(values, f(float64(i)))
	}
	values = append(values, nil)

	h := NewHistogram("x", values, 4)
	require.NotNil(t, h)
	require.Len(t, h.Bins, 4)
	assert.Equal(t, 10, h.Total)
	assert.Equal(t, 0.0, h.Min)
	assert.Equal(t, 9.0, h.Max)
	assert.InDelta(t, 4.5, h.Mean, 1e-9)

	sum := 0
	for _, b := range h.Bins {
		sum += b.Count
	}
	assert.Equal(t, 10, sum)
	assert.Equal(t, 3, h.Bins[0].Count)
	assert.Equal(t, 3, h.Bins[3].Count)
}

func TestNewHistogramDegenerate(t *testing.T) {
	assert.Nil(t, NewHistogram("x", nil, 10))
	assert.Nil(t, NewHistogram("x", []*float64{nil}, 10))

	h := NewHistogram("x", []*float64{f(5), f(5)}, 10)
	require.NotNil(t, h)
	require.Len(t, h.Bins, 1)
	assert.Equal(t, 2, h.Bins[0].Count)
}

func TestCrossTab(t *testing.T) {
	m := CrossTab(
		[]string{"Bihar", "Bihar", "Delhi", ""},
		[]string{"ECR", "ECR", "NR", "NR"},
	)

	assert.Equal(t, []string{"Bihar", "Delhi"}, m.Rows)
	assert.Equal(t, []string{"ECR", "NR"}, m.Cols)
	assert.Equal(t, [][]int{{2, 0}, {0, 1}}, m.Cells)
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"08:32:00", 8*60 + 32, true},
		{"23:59", 23*60 + 59, true},
		{"None", 0, false},
		{"", 0, false},
		{"25:00:00", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			m, ok := ParseClock(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.minutes, m)
		})
	}
}

func TestHourCounts(t *testing.T) {
	hours := HourCounts([]string{"00:10:00", "00:50", "13:00:00", "None"})
	require.Len(t, hours, 24)
	assert.Equal(t, 2, hours[0].Value)
	assert.Equal(t, 1, hours[13].Value)
	assert.Equal(t, "13", hours[13].Label)
}

func parse(t *testing.T, kind dataset.Kind, csv string) interface{} {
	t.Helper()
	var (
		v   interface{}
		err error
	)
	switch kind {
	case dataset.KindStations:
		v, err = dataset.ParseStations([]byte(csv))
	case dataset.KindTrains:
		v, err = dataset.ParseTrains([]byte(csv))
	case dataset.KindSchedules:
		v, err = dataset.ParseSchedules([]byte(csv))
	}
	require.NoError(t, err)
	return v
}

func TestStationsReport(t *testing.T) {
	table := parse(t, dataset.KindStations, `station_code,station_name,state,zone,latitude,longitude
A,Alpha,Bihar,ECR,25.6,85.1
B,Beta,Bihar,ECR,,
C,Gamma,Delhi,NR,28.6,77.2
`).(*dataset.StationTable)

	r := Stations(table)
	assert.True(t, r.Available)
	assert.Equal(t, Shape{Rows: 3, Columns: 6}, r.Shape)
	assert.Len(t, r.Head, 3)
	assert.Equal(t, Count{Label: "Bihar", Value: 2}, r.TopStates[0])
	assert.Len(t, r.Zones, 2)
	assert.Nil(t, r.TopAddresses)
	require.NotNil(t, r.StateZone)
	assert.Equal(t, []string{"'address' column not found in stations dataset."}, []string(r.Warnings))
}

func TestStationsReportUnavailable(t *testing.T) {
	r := Stations(&dataset.StationTable{})
	assert.False(t, r.Available)
	assert.Equal(t, Warnings{"No station data available."}, r.Warnings)
}

func TestTrainsReportMissingColumns(t *testing.T) {
	table := parse(t, dataset.KindTrains, `train_number,train_type
1,Express
2,Express
3,Local
`).(*dataset.TrainTable)

	r := Trains(table)
	assert.True(t, r.Available)
	assert.Equal(t, []Count{{Label: "Express", Value: 2}, {Label: "Local", Value: 1}}, r.Types)
	assert.Nil(t, r.Distance)
	assert.Nil(t, r.Speed)
	assert.Len(t, r.Warnings, 3)
}

func TestSchedulesReport(t *testing.T) {
	table := parse(t, dataset.KindSchedules, `train_number,station_code,station_name,halt_min,arrival_time,departure_time,day
1,A,Alpha,0,None,06:00:00,1
1,B,Beta,5,07:00:00,07:05:00,1
1,C,Gamma,0,09:00:00,None,1
2,B,Beta,10,10:00:00,10:10:00,2
`).(*dataset.ScheduleTable)

	r := Schedules(table)
	assert.True(t, r.Available)
	assert.Equal(t, Count{Label: "Beta", Value: 2}, r.Busiest[0])
	assert.Equal(t, []Count{{Label: "1", Value: 3}, {Label: "2", Value: 1}}, r.TopTrains)
	require.NotNil(t, r.StopsPerTrain)
	assert.Equal(t, 2, r.StopsPerTrain.Total)
	assert.Equal(t, Value{Label: "Beta", Value: 7.5}, r.AvgHalt[0])
	assert.Equal(t, []Count{{Label: "1", Value: 3}, {Label: "2", Value: 1}}, r.Days)
	assert.Equal(t, 1, r.ArrivalHours[7].Value)
	assert.Equal(t, 1, r.DepartureHours[6].Value)
	assert.Equal(t, []TimingPair{{Departure: 7*60 + 5, Arrival: 7 * 60}, {Departure: 10*60 + 10, Arrival: 10 * 60}}, r.Timings)
	assert.Len(t, r.Sample, 4)
	assert.Empty(t, r.Warnings)
}

func TestSchedulesReportWithoutOptionalColumns(t *testing.T) {
	table := parse(t, dataset.KindSchedules, `train_number,station_code
1,A
1,B
`).(*dataset.ScheduleTable)

	r := Schedules(table)
	assert.Equal(t, Count{Label: "A", Value: 1}, r.Busiest[0])
	assert.Nil(t, r.AvgHalt)
	assert.Nil(t, r.Halt)
	assert.Nil(t, r.ArrivalHours)
	assert.Nil(t, r.Timings)
	assert.Equal(t, Warnings{"'halt_min' column not found in schedules dataset."}, r.Warnings)
}
