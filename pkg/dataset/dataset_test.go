package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluele/gcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationsCSV = `station_code,station_name,state,zone,latitude,longitude,address
NDLS,New Delhi,Delhi,NR,28.6139,77.2090,New Delhi
CSMT,Mumbai CST,Maharashtra,CR,18.9398,72.8355,Mumbai
BLNK,Blank Coords,Bihar,ECR,,,Patna
JUNK,Junk Coords,Bihar,ECR,abc,85.1,Patna
`

const trainsCSV = `train_number,train_type,distance_km
12951,Rajdhani,1384
12002,Shatabdi,
`

const schedulesCSV = `train_number,station_code,station_name,halt_min,arrival_time,departure_time,day
12951,CSMT,Mumbai CST,0,None,17:00:00,1
12951,NDLS,New Delhi,0,08:32:00,None,2
12002,NDLS,New Delhi,,06:00:00,06:00:00,1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaValidate(t *testing.T) {
	caps, missing := SchedulesSchema.Validate([]string{"train_number", " halt_min ", "extra"})

	assert.Equal(t, []string{ColStationCode}, missing)
	assert.True(t, caps.Has(ColTrainNumber))
	assert.True(t, caps.Has(ColHaltMin))
	assert.False(t, caps.Has("extra"))
	assert.False(t, caps.HasAll(ColArrivalTime, ColDepartureTime))
	assert.Equal(t, []string{ColHaltMin, ColTrainNumber}, caps.List())
}

func TestSchemaFor(t *testing.T) {
	for _, kind := range Kinds {
		s, ok := SchemaFor(kind)
		assert.True(t, ok)
		assert.Equal(t, kind, s.Kind)
	}
	_, ok := SchemaFor("routes")
	assert.False(t, ok)
}

func TestParseStations(t *testing.T) {
	table, err := ParseStations([]byte(stationsCSV))
	require.NoError(t, err)

	require.Len(t, table.Rows, 4)
	assert.Equal(t, 7, table.Columns())
	assert.True(t, table.Caps.HasAll(ColLatitude, ColLongitude, ColAddress))
	assert.Empty(t, table.Missing)

	ndls := table.Rows[0]
	require.NotNil(t, ndls.Latitude)
	assert.Equal(t, 28.6139, *ndls.Latitude)
	assert.Equal(t, "Delhi", ndls.State)

	assert.Nil(t, table.Rows[2].Latitude)
	assert.Nil(t, table.Rows[2].Longitude)
	assert.Nil(t, table.Rows[3].Latitude)
	require.NotNil(t, table.Rows[3].Longitude)
	assert.Len(t, table.Warnings, 1)
}

func TestParseTrainsMissingColumns(t *testing.T) {
	table, err := ParseTrains([]byte(trainsCSV))
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.False(t, table.Caps.Has(ColZone))
	assert.False(t, table.Caps.Has(ColAvgSpeed))
	assert.Empty(t, table.Missing)

	assert.Equal(t, "", table.Rows[0].Zone)
	assert.Nil(t, table.Rows[0].AvgSpeed)
	require.NotNil(t, table.Rows[0].DistanceKm)
	assert.Equal(t, 1384.0, *table.Rows[0].DistanceKm)
	assert.Nil(t, table.Rows[1].DistanceKm)
}

func TestParseSchedulesKeepsOrder(t *testing.T) {
	table, err := ParseSchedules([]byte(schedulesCSV))
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	for i, row := range table.Rows {
		assert.Equal(t, i, row.Sequence)
	}
	assert.Equal(t, "CSMT", table.Rows[0].StationCode)
	assert.Equal(t, "NDLS", table.Rows[1].StationCode)
	assert.Nil(t, table.Rows[2].HaltMin)
	assert.True(t, table.Caps.HasAll(ColArrivalTime, ColDepartureTime, ColDay))
}

func TestParseMissingRequiredColumn(t *testing.T) {
	table, err := ParseSchedules([]byte("train_number,halt_min\n1,5\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{ColStationCode}, table.Missing)
	assert.Contains(t, table.Warnings[0], "station_code")
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "", table.Rows[0].StationCode)
}

func TestParseEmptyAndBOM(t *testing.T) {
	table, err := ParseStations(nil)
	require.NoError(t, err)
	assert.True(t, table.Available)
	assert.Empty(t, table.Rows)

	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte(stationsCSV)...)
	table, err = ParseStations(bom)
	require.NoError(t, err)
	assert.True(t, table.Caps.Has(ColStationCode))
	assert.Equal(t, "NDLS", table.Rows[0].Code)
	assert.Equal(t, bom, table.Raw)
}

func TestParseFloat(t *testing.T) {
	testCases := []struct {
		in    string
		isNil bool
		ok    bool
	}{
		{"12.5", false, true},
		{" -3 ", false, true},
		{"", true, true},
		{"NaN", true, true},
		{"n/a", true, false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			v, ok := parseFloat(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.isNil, v == nil)
		})
	}
}

func TestRepositoryMissingFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(Paths{
		Stations:  filepath.Join(dir, "stations.csv"),
		Trains:    filepath.Join(dir, "trains.csv"),
		Schedules: "",
	}, 0)

	snap := repo.Snapshot()
	assert.False(t, snap.Stations.Available)
	assert.False(t, snap.Trains.Available)
	assert.False(t, snap.Schedules.Available)
	assert.Empty(t, snap.Stations.Rows)
	assert.Equal(t, 0, snap.Store.Len())
	assert.NotEmpty(t, snap.Meta(KindTrains).Warnings)
}

func TestRepositoryCachesUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stations.csv", stationsCSV)
	repo := NewRepository(Paths{Stations: path}, 4)

	first := repo.Stations()
	second := repo.Stations()
	assert.Same(t, first, second)
	assert.Equal(t, path, first.Path)

	snapA := repo.Snapshot()
	snapB := repo.Snapshot()
	assert.Same(t, snapA.Store, snapB.Store)
	assert.Equal(t, 2, snapA.Store.Len())

	updated := stationsCSV + "HWH,Howrah,West Bengal,ER,22.5839,88.3425,Kolkata\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	third := repo.Stations()
	assert.NotSame(t, first, third)
	assert.Len(t, third.Rows, 5)
	assert.Equal(t, 3, repo.Snapshot().Store.Len())

	// the superseded version is dropped from the cache
	assert.Len(t, first.Rows, 4)
	oldKey := fmt.Sprintf("%s|%s|%d|%d", KindStations, path, first.ModTime.UnixNano(), len(first.Raw))
	_, err := repo.cache.GetIFPresent(oldKey)
	assert.ErrorIs(t, err, gcache.KeyNotFoundError)
}

func TestRepositoryRawIsVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schedules.csv", schedulesCSV)
	repo := NewRepository(Paths{Schedules: path}, 0)

	assert.Equal(t, []byte(schedulesCSV), repo.Schedules().Raw)
}

func TestRepositoryToleratesMalformedRows(t *testing.T) {
	dir := t.TempDir()
	content := stationsCSV +
		"SHRT,Short Row,Bihar\n" +
		`HWH,Howrah,West Bengal,ER,22.5839,88.3425,Near "Old" Church` + "\n"
	path := writeFile(t, dir, "stations.csv", content)
	repo := NewRepository(Paths{Stations: path}, 0)

	snap := repo.Snapshot()
	require.True(t, snap.Stations.Available)
	require.Len(t, snap.Stations.Rows, 6)

	short := snap.Stations.Rows[4]
	assert.Equal(t, "SHRT", short.Code)
	assert.Equal(t, "Bihar", short.State)
	assert.Empty(t, short.Zone)
	assert.Nil(t, short.Latitude)
	assert.Nil(t, short.Longitude)

	hwh := snap.Stations.Rows[5]
	assert.Equal(t, `Near "Old" Church`, hwh.Address)
	require.NotNil(t, hwh.Latitude)
	assert.Equal(t, 22.5839, *hwh.Latitude)

	assert.Equal(t, 3, snap.Store.Len())
}
