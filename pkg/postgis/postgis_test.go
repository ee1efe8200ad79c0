package postgis

import (
	"os"
	"strconv"
	"testing"

	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	assert.Equal(t,
		"host=db port=5433 user=rail password=secret dbname=eda sslmode=disable",
		ConnString("db", "rail", "secret", "eda", 5433))
}

// TestStationDB runs against a live PostGIS when RAIL_EDA_TEST_POSTGIS_HOST is set
func TestStationDB(t *testing.T) {
	host := os.Getenv("RAIL_EDA_TEST_POSTGIS_HOST")
	if host == "" {
		t.Skip("RAIL_EDA_TEST_POSTGIS_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("RAIL_EDA_TEST_POSTGIS_PORT"))
	if port == 0 {
		port = 5432
	}

	db, err := NewStationDB(host, "postgres", os.Getenv("RAIL_EDA_TEST_POSTGIS_PASSWORD"), "postgres", port)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.InitSchema())
	n, err := db.InsertStations([]geo.Entry{
		{Code: "NDLS", Name: "New Delhi", Location: models.Location{Lat: 28.6139, Lon: 77.209}},
		{Code: "NDLS", Name: "Duplicate", Location: models.Location{Lat: 0, Lon: 0}},
		{Code: "CSMT", Name: "Mumbai CST", Location: models.Location{Lat: 18.9398, Lon: 72.8355}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, db.CreateSpatialIndex())

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	results, err := db.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lat: 25, Lon: 70},
		TopRight:   models.Location{Lat: 30, Lon: 80},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NDLS", results[0].Code)
}
