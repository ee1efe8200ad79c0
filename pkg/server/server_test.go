package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1F47E/rail-eda/pkg/config"
	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationsCSV = `station_code,station_name,state,zone,latitude,longitude,address
NDLS,New Delhi,Delhi,NR,28.6139,77.2090,New Delhi
NZM,Hazrat Nizamuddin,Delhi,NR,28.5889,77.2507,New Delhi
CSMT,Mumbai CST,Maharashtra,CR,18.9398,72.8355,Mumbai
BLNK,Blank Coords,Bihar,ECR,,,Patna
`

const trainsCSV = `train_number,train_type,zone,distance_km,avg_speed
12951,Rajdhani,WR,1384,90
12002,Shatabdi,NR,195,85
`

const schedulesCSV = `train_number,station_code,station_name,halt_min,arrival_time,departure_time,day
12951,CSMT,Mumbai CST,0,None,17:00:00,1
12951,NDLS,New Delhi,0,08:32:00,None,2
12002,NDLS,New Delhi,0,06:00:00,06:00:00,1
12002,BLNK,Blank Coords,2,07:00:00,07:02:00,1
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"stations_clean.csv":  stationsCSV,
		"trains_clean.csv":    trainsCSV,
		"schedules_clean.csv": schedulesCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Reports.PDF = filepath.Join(dir, "report.pdf")
	cfg.Reports.DOCX = filepath.Join(dir, "report.docx")

	return New(cfg, dataset.NewRepository(cfg.DataPaths(), 4)), dir
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	datasets := body["datasets"].(map[string]interface{})
	assert.Equal(t, true, datasets["stations"])
	assert.Equal(t, true, datasets["schedules"])
}

func TestOverview(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/api/overview")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["located_stations"])
	datasets := body["datasets"].([]interface{})
	require.Len(t, datasets, 3)
	first := datasets[0].(map[string]interface{})
	assert.Equal(t, "stations", first["kind"])
	assert.Equal(t, float64(4), first["shape"].(map[string]interface{})["rows"])
}

func TestTabs(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/api/stations", "/api/trains", "/api/schedules"} {
		t.Run(path, func(t *testing.T) {
			w := get(t, s, path)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, true, decodeBody(t, w)["available"])
		})
	}
}

func TestDistance(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/geo/distance?from=NDLS&to=Mumbai+CST")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.InDelta(t, 1163.81, body["distance_km"].(float64), 0.05)
	assert.Equal(t, "CSMT", body["to"].(map[string]interface{})["station_code"])

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown station", "/api/geo/distance?from=NDLS&to=XXXX", http.StatusNotFound},
		{"station without coordinates", "/api/geo/distance?from=NDLS&to=BLNK", http.StatusNotFound},
		{"missing parameter", "/api/geo/distance?from=NDLS", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestHeatmap(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/api/geo/heatmap")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Len(t, body["points"], 3)
	assert.Nil(t, body["warning"])
	view := body["map"].(map[string]interface{})
	assert.Equal(t, float64(8), view["heat_radius"])
}

func TestHeatmapWithoutStations(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "stations_clean.csv")))

	w := get(t, s, "/api/geo/heatmap")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Empty(t, body["points"])
	assert.Equal(t, warnNoCoordinates, body["warning"])
	center := body["map"].(map[string]interface{})["center"].(map[string]interface{})
	assert.Equal(t, 20.5937, center["lat"])
}

func TestGeoStations(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/geo/stations")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["stations"], 3)
	assert.Len(t, body["options"], 4)
	first := body["options"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "New Delhi (NDLS)", first["label"])

	w = get(t, s, "/api/geo/stations?min_lat=28&min_lon=77&max_lat=29&max_lon=78")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["stations"], 2)

	w = get(t, s, "/api/geo/stations?min_lat=29&min_lon=77&max_lat=28&max_lon=78")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, s, "/api/geo/stations?min_lat=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainList(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/api/geo/trains")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"12951", "12002"}, decodeBody(t, w)["trains"])
}

func TestRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/geo/route/12951")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	points := body["points"].([]interface{})
	require.Len(t, points, 2)
	assert.Equal(t, 18.9398, points[0].(map[string]interface{})["lat"])
	assert.InDelta(t, 1163.81, body["length_km"].(float64), 0.05)

	w = get(t, s, "/api/geo/route/12002")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, warnRouteTooShort, decodeBody(t, w)["warning"])

	w = get(t, s, "/api/geo/route/99999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouteKML(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/api/geo/route/12951/kml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "kml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "train_12951.kml")
	assert.Contains(t, w.Body.String(), "<LineString>")
}

func TestNearest(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(t, s, "/api/geo/nearest?lat=28.61&lon=77.21&k=2")
	require.Equal(t, http.StatusOK, w.Code)
	neighbors := decodeBody(t, w)["neighbors"].([]interface{})
	require.Len(t, neighbors, 2)
	assert.Equal(t, "NDLS", neighbors[0].(map[string]interface{})["station_code"])
	assert.Equal(t, "NZM", neighbors[1].(map[string]interface{})["station_code"])

	for _, target := range []string{
		"/api/geo/nearest?lat=abc&lon=77",
		"/api/geo/nearest?lat=95&lon=77",
		"/api/geo/nearest?lat=28&lon=77&k=0",
	} {
		w := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestDownload(t *testing.T) {
	s, dir := newTestServer(t)

	w := get(t, s, "/api/downloads/stations")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stationsCSV, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stations_clean.csv")

	w = get(t, s, "/api/downloads/routes")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.Remove(filepath.Join(dir, "trains_clean.csv")))
	w = get(t, s, "/api/downloads/trains")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No trains data available.", decodeBody(t, w)["warning"])
}

func TestReport(t *testing.T) {
	s, dir := newTestServer(t)

	w := get(t, s, "/api/reports/pdf")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["warning"], "report.pdf")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o644))
	w = get(t, s, "/api/reports/pdf")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Final_Report.pdf")
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = get(t, s, "/api/reports/xls")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)

	cfg := corsConfig([]string{"http://localhost:3000"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowOrigins)
}
