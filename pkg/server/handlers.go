package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/export"
	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/1F47E/rail-eda/pkg/stats"
	"github.com/gin-gonic/gin"
)

// Warnings surfaced to the client next to the error
const (
	warnNoCoordinates = "No valid station coordinates available for Heatmap."
	warnRouteTooShort = "Not enough data to plot this route."
	warnNoSchedules   = "Schedule or station data with coordinates not available for routes."
	warnNoReport      = "Report not found. Place the %s file in the assets/ folder."
)

// datasetFileNames are the download names of the cleaned datasets
var datasetFileNames = map[dataset.Kind]string{
	dataset.KindStations:  "stations_clean.csv",
	dataset.KindTrains:    "trains_clean.csv",
	dataset.KindSchedules: "schedules_clean.csv",
}

type datasetStatus struct {
	Kind         dataset.Kind `json:"kind"`
	Available    bool         `json:"available"`
	Path         string       `json:"path"`
	Shape        stats.Shape  `json:"shape"`
	Capabilities []string     `json:"capabilities"`
	Missing      []string     `json:"missing,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

type mapView struct {
	Center     models.Location `json:"center"`
	Zoom       int             `json:"zoom"`
	HeatRadius int             `json:"heat_radius"`
}

type stationOption struct {
	Label string `json:"label"`
	Code  string `json:"station_code"`
}

func (s *Server) health(c *gin.Context) {
	snap := s.repo.Snapshot()
	available := make(map[dataset.Kind]bool, len(dataset.Kinds))
	for _, kind := range dataset.Kinds {
		available[kind] = snap.Meta(kind).Available
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "datasets": available})
}

func (s *Server) overview(c *gin.Context) {
	snap := s.repo.Snapshot()

	datasets := make([]datasetStatus, 0, len(dataset.Kinds))
	for _, kind := range dataset.Kinds {
		m := snap.Meta(kind)
		datasets = append(datasets, datasetStatus{
			Kind:         kind,
			Available:    m.Available,
			Path:         m.Path,
			Shape:        stats.Shape{Rows: rowCount(snap, kind), Columns: m.Columns()},
			Capabilities: m.Caps.List(),
			Missing:      m.Missing,
			Warnings:     m.Warnings,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets":         datasets,
		"located_stations": snap.Store.Len(),
		"rejected":         len(snap.Store.Rejected()),
		"map":              s.mapView(snap.Store),
	})
}

func (s *Server) stationsTab(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Stations(s.repo.Stations()))
}

func (s *Server) trainsTab(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Trains(s.repo.Trains()))
}

func (s *Server) schedulesTab(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Schedules(s.repo.Schedules()))
}

// geoStations lists located stations, optionally restricted to a bounding
// box given by min_lat, min_lon, max_lat and max_lon
func (s *Server) geoStations(c *gin.Context) {
	snap := s.repo.Snapshot()

	entries := snap.Store.Entries()
	if c.Query("min_lat") != "" || c.Query("max_lat") != "" {
		box, err := parseBox(c)
		if err != nil {
			respondError(c, err)
			return
		}
		entries, err = s.index(snap.Store).QueryBox(box)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	options := make([]stationOption, 0, len(snap.Stations.Rows))
	for _, st := range snap.Stations.Rows {
		if st.Code == "" && st.Name == "" {
			continue
		}
		options = append(options, stationOption{Label: st.Label(), Code: st.Code})
	}

	c.JSON(http.StatusOK, gin.H{
		"stations": entries,
		"options":  options,
		"map":      s.mapView(snap.Store),
	})
}

func (s *Server) heatmap(c *gin.Context) {
	snap := s.repo.Snapshot()
	resp := gin.H{
		"points": geo.BuildHeatPoints(snap.Store),
		"map":    s.mapView(snap.Store),
	}
	if snap.Store.Len() == 0 {
		resp["warning"] = warnNoCoordinates
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) distance(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		respondError(c, fmt.Errorf("from and to are required: %w", geo.ErrInvalidInput))
		return
	}

	store := s.repo.Snapshot().Store
	km, err := geo.DistanceBetween(store, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	a, _ := store.Resolve(from)
	b, _ := store.Resolve(to)
	c.JSON(http.StatusOK, gin.H{
		"from":        a,
		"to":          b,
		"distance_km": km,
	})
}

func (s *Server) trainList(c *gin.Context) {
	snap := s.repo.Snapshot()
	resp := gin.H{"trains": geo.TrainNumbers(snap.Trains.Rows, snap.Schedules.Rows)}
	if !snap.Schedules.Available || snap.Store.Len() == 0 {
		resp["warning"] = warnNoSchedules
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) buildRoute(c *gin.Context) (*models.Route, bool) {
	snap := s.repo.Snapshot()
	route, err := geo.BuildRoute(c.Param("train"), snap.Schedules.Rows, snap.Store)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return route, true
}

func (s *Server) route(c *gin.Context) {
	route, ok := s.buildRoute(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, route)
}

func (s *Server) routeKML(c *gin.Context) {
	route, ok := s.buildRoute(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.RouteKML(&buf, route); err != nil {
		respondError(c, fmt.Errorf("failed to render route: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "train_"+route.TrainNumber+".kml"))
	c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
}

func (s *Server) nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(c, fmt.Errorf("lat and lon must be numbers: %w", geo.ErrInvalidInput))
		return
	}
	center := models.Location{Lat: lat, Lon: lon}
	if err := geo.ValidateLocation(center); err != nil {
		respondError(c, err)
		return
	}

	k := 5
	if v := c.Query("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, fmt.Errorf("k must be a positive integer: %w", geo.ErrInvalidInput))
			return
		}
		k = n
	}

	idx := s.index(s.repo.Snapshot().Store)
	c.JSON(http.StatusOK, gin.H{
		"center":    center,
		"neighbors": idx.NearestNeighbors(center, k),
	})
}

func (s *Server) download(c *gin.Context) {
	kind := dataset.Kind(c.Param("dataset"))
	name, ok := datasetFileNames[kind]
	if !ok {
		respondError(c, fmt.Errorf("dataset %q: %w", kind, geo.ErrNotFound))
		return
	}

	m := s.repo.Snapshot().Meta(kind)
	if !m.Available {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   fmt.Sprintf("%s dataset not available", kind),
			"warning": fmt.Sprintf("No %s data available.", kind),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv", m.Raw)
}

func (s *Server) report(c *gin.Context) {
	var path, name string
	switch c.Param("format") {
	case "pdf":
		path, name = s.cfg.Reports.PDF, "Final_Report.pdf"
	case "docx":
		path, name = s.cfg.Reports.DOCX, "Final_Report.docx"
	default:
		respondError(c, fmt.Errorf("report format %q: %w", c.Param("format"), geo.ErrNotFound))
		return
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   fmt.Sprintf("report %s not found", path),
			"warning": fmt.Sprintf(warnNoReport, filepath.Base(path)),
		})
		return
	}
	c.FileAttachment(path, name)
}

// mapView centers on the stored stations, falling back to the configured center
func (s *Server) mapView(store *geo.Store) mapView {
	center := models.Location{Lat: s.cfg.Map.CenterLat, Lon: s.cfg.Map.CenterLon}
	if c, ok := store.Center(); ok {
		center = c
	}
	return mapView{Center: center, Zoom: s.cfg.Map.Zoom, HeatRadius: s.cfg.Map.HeatRadius}
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	switch {
	case errors.Is(err, geo.ErrRouteTooShort):
		status = http.StatusUnprocessableEntity
		body["warning"] = warnRouteTooShort
	case errors.Is(err, geo.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, geo.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, body)
}

func parseBox(c *gin.Context) (models.BoundingBox, error) {
	var vals [4]float64
	for i, key := range []string{"min_lat", "min_lon", "max_lat", "max_lon"} {
		v, err := strconv.ParseFloat(c.Query(key), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("%s must be a number: %w", key, geo.ErrInvalidInput)
		}
		vals[i] = v
	}
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: vals[0], Lon: vals[1]},
		TopRight:   models.Location{Lat: vals[2], Lon: vals[3]},
	}, nil
}

func rowCount(snap *dataset.Snapshot, kind dataset.Kind) int {
	switch kind {
	case dataset.KindStations:
		return len(snap.Stations.Rows)
	case dataset.KindTrains:
		return len(snap.Trains.Rows)
	case dataset.KindSchedules:
		return len(snap.Schedules.Rows)
	}
	return 0
}
