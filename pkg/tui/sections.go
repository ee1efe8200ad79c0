package tui

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/1F47E/rail-eda/pkg/stats"
)

const (
	// histogramBuckets is how many rows a histogram collapses into on screen
	histogramBuckets = 10
	// maxChartItems caps the rows of a count chart
	maxChartItems = 12
	// densityCellDeg is the grid size the station density is summarised on
	densityCellDeg = 1.0
	maxRouteStops  = 15
)

// Tab is one dashboard page
type Tab int

const (
	TabStations Tab = iota
	TabTrains
	TabSchedules
	TabGeospatial
	TabDownloads
)

// Tabs lists the pages in display order
var Tabs = []Tab{TabStations, TabTrains, TabSchedules, TabGeospatial, TabDownloads}

func (t Tab) String() string {
	switch t {
	case TabStations:
		return "Stations"
	case TabTrains:
		return "Trains"
	case TabSchedules:
		return "Schedules"
	case TabGeospatial:
		return "Geospatial"
	case TabDownloads:
		return "Downloads"
	}
	return "?"
}

type stat struct {
	Label string
	Value string
}

type chartItem struct {
	Label string
	Value float64
}

type chart struct {
	Title string
	Items []chartItem
}

// section is renderer-neutral tab content, drawn by both the TUI and the
// plain report
type section struct {
	Title    string
	Stats    []stat
	Charts   []chart
	Lines    []string
	Warnings []string
}

// Selection is the user's choice on the geospatial tab
type Selection struct {
	Train int
	From  int
	To    int
}

// Reports holds the summaries of all three tables
type Reports struct {
	Stations  *stats.StationsReport
	Trains    *stats.TrainsReport
	Schedules *stats.SchedulesReport
}

// Summarise computes the tab reports of a snapshot
func Summarise(snap *dataset.Snapshot) Reports {
	return Reports{
		Stations:  stats.Stations(snap.Stations),
		Trains:    stats.Trains(snap.Trains),
		Schedules: stats.Schedules(snap.Schedules),
	}
}

// ReportPaths locates the downloadable report documents
type ReportPaths struct {
	PDF  string
	DOCX string
}

func countChart(title string, counts []stats.Count) chart {
	c := chart{Title: title}
	for _, cnt := range counts[:min(maxChartItems, len(counts))] {
		c.Items = append(c.Items, chartItem{Label: cnt.Label, Value: float64(cnt.Value)})
	}
	return c
}

func valueChart(title string, values []stats.Value) chart {
	c := chart{Title: title}
	for _, v := range values[:min(maxChartItems, len(values))] {
		c.Items = append(c.Items, chartItem{Label: v.Label, Value: v.Value})
	}
	return c
}

// histogramChart merges adjacent bins so the chart fits the screen
func histogramChart(title string, h *stats.Histogram) chart {
	c := chart{Title: fmt.Sprintf("%s (n=%d, mean %.1f)", title, h.Total, h.Mean)}
	per := int(math.Ceil(float64(len(h.Bins)) / histogramBuckets))
	for i := 0; i < len(h.Bins); i += per {
		end := min(i+per, len(h.Bins))
		total := 0
		for _, b := range h.Bins[i:end] {
			total += b.Count
		}
		c.Items = append(c.Items, chartItem{
			Label: fmt.Sprintf("%.0f-%.0f", h.Bins[i].Lo, h.Bins[end-1].Hi),
			Value: float64(total),
		})
	}
	return c
}

func shapeStats(s stats.Shape) []stat {
	return []stat{
		{"Rows", fmt.Sprint(s.Rows)},
		{"Columns", fmt.Sprint(s.Columns)},
	}
}

func stationSections(r *stats.StationsReport) []section {
	sec := section{Title: "Stations Overview", Warnings: r.Warnings}
	if !r.Available {
		return []section{sec}
	}
	sec.Stats = shapeStats(r.Shape)
	for _, s := range r.Head {
		sec.Lines = append(sec.Lines, fmt.Sprintf("%-8s %-28s %-18s %s", s.Code, s.Name, s.State, s.Zone))
	}

	charts := section{Title: "Station Distribution"}
	if len(r.TopStates) > 0 {
		charts.Charts = append(charts.Charts, countChart("Top states by station count", r.TopStates))
	}
	if len(r.Zones) > 0 {
		charts.Charts = append(charts.Charts, countChart("Stations per zone", r.Zones))
	}
	if len(r.TopAddresses) > 0 {
		charts.Charts = append(charts.Charts, countChart("Most common addresses", r.TopAddresses))
	}
	if r.StateZone != nil {
		charts.Lines = append(charts.Lines, fmt.Sprintf("State x zone table: %d states across %d zones",
			len(r.StateZone.Rows), len(r.StateZone.Cols)))
	}
	return []section{sec, charts}
}

func trainSections(r *stats.TrainsReport) []section {
	sec := section{Title: "Trains Overview", Warnings: r.Warnings}
	if !r.Available {
		return []section{sec}
	}
	sec.Stats = shapeStats(r.Shape)
	if len(r.Types) > 0 {
		sec.Charts = append(sec.Charts, countChart("Train types", r.Types))
	}
	if len(r.Zones) > 0 {
		sec.Charts = append(sec.Charts, countChart("Trains per zone", r.Zones))
	}
	if r.Distance != nil {
		sec.Charts = append(sec.Charts, histogramChart("Distance (km)", r.Distance))
	}
	if r.Speed != nil {
		sec.Charts = append(sec.Charts, histogramChart("Average speed (km/h)", r.Speed))
	}
	return []section{sec}
}

func scheduleSections(r *stats.SchedulesReport) []section {
	sec := section{Title: "Schedules Overview", Warnings: r.Warnings}
	if !r.Available {
		return []section{sec}
	}
	sec.Stats = shapeStats(r.Shape)
	sec.Charts = append(sec.Charts, countChart("Busiest stations", r.Busiest))
	if r.StopsPerTrain != nil {
		sec.Charts = append(sec.Charts, histogramChart("Stops per train", r.StopsPerTrain))
	}
	sec.Charts = append(sec.Charts, countChart("Trains with most stops", r.TopTrains))

	timing := section{Title: "Halts and Timing"}
	if len(r.AvgHalt) > 0 {
		timing.Charts = append(timing.Charts, valueChart("Longest average halt (min)", r.AvgHalt))
	}
	if r.Halt != nil {
		timing.Charts = append(timing.Charts, histogramChart("Halt duration (min)", r.Halt))
	}
	if len(r.Days) > 0 {
		timing.Charts = append(timing.Charts, countChart("Entries per day", r.Days))
	}
	if len(r.DepartureHours) > 0 {
		timing.Charts = append(timing.Charts, chart{Title: "Departures by hour", Items: hourItems(r.DepartureHours)})
	}
	if len(r.ArrivalHours) > 0 {
		timing.Charts = append(timing.Charts, chart{Title: "Arrivals by hour", Items: hourItems(r.ArrivalHours)})
	}
	if len(r.Timings) > 0 {
		timing.Lines = append(timing.Lines, fmt.Sprintf("%d departure/arrival pairs sampled", len(r.Timings)))
	}
	return []section{sec, timing}
}

// hourItems folds 24 hourly buckets into six 4-hour rows
func hourItems(hours []stats.Count) []chartItem {
	var items []chartItem
	for i := 0; i < len(hours); i += 4 {
		end := min(i+4, len(hours))
		total := 0
		for _, h := range hours[i:end] {
			total += h.Value
		}
		items = append(items, chartItem{Label: fmt.Sprintf("%02d-%02dh", i, end), Value: float64(total)})
	}
	return items
}

// densityChart counts heat points per grid cell, densest first
func densityChart(points []models.HeatPoint) chart {
	labels := make([]string, len(points))
	for i, p := range points {
		lat := math.Floor(p.Lat/densityCellDeg) * densityCellDeg
		lon := math.Floor(p.Lon/densityCellDeg) * densityCellDeg
		labels[i] = fmt.Sprintf("%.0fN %.0fE", lat, lon)
	}
	return countChart("Station density (1 degree cells)", stats.CountBy(labels))
}

func geoSections(snap *dataset.Snapshot, sel Selection, center models.Location) []section {
	store := snap.Store

	overview := section{Title: "Station Map"}
	if store.Len() == 0 {
		overview.Warnings = []string{"No valid station coordinates available for Heatmap."}
		return []section{overview}
	}
	if c, ok := store.Center(); ok {
		center = c
	}
	overview.Stats = []stat{
		{"Located stations", fmt.Sprint(store.Len())},
		{"Excluded", fmt.Sprint(len(store.Rejected()))},
		{"Map center", fmt.Sprintf("%.4f, %.4f", center.Lat, center.Lon)},
	}
	overview.Charts = []chart{densityChart(geo.BuildHeatPoints(store))}

	dist := section{Title: "Distance Calculator"}
	entries := store.Entries()
	from, to := entries[wrap(sel.From, len(entries))], entries[wrap(sel.To, len(entries))]
	// measure the selected entries directly, codes are not unique
	dist.Stats = []stat{
		{"From", entryLabel(from)},
		{"To", entryLabel(to)},
		{"Distance", fmt.Sprintf("%.2f km", geo.LocationDistance(from.Location, to.Location))},
	}

	return []section{overview, dist, routeSection(snap, sel)}
}

func entryLabel(e geo.Entry) string {
	return models.Station{Code: e.Code, Name: e.Name}.Label()
}

func routeSection(snap *dataset.Snapshot, sel Selection) section {
	sec := section{Title: "Train Route"}
	trains := geo.TrainNumbers(snap.Trains.Rows, snap.Schedules.Rows)
	if len(trains) == 0 || !snap.Schedules.Available {
		sec.Warnings = []string{"Schedule or station data with coordinates not available for routes."}
		return sec
	}

	number := trains[wrap(sel.Train, len(trains))]
	route, err := geo.BuildRoute(number, snap.Schedules.Rows, snap.Store)
	switch {
	case errors.Is(err, geo.ErrRouteTooShort):
		sec.Stats = []stat{{"Train", number}}
		sec.Warnings = []string{"Not enough data to plot this route."}
		return sec
	case err != nil:
		sec.Stats = []stat{{"Train", number}}
		sec.Warnings = []string{err.Error()}
		return sec
	}

	sec.Stats = []stat{
		{"Train", number},
		{"Plotted stops", fmt.Sprint(len(route.Points))},
		{"Path length", fmt.Sprintf("%.1f km", route.LengthKm)},
	}
	for i, s := range route.Stops {
		if i == maxRouteStops {
			sec.Lines = append(sec.Lines, fmt.Sprintf("... %d more", len(route.Stops)-maxRouteStops))
			break
		}
		sec.Lines = append(sec.Lines, fmt.Sprintf("%3d  %-8s %-28s %8.4f %8.4f",
			i+1, s.Code, s.Name, s.Location.Lat, s.Location.Lon))
	}
	if len(route.Skipped) > 0 {
		sec.Warnings = []string{fmt.Sprintf("%d stops without coordinates skipped: %s",
			len(route.Skipped), strings.Join(route.Skipped, ", "))}
	}
	return sec
}

func downloadSections(snap *dataset.Snapshot, reports ReportPaths) []section {
	data := section{Title: "Cleaned Datasets"}
	for _, kind := range dataset.Kinds {
		m := snap.Meta(kind)
		if !m.Available {
			data.Warnings = append(data.Warnings, fmt.Sprintf("No %s data available.", kind))
			continue
		}
		data.Stats = append(data.Stats, stat{
			Label: string(kind),
			Value: fmt.Sprintf("%s (%s)", m.Path, humanSize(len(m.Raw))),
		})
	}

	docs := section{Title: "Final Report"}
	for _, p := range []string{reports.PDF, reports.DOCX} {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			docs.Warnings = append(docs.Warnings, fmt.Sprintf("Report not found: %s", p))
			continue
		}
		docs.Stats = append(docs.Stats, stat{Label: "report", Value: fmt.Sprintf("%s (%s)", p, humanSize(int(info.Size())))})
	}
	docs.Lines = []string{"Run `rail-eda serve` to download these over HTTP."}
	return []section{data, docs}
}

// sectionsFor builds the content of one tab
func sectionsFor(tab Tab, snap *dataset.Snapshot, reps Reports, sel Selection, center models.Location, reports ReportPaths) []section {
	switch tab {
	case TabStations:
		return stationSections(reps.Stations)
	case TabTrains:
		return trainSections(reps.Trains)
	case TabSchedules:
		return scheduleSections(reps.Schedules)
	case TabGeospatial:
		return geoSections(snap, sel, center)
	case TabDownloads:
		return downloadSections(snap, reports)
	}
	return nil
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// wrap maps any integer onto [0, n)
func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
