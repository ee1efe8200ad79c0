package geo

import (
	"fmt"

	"github.com/1F47E/rail-eda/pkg/models"
)

// MinRoutePoints is the smallest number of located stops that forms a route
const MinRoutePoints = 2

// BuildRoute assembles the polyline of one train from its schedule entries.
// Entries keep their stored order; consecutive repeats of a station code are
// collapsed, stops without a coordinate are skipped.
func BuildRoute(trainNumber string, entries []models.ScheduleEntry, store *Store) (*models.Route, error) {
	var selected []models.ScheduleEntry
	for _, e := range entries {
		if e.TrainNumber == trainNumber {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("train %q: %w", trainNumber, ErrTrainNotFound)
	}

	route := &models.Route{
		TrainNumber: trainNumber,
		Points:      make([]models.Location, 0, len(selected)),
		Stops:       make([]models.RouteStop, 0, len(selected)),
	}

	prev := ""
	for i, e := range selected {
		if i > 0 && e.StationCode == prev {
			continue
		}
		prev = e.StationCode

		loc, err := store.LookupCode(e.StationCode)
		if err != nil {
			route.Skipped = append(route.Skipped, e.StationCode)
			continue
		}

		name := e.StationName
		if name == "" {
			if entry, err := store.Resolve(e.StationCode); err == nil {
				name = entry.Name
			}
		}

		route.Points = append(route.Points, loc)
		route.Stops = append(route.Stops, models.RouteStop{
			Sequence: e.Sequence,
			Code:     e.StationCode,
			Name:     name,
			Location: loc,
		})
	}

	if len(route.Points) < MinRoutePoints {
		return nil, fmt.Errorf("train %q has %d located stops: %w",
			trainNumber, len(route.Points), ErrRouteTooShort)
	}

	route.LengthKm = PathLength(route.Points)
	return route, nil
}

// TrainNumbers lists selectable trains: the trains table in file order, or
// the schedule's train numbers when the trains table is empty
func TrainNumbers(trains []models.Train, entries []models.ScheduleEntry) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
	}

	for _, t := range trains {
		add(t.Number)
	}
	if len(out) > 0 {
		return out
	}
	for _, e := range entries {
		add(e.TrainNumber)
	}
	return out
}
