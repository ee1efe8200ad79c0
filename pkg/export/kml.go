// Package export writes stations and train routes to KML for use in
// external map viewers.
package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	kml "github.com/twpayne/go-kml"
)

var (
	routeColor = color.RGBA{R: 0, G: 0, B: 255, A: 204}
	stopColor  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// StationsKML writes one placemark per located station
func StationsKML(w io.Writer, title string, entries []geo.Entry) error {
	placemarks := make([]kml.Element, 0, len(entries)+1)
	placemarks = append(placemarks, kml.Name(title))
	for _, e := range entries {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(e.Name),
			kml.Description(e.Code),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: e.Location.Lon, Lat: e.Location.Lat}),
			),
		))
	}

	if err := kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write stations kml: %w", err)
	}
	return nil
}

// RouteKML writes a route as a line plus a placemark per stop
func RouteKML(w io.Writer, route *models.Route) error {
	coords := make([]kml.Coordinate, len(route.Points))
	for i, p := range route.Points {
		coords[i] = kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
	}

	elements := []kml.Element{
		kml.Name(fmt.Sprintf("Train %s", route.TrainNumber)),
		kml.Description(fmt.Sprintf("%d stops, %.1f km", len(route.Stops), route.LengthKm)),
		kml.Placemark(
			kml.Name(route.TrainNumber),
			kml.Style(
				kml.LineStyle(
					kml.Color(routeColor),
					kml.Width(3),
				),
			),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		),
	}

	for _, s := range route.Stops {
		name := s.Name
		if name == "" {
			name = s.Code
		}
		elements = append(elements, kml.Placemark(
			kml.Name(name),
			kml.Description(s.Code),
			kml.Style(
				kml.IconStyle(
					kml.Color(stopColor),
					kml.Scale(0.5),
				),
			),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: s.Location.Lon, Lat: s.Location.Lat}),
			),
		))
	}

	if err := kml.KML(kml.Document(elements...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write route kml: %w", err)
	}
	return nil
}
