package geo

import "github.com/1F47E/rail-eda/pkg/models"

// DefaultHeatWeight is the weight each station contributes to the heatmap
const DefaultHeatWeight = 1.0

// BuildHeatPoints returns one uniformly weighted point per stored station.
// Coinciding stations are not merged; the renderer's kernel handles overlap.
func BuildHeatPoints(store *Store) []models.HeatPoint {
	points := make([]models.HeatPoint, 0, store.Len())
	for _, e := range store.entries {
		points = append(points, models.HeatPoint{
			Lat:    e.Location.Lat,
			Lon:    e.Location.Lon,
			Weight: DefaultHeatWeight,
		})
	}
	return points
}
