package geo

import (
	"fmt"
	"math"

	"github.com/1F47E/rail-eda/pkg/models"
)

// EarthRadiusKm is the IUGG mean Earth radius
const EarthRadiusKm = 6371.0088

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// LocationDistance is Distance over two locations
func LocationDistance(a, b models.Location) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// DistanceBetween returns the great-circle distance in km between two
// stations given by code or name
func DistanceBetween(store *Store, a, b string) (float64, error) {
	from, err := store.Lookup(a)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve start: %w", err)
	}
	to, err := store.Lookup(b)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve end: %w", err)
	}
	return LocationDistance(from, to), nil
}

// PathLength sums the leg distances of an ordered polyline
func PathLength(points []models.Location) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += LocationDistance(points[i-1], points[i])
	}
	return total
}
