// Package rtree indexes station coordinates in an R-Tree so the map view can
// answer viewport, radius and nearest-station queries.
package rtree

import (
	"fmt"
	"math"
	"sort"

	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/dhconnelly/rtreego"
)

const (
	tolerance   = 0.0001
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialStation wraps a store entry to implement rtreego.Spatial
type spatialStation struct {
	geo.Entry
	rect rtreego.Rect
}

func (s *spatialStation) Bounds() rtreego.Rect {
	return s.rect
}

// Neighbor is a station with its distance from a query point
type Neighbor struct {
	geo.Entry
	DistanceKm float64 `json:"distance_km"`
}

// StationIndex is an immutable R-Tree over the valid stations of a store
type StationIndex struct {
	tree  *rtreego.Rtree
	count int
}

// NewStationIndex bulk-loads every entry of the store
func NewStationIndex(store *geo.Store) *StationIndex {
	entries := store.Entries()
	items := make([]rtreego.Spatial, 0, len(entries))
	for _, e := range entries {
		p := rtreego.Point{e.Location.Lat, e.Location.Lon}
		items = append(items, &spatialStation{Entry: e, rect: p.ToRect(tolerance)})
	}

	return &StationIndex{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		count: len(items),
	}
}

// Count returns the number of indexed stations
func (idx *StationIndex) Count() int {
	return idx.count
}

// QueryBox returns the stations inside the bounding box
func (idx *StationIndex) QueryBox(box models.BoundingBox) ([]geo.Entry, error) {
	if box.TopRight.Lat < box.BottomLeft.Lat || box.TopRight.Lon < box.BottomLeft.Lon {
		return nil, fmt.Errorf("%w: inverted bounding box", geo.ErrInvalidInput)
	}

	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		[]float64{
			math.Max(box.TopRight.Lat-box.BottomLeft.Lat, tolerance),
			math.Max(box.TopRight.Lon-box.BottomLeft.Lon, tolerance),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := idx.tree.SearchIntersect(bounds)

	// Strict boundary check, the tree works on padded rects
	entries := make([]geo.Entry, 0, len(results))
	for _, r := range results {
		item, ok := r.(*spatialStation)
		if !ok {
			continue
		}
		if box.Contains(item.Location) {
			entries = append(entries, item.Entry)
		}
	}
	return entries, nil
}

// QueryRadius returns the stations within radiusKm of center
func (idx *StationIndex) QueryRadius(center models.Location, radiusKm float64) ([]Neighbor, error) {
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", geo.ErrInvalidInput)
	}
	if err := geo.ValidateLocation(center); err != nil {
		return nil, err
	}

	rects, err := radiusRects(center, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("invalid radius search: %w", err)
	}

	// Filter by actual distance
	seen := make(map[*spatialStation]bool)
	neighbors := []Neighbor{}
	for _, bounds := range rects {
		for _, r := range idx.tree.SearchIntersect(bounds) {
			item, ok := r.(*spatialStation)
			if !ok || seen[item] {
				continue
			}
			seen[item] = true
			d := geo.LocationDistance(center, item.Location)
			if d <= radiusKm {
				neighbors = append(neighbors, Neighbor{Entry: item.Entry, DistanceKm: d})
			}
		}
	}

	sortNeighbors(neighbors)
	return neighbors, nil
}

// radiusRects bounds the circle of radiusKm around center in degrees.
// The box covers every longitude when the circle reaches a pole and is
// split in two when it crosses the antimeridian.
func radiusRects(center models.Location, radiusKm float64) ([]rtreego.Rect, error) {
	delta := radiusKm / geo.EarthRadiusKm
	latDeg := delta * 180 / math.Pi
	minLat := math.Max(center.Lat-latDeg, -90)
	maxLat := math.Min(center.Lat+latDeg, 90)

	lonDeg := 180.0
	if minLat > -90 && maxLat < 90 {
		if s := math.Sin(delta) / math.Cos(center.Lat*math.Pi/180); s < 1 {
			lonDeg = math.Asin(s) * 180 / math.Pi
		}
	}

	spans := [][2]float64{{-180, 180}}
	if lonDeg < 180 {
		lo, hi := center.Lon-lonDeg, center.Lon+lonDeg
		switch {
		case lo < -180:
			spans = [][2]float64{{lo + 360, 180}, {-180, hi}}
		case hi > 180:
			spans = [][2]float64{{lo, 180}, {-180, hi - 360}}
		default:
			spans = [][2]float64{{lo, hi}}
		}
	}

	rects := make([]rtreego.Rect, 0, len(spans))
	for _, sp := range spans {
		r, err := rtreego.NewRectFromPoints(
			rtreego.Point{minLat - tolerance, sp[0] - tolerance},
			rtreego.Point{maxLat + tolerance, sp[1] + tolerance},
		)
		if err != nil {
			return nil, err
		}
		rects = append(rects, r)
	}
	return rects, nil
}

// NearestNeighbors returns up to n stations closest to center by great-circle distance
func (idx *StationIndex) NearestNeighbors(center models.Location, n int) []Neighbor {
	if n <= 0 || idx.count == 0 {
		return []Neighbor{}
	}

	// The tree ranks by planar degrees, which favours stations north or south
	// of center away from the equator. Over-fetch, re-rank by haversine, then
	// confirm with a radius search out to the n-th candidate.
	k := n * 2
	if k < n+8 {
		k = n + 8
	}
	results := idx.tree.NearestNeighbors(k, rtreego.Point{center.Lat, center.Lon})

	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		item, ok := r.(*spatialStation)
		if !ok || item == nil {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Entry:      item.Entry,
			DistanceKm: geo.LocationDistance(center, item.Location),
		})
	}
	sortNeighbors(neighbors)

	if len(results) < idx.count && len(neighbors) >= n {
		if reach := neighbors[n-1].DistanceKm; reach > 0 {
			if exact, err := idx.QueryRadius(center, math.Nextafter(reach, math.Inf(1))); err == nil {
				neighbors = exact
			}
		}
	}

	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors
}

func sortNeighbors(neighbors []Neighbor) {
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].DistanceKm < neighbors[j].DistanceKm
	})
}
