package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/rail-eda/pkg/export"
	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/1F47E/rail-eda/pkg/rtree"
	"github.com/spf13/cobra"
)

var (
	kmlFile      string
	queryLat     float64
	queryLon     float64
	numNeighbors int
	searchRadius float64
	numQueries   int
	numWorkers   int

	benchNeighbors int
	benchRadius    float64
)

var distanceCmd = &cobra.Command{
	Use:   "distance FROM TO",
	Short: "Great-circle distance between two stations (code or name)",
	Args:  cobra.ExactArgs(2),
	RunE:  runDistance,
}

var routeCmd = &cobra.Command{
	Use:   "route TRAIN",
	Short: "Print the ordered stops of a train",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Summarise station density and optionally write the points as KML",
	RunE:  runHeatmap,
}

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the stations closest to a coordinate",
	RunE:  runNearest,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark radius and nearest neighbor queries on the station index",
	RunE:  runBench,
}

func init() {
	routeCmd.Flags().StringVarP(&kmlFile, "kml", "o", "", "Write the route to this KML file")
	heatmapCmd.Flags().StringVarP(&kmlFile, "kml", "o", "", "Write the station points to this KML file")

	nearestCmd.Flags().Float64Var(&queryLat, "lat", 0, "Latitude")
	nearestCmd.Flags().Float64Var(&queryLon, "lon", 0, "Longitude")
	nearestCmd.Flags().IntVarP(&numNeighbors, "neighbors", "k", 5, "Number of stations to return")
	nearestCmd.Flags().Float64VarP(&searchRadius, "radius", "r", 0, "Return every station within this radius in km instead")
	_ = nearestCmd.MarkFlagRequired("lat")
	_ = nearestCmd.MarkFlagRequired("lon")

	benchCmd.Flags().IntVarP(&numQueries, "queries", "q", 1000, "Number of queries to run")
	benchCmd.Flags().IntVarP(&numWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	benchCmd.Flags().IntVarP(&benchNeighbors, "neighbors", "k", 10, "Number of nearest neighbors to find")
	benchCmd.Flags().Float64VarP(&benchRadius, "radius", "r", 50.0, "Search radius in km")
}

func loadStore() (*geo.Store, error) {
	store := newRepository().Snapshot().Store
	if store.Len() == 0 {
		return nil, fmt.Errorf("no valid station coordinates in %s", cfg.DataPaths().Stations)
	}
	return store, nil
}

func runDistance(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	km, err := geo.DistanceBetween(store, args[0], args[1])
	if err != nil {
		return err
	}
	from, _ := store.Resolve(args[0])
	to, _ := store.Resolve(args[1])
	fmt.Printf("%s (%s) -> %s (%s): %.2f km\n", from.Name, from.Code, to.Name, to.Code, km)
	return nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	snap := newRepository().Snapshot()
	route, err := geo.BuildRoute(args[0], snap.Schedules.Rows, snap.Store)
	if err != nil {
		return err
	}

	fmt.Printf("Train %s: %d stops, %.1f km\n", route.TrainNumber, len(route.Stops), route.LengthKm)
	for i, s := range route.Stops {
		fmt.Printf("%3d  %-8s %-30s %9.4f %9.4f\n", i+1, s.Code, s.Name, s.Location.Lat, s.Location.Lon)
	}
	if len(route.Skipped) > 0 {
		fmt.Printf("Skipped %d stops without coordinates: %v\n", len(route.Skipped), route.Skipped)
	}

	if kmlFile == "" {
		return nil
	}
	return writeFile(kmlFile, func(f *os.File) error { return export.RouteKML(f, route) })
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	points := geo.BuildHeatPoints(store)
	center, _ := store.Center()
	fmt.Printf("Heat points: %d (weight %.1f each)\n", len(points), geo.DefaultHeatWeight)
	fmt.Printf("Map center: %.4f, %.4f (zoom %d, radius %d)\n", center.Lat, center.Lon, cfg.Map.Zoom, cfg.Map.HeatRadius)
	if n := len(store.Rejected()); n > 0 {
		fmt.Printf("Excluded stations: %d\n", n)
	}

	if kmlFile == "" {
		return nil
	}
	return writeFile(kmlFile, func(f *os.File) error {
		return export.StationsKML(f, "Railway Stations", store.Entries())
	})
}

func runNearest(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	center := models.Location{Lat: queryLat, Lon: queryLon}
	if err := geo.ValidateLocation(center); err != nil {
		return err
	}

	index := rtree.NewStationIndex(store)
	var neighbors []rtree.Neighbor
	if searchRadius > 0 {
		neighbors, err = index.QueryRadius(center, searchRadius)
		if err != nil {
			return err
		}
	} else {
		neighbors = index.NearestNeighbors(center, numNeighbors)
	}

	for i, n := range neighbors {
		fmt.Printf("%3d  %-8s %-30s %9.2f km\n", i+1, n.Code, n.Name, n.DistanceKm)
	}
	return nil
}

type benchResult struct {
	queries  int64
	results  int64
	duration time.Duration
}

func runBench(cmd *cobra.Command, args []string) error {
	if numQueries < 0 {
		return fmt.Errorf("%w: --queries must not be negative", geo.ErrInvalidInput)
	}
	store, err := loadStore()
	if err != nil {
		return err
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	start := time.Now()
	index := rtree.NewStationIndex(store)
	fmt.Printf("Indexed %d stations in %v\n", index.Count(), time.Since(start))

	// Query points are drawn from the stations' own bounding box
	box := bounds(store.AllValid())
	centers := make([]models.Location, numQueries)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range centers {
		centers[i] = models.Location{
			Lat: box.BottomLeft.Lat + r.Float64()*(box.TopRight.Lat-box.BottomLeft.Lat),
			Lon: box.BottomLeft.Lon + r.Float64()*(box.TopRight.Lon-box.BottomLeft.Lon),
		}
	}

	fmt.Printf("Running %d radius searches (%.1f km) using %d workers...\n", numQueries, benchRadius, numWorkers)
	radius := benchmark(centers, numWorkers, func(c models.Location) int {
		res, err := index.QueryRadius(c, benchRadius)
		if err != nil {
			return 0
		}
		return len(res)
	})
	printBench("Radius Search", radius)

	fmt.Printf("\nRunning %d nearest neighbor searches (k=%d) using %d workers...\n", numQueries, benchNeighbors, numWorkers)
	nearest := benchmark(centers, numWorkers, func(c models.Location) int {
		return len(index.NearestNeighbors(c, benchNeighbors))
	})
	printBench("Nearest Neighbor", nearest)
	return nil
}

// benchmark fans the queries out over workers and counts results
func benchmark(centers []models.Location, workers int, query func(models.Location) int) benchResult {
	var totalResults atomic.Int64
	var queryCount atomic.Int64

	start := time.Now()

	var wg sync.WaitGroup
	perWorker := len(centers) / workers
	for w := 0; w < workers; w++ {
		lo := w * perWorker
		hi := lo + perWorker
		if w == workers-1 {
			hi = len(centers)
		}

		wg.Add(1)
		go func(batch []models.Location) {
			defer wg.Done()
			local := 0
			for _, c := range batch {
				local += query(c)
				queryCount.Add(1)
			}
			totalResults.Add(int64(local))
		}(centers[lo:hi])
	}
	wg.Wait()

	return benchResult{
		queries:  queryCount.Load(),
		results:  totalResults.Load(),
		duration: time.Since(start),
	}
}

func printBench(title string, r benchResult) {
	fmt.Printf("\n%s Benchmark Results:\n", title)
	fmt.Printf("Total queries: %d\n", r.queries)
	fmt.Printf("Total time: %v\n", r.duration)
	if r.queries == 0 {
		return
	}
	fmt.Printf("Queries per second: %.0f\n", float64(r.queries)/r.duration.Seconds())
	fmt.Printf("Average query time: %v\n", r.duration/time.Duration(r.queries))
	fmt.Printf("Average results per query: %.1f\n", float64(r.results)/float64(r.queries))
}

func bounds(locs []models.Location) models.BoundingBox {
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Inf(1), Lon: math.Inf(1)},
		TopRight:   models.Location{Lat: math.Inf(-1), Lon: math.Inf(-1)},
	}
	for _, l := range locs {
		box.BottomLeft.Lat = math.Min(box.BottomLeft.Lat, l.Lat)
		box.BottomLeft.Lon = math.Min(box.BottomLeft.Lon, l.Lon)
		box.TopRight.Lat = math.Max(box.TopRight.Lat, l.Lat)
		box.TopRight.Lon = math.Max(box.TopRight.Lon, l.Lon)
	}
	return box
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
