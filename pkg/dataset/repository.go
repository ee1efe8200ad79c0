package dataset

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/bluele/gcache"
)

// DefaultCacheSize bounds the number of parsed file versions kept in memory
const DefaultCacheSize = 16

// Paths locates the three input files
type Paths struct {
	Stations  string `yaml:"stations"`
	Trains    string `yaml:"trains"`
	Schedules string `yaml:"schedules"`
}

// For returns the path configured for a dataset kind
func (p Paths) For(kind Kind) string {
	switch kind {
	case KindStations:
		return p.Stations
	case KindTrains:
		return p.Trains
	case KindSchedules:
		return p.Schedules
	}
	return ""
}

// Snapshot is a consistent view of the three tables plus the coordinate
// store derived from the stations table. Nothing in it may be mutated.
type Snapshot struct {
	Stations  *StationTable
	Trains    *TrainTable
	Schedules *ScheduleTable
	Store     *geo.Store
}

// Meta returns the file metadata of a dataset kind
func (s *Snapshot) Meta(kind Kind) *Meta {
	switch kind {
	case KindStations:
		return &s.Stations.Meta
	case KindTrains:
		return &s.Trains.Meta
	case KindSchedules:
		return &s.Schedules.Meta
	}
	return nil
}

// Repository owns the load cache. Entries are keyed by path, modification
// time and size, so a changed file is re-parsed on the next access.
type Repository struct {
	paths Paths
	cache gcache.Cache

	mu   sync.Mutex
	last map[string]string
}

// NewRepository creates a repository over the given files
func NewRepository(paths Paths, cacheSize int) *Repository {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Repository{
		paths: paths,
		cache: gcache.New(cacheSize).LRU().Build(),
		last:  make(map[string]string),
	}
}

// Stations returns the parsed stations table
func (r *Repository) Stations() *StationTable {
	v := r.load(KindStations, func(data []byte) (interface{}, error) {
		return ParseStations(data)
	})
	if t, ok := v.(*StationTable); ok {
		return t
	}
	return &StationTable{Meta: r.unavailable(KindStations)}
}

// Trains returns the parsed trains table
func (r *Repository) Trains() *TrainTable {
	v := r.load(KindTrains, func(data []byte) (interface{}, error) {
		return ParseTrains(data)
	})
	if t, ok := v.(*TrainTable); ok {
		return t
	}
	return &TrainTable{Meta: r.unavailable(KindTrains)}
}

// Schedules returns the parsed schedules table
func (r *Repository) Schedules() *ScheduleTable {
	v := r.load(KindSchedules, func(data []byte) (interface{}, error) {
		return ParseSchedules(data)
	})
	if t, ok := v.(*ScheduleTable); ok {
		return t
	}
	return &ScheduleTable{Meta: r.unavailable(KindSchedules)}
}

// Snapshot loads all three tables and the coordinate store
func (r *Repository) Snapshot() *Snapshot {
	stations := r.Stations()
	return &Snapshot{
		Stations:  stations,
		Trains:    r.Trains(),
		Schedules: r.Schedules(),
		Store:     r.store(stations),
	}
}

// store caches the coordinate store next to the stations table it came from
func (r *Repository) store(stations *StationTable) *geo.Store {
	if !stations.Available {
		return geo.BuildStore(nil)
	}
	key := "store|" + versionKey(stations.Path, stations.Meta)
	if v, err := r.cache.Get(key); err == nil {
		if s, ok := v.(*geo.Store); ok {
			return s
		}
	}

	s := geo.BuildStore(stations.Rows)
	for _, rej := range s.Rejected() {
		log.Printf("Station %s excluded from map: %v", rej.Code, rej.Err)
	}
	r.remember("store", key)
	_ = r.cache.Set(key, s)
	return s
}

func (r *Repository) load(kind Kind, parse func([]byte) (interface{}, error)) interface{} {
	path := r.paths.For(kind)
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Error loading %s data: %v", kind, err)
		return nil
	}

	key := fmt.Sprintf("%s|%s|%d|%d", kind, path, info.ModTime().UnixNano(), info.Size())
	if v, err := r.cache.Get(key); err == nil {
		return v
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error loading %s data: %v", kind, err)
		return nil
	}

	v, err := parse(data)
	if err != nil {
		log.Printf("Error loading %s data: %v", kind, err)
		return nil
	}

	meta := metaOf(v)
	meta.Path = path
	meta.ModTime = info.ModTime()
	for _, w := range meta.Warnings {
		log.Printf("%s: %s", kind, w)
	}

	r.remember(string(kind), key)
	if err := r.cache.Set(key, v); err != nil {
		log.Printf("Failed to cache %s data: %v", kind, err)
	}
	return v
}

// remember drops the previous version of a slot once a newer one is cached
func (r *Repository) remember(slot, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.last[slot]; ok && prev != key {
		r.cache.Remove(prev)
	}
	r.last[slot] = key
}

func (r *Repository) unavailable(kind Kind) Meta {
	m := Meta{
		Kind: kind,
		Path: r.paths.For(kind),
		Caps: make(Capabilities),
	}
	m.warnf("No %s data available.", kind)
	return m
}

func metaOf(v interface{}) *Meta {
	switch t := v.(type) {
	case *StationTable:
		return &t.Meta
	case *TrainTable:
		return &t.Meta
	case *ScheduleTable:
		return &t.Meta
	}
	return &Meta{}
}

func versionKey(path string, m Meta) string {
	return fmt.Sprintf("%s|%d|%d", path, m.ModTime.UnixNano(), len(m.Raw))
}
