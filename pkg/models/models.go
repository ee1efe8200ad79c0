package models

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Station is one row of the stations dataset.
// Latitude and Longitude are nil when the source cell is blank or unparsable.
type Station struct {
	Code      string   `json:"station_code"`
	Name      string   `json:"station_name"`
	State     string   `json:"state,omitempty"`
	Zone      string   `json:"zone,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Label is the display key used by selection widgets
func (s Station) Label() string {
	if s.Code == "" {
		return s.Name
	}
	return s.Name + " (" + s.Code + ")"
}

// Train is one row of the trains dataset
type Train struct {
	Number     string   `json:"train_number"`
	Type       string   `json:"train_type,omitempty"`
	Zone       string   `json:"zone,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	AvgSpeed   *float64 `json:"avg_speed,omitempty"`
}

// ScheduleEntry is one stop of one train. Sequence is the row's position in
// the schedules file and is the only ordering a route may use.
type ScheduleEntry struct {
	Sequence      int      `json:"sequence"`
	TrainNumber   string   `json:"train_number"`
	StationCode   string   `json:"station_code"`
	StationName   string   `json:"station_name,omitempty"`
	HaltMin       *float64 `json:"halt_min,omitempty"`
	ArrivalTime   string   `json:"arrival_time,omitempty"`
	DepartureTime string   `json:"departure_time,omitempty"`
	Day           string   `json:"day,omitempty"`
}

// HeatPoint is a weighted coordinate for density rendering
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// RouteStop is a resolved stop marker on a route
type RouteStop struct {
	Sequence int      `json:"sequence"`
	Code     string   `json:"station_code"`
	Name     string   `json:"station_name,omitempty"`
	Location Location `json:"location"`
}

// Route is the ordered polyline of one train
type Route struct {
	TrainNumber string      `json:"train_number"`
	Points      []Location  `json:"points"`
	Stops       []RouteStop `json:"stops"`
	Skipped     []string    `json:"skipped,omitempty"`
	LengthKm    float64     `json:"length_km"`
}
