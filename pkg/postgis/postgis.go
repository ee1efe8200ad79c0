package postgis

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/models"
	_ "github.com/lib/pq"
)

const batchSize = 10000

// StationDB copies station coordinates into a PostGIS table
type StationDB struct {
	db *sql.DB
}

// ConnString builds a lib/pq connection string
func ConnString(host, user, password, dbname string, port int) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewStationDB opens and pings a PostGIS connection
func NewStationDB(host, user, password, dbname string, port int) (*StationDB, error) {
	db, err := sql.Open("postgres", ConnString(host, user, password, dbname, port))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &StationDB{db: db}, nil
}

// InitSchema recreates the stations table
func (p *StationDB) InitSchema() error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`DROP TABLE IF EXISTS rail_stations;`,
		`CREATE TABLE rail_stations (
			station_code TEXT PRIMARY KEY,
			station_name TEXT NOT NULL,
			location GEOMETRY(POINT, 4326)
		);`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// CreateSpatialIndex creates a GIST index on the location column
func (p *StationDB) CreateSpatialIndex() error {
	query := `CREATE INDEX idx_rail_stations_location ON rail_stations USING GIST(location);`
	if _, err := p.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create spatial index: %w", err)
	}
	if _, err := p.db.Exec("ANALYZE rail_stations;"); err != nil {
		return fmt.Errorf("failed to analyze table: %w", err)
	}
	return nil
}

// InsertStations inserts entries in committed batches. Duplicate codes keep
// the first row.
func (p *StationDB) InsertStations(entries []geo.Entry) (int, error) {
	stmt, err := p.db.Prepare(`
		INSERT INTO rail_stations (station_code, station_name, location)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326))
		ON CONFLICT (station_code) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		n, err := p.insertBatch(stmt, entries[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (p *StationDB) insertBatch(stmt *sql.Stmt, batch []geo.Entry) (int, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStmt := tx.Stmt(stmt)

	inserted := 0
	for _, e := range batch {
		if e.Code == "" {
			continue
		}
		res, err := txStmt.Exec(e.Code, e.Name, e.Location.Lon, e.Location.Lat)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert station %s: %w", e.Code, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return inserted, nil
}

// QueryBox returns the stations inside a bounding box
func (p *StationDB) QueryBox(box models.BoundingBox) ([]geo.Entry, error) {
	query := `
		SELECT station_code, station_name, ST_Y(location) AS lat, ST_X(location) AS lon
		FROM rail_stations
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY station_code
	`

	rows, err := p.db.Query(query,
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []geo.Entry
	for rows.Next() {
		var e geo.Entry
		if err := rows.Scan(&e.Code, &e.Name, &e.Location.Lat, &e.Location.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// Count returns the number of stations in the table
func (p *StationDB) Count() (int64, error) {
	var count int64
	if err := p.db.QueryRow("SELECT COUNT(*) FROM rail_stations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (p *StationDB) Close() error {
	return p.db.Close()
}
