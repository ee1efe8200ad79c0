package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "RAIL_EDA_"

// Config holds application configuration
type Config struct {
	Data struct {
		Dir       string        `yaml:"dir"`
		Files     dataset.Paths `yaml:"files"`
		CacheSize int           `yaml:"cache_size"`
	} `yaml:"data"`
	Reports struct {
		PDF  string `yaml:"pdf"`
		DOCX string `yaml:"docx"`
	} `yaml:"reports"`
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Map struct {
		CenterLat  float64 `yaml:"center_lat"`
		CenterLon  float64 `yaml:"center_lon"`
		Zoom       int     `yaml:"zoom"`
		HeatRadius int     `yaml:"heat_radius"`
	} `yaml:"map"`
	PostGIS struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"postgis"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Dir = "cleaned_csv_datasets"
	cfg.Data.Files = dataset.Paths{
		Stations:  "stations_clean.csv",
		Trains:    "trains_clean.csv",
		Schedules: "schedules_clean.csv",
	}
	cfg.Data.CacheSize = dataset.DefaultCacheSize
	cfg.Reports.PDF = filepath.Join("assets", "Indian Railways Data Analysis Report.pdf")
	cfg.Reports.DOCX = filepath.Join("assets", "Indian Railways Data Analysis Report.docx")
	cfg.Server.Addr = ":8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Map.CenterLat = 20.5937
	cfg.Map.CenterLon = 78.9629
	cfg.Map.Zoom = 5
	cfg.Map.HeatRadius = 8
	cfg.PostGIS.Host = "localhost"
	cfg.PostGIS.Port = 5432
	cfg.PostGIS.User = "postgres"
	cfg.PostGIS.Database = "raileda"
	return cfg
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and RAIL_EDA_* overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("Config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Data.Dir, "DATA_DIR")
	setString(&c.Data.Files.Stations, "STATIONS_CSV")
	setString(&c.Data.Files.Trains, "TRAINS_CSV")
	setString(&c.Data.Files.Schedules, "SCHEDULES_CSV")
	setString(&c.Reports.PDF, "REPORT_PDF")
	setString(&c.Reports.DOCX, "REPORT_DOCX")
	setString(&c.Server.Addr, "ADDR")
	setString(&c.PostGIS.Host, "POSTGIS_HOST")
	setString(&c.PostGIS.User, "POSTGIS_USER")
	setString(&c.PostGIS.Password, "POSTGIS_PASSWORD")
	setString(&c.PostGIS.Database, "POSTGIS_DATABASE")

	if v := getEnv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	if err := setInt(&c.Data.CacheSize, "CACHE_SIZE"); err != nil {
		return err
	}
	return setInt(&c.PostGIS.Port, "POSTGIS_PORT")
}

// DataPaths resolves the dataset files against the data directory
func (c *Config) DataPaths() dataset.Paths {
	return dataset.Paths{
		Stations:  c.resolve(c.Data.Files.Stations),
		Trains:    c.resolve(c.Data.Files.Trains),
		Schedules: c.resolve(c.Data.Files.Schedules),
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Data.Dir == "" {
		return p
	}
	return filepath.Join(c.Data.Dir, p)
}

// getEnv gets a prefixed environment variable
func getEnv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func setString(dst *string, key string) {
	if v := getEnv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}
