package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/1F47E/rail-eda/pkg/export"
	"github.com/1F47E/rail-eda/pkg/postgis"
	"github.com/spf13/cobra"
)

var exportKMLFile string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export located stations to other geo tools",
}

var exportKMLCmd = &cobra.Command{
	Use:   "kml",
	Short: "Write every located station to a KML file",
	RunE:  runExportKML,
}

var exportPostGISCmd = &cobra.Command{
	Use:   "postgis",
	Short: "Load located stations into a PostGIS table",
	Long:  `Create the rail_stations table with a GIST index and insert every located station. Existing codes are kept.`,
	RunE:  runExportPostGIS,
}

func init() {
	exportKMLCmd.Flags().StringVarP(&exportKMLFile, "output", "o", "stations.kml", "Output file path")
	exportCmd.AddCommand(exportKMLCmd, exportPostGISCmd)
}

func runExportKML(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	return writeFile(exportKMLFile, func(f *os.File) error {
		return export.StationsKML(f, "Railway Stations", store.Entries())
	})
}

func runExportPostGIS(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	pg := cfg.PostGIS
	log.Printf("Connecting to PostGIS at %s:%d...", pg.Host, pg.Port)
	db, err := postgis.NewStationDB(pg.Host, pg.User, pg.Password, pg.Database, pg.Port)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		return err
	}

	start := time.Now()
	inserted, err := db.InsertStations(store.Entries())
	if err != nil {
		return err
	}
	if err := db.CreateSpatialIndex(); err != nil {
		return err
	}

	total, err := db.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d of %d stations in %v (%d rows in table)\n",
		inserted, store.Len(), time.Since(start), total)
	return nil
}
