package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/1F47E/rail-eda/pkg/config"
	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/1F47E/rail-eda/pkg/server"
	"github.com/1F47E/rail-eda/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dataDir    string
	addr       string
	reportTab  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rail-eda",
	Short: "Exploratory analysis dashboard for Indian Railways datasets",
	Long: `Explore the cleaned stations, trains and schedules datasets: summary charts,
a station heatmap, great-circle distances and train routes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dataDir != "" {
			c.Data.Dir = dataDir
		}
		cfg = c
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	RunE:  runServe,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal dashboard",
	Long:  `Open the terminal dashboard. Falls back to the plain report when stdout is not a terminal.`,
	RunE:  runTUI,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard as a plain text report",
	RunE:  runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Directory holding the cleaned CSV files")

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	reportCmd.Flags().StringVarP(&reportTab, "tab", "t", "", "Print only this tab (stations, trains, schedules, geospatial, downloads)")

	rootCmd.AddCommand(serveCmd, tuiCmd, reportCmd)
	rootCmd.AddCommand(distanceCmd, routeCmd, heatmapCmd, nearestCmd, benchCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRepository() *dataset.Repository {
	return dataset.NewRepository(cfg.DataPaths(), cfg.Data.CacheSize)
}

func dashboardOptions() tui.Options {
	return tui.Options{
		Center:  models.Location{Lat: cfg.Map.CenterLat, Lon: cfg.Map.CenterLon},
		Reports: tui.ReportPaths{PDF: cfg.Reports.PDF, DOCX: cfg.Reports.DOCX},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, newRepository()).Run(ctx)
}

func runTUI(cmd *cobra.Command, args []string) error {
	repo := newRepository()
	if !tui.IsTerminal(os.Stdout) {
		tui.NewPrinter(os.Stdout, false).WriteReport(repo.Snapshot(), dashboardOptions(), tui.Selection{})
		return nil
	}
	return tui.Run(repo, dashboardOptions())
}

func runReport(cmd *cobra.Command, args []string) error {
	snap := newRepository().Snapshot()
	p := tui.NewPrinter(os.Stdout, tui.IsTerminal(os.Stdout))

	if reportTab == "" {
		p.WriteReport(snap, dashboardOptions(), tui.Selection{})
		return nil
	}

	for _, tab := range tui.Tabs {
		if strings.EqualFold(tab.String(), reportTab) {
			p.WriteTab(tab, snap, tui.Summarise(snap), dashboardOptions(), tui.Selection{})
			return nil
		}
	}
	return fmt.Errorf("unknown tab %q", reportTab)
}
