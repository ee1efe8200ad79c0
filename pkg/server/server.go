// Package server exposes the dashboard over a JSON HTTP API. It renders
// nothing itself; clients draw the charts, maps and routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/1F47E/rail-eda/pkg/config"
	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/geo"
	"github.com/1F47E/rail-eda/pkg/rtree"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Server wires the dataset repository to the HTTP routes
type Server struct {
	cfg    *config.Config
	repo   *dataset.Repository
	router *gin.Engine

	mu        sync.Mutex
	lastStore *geo.Store
	lastIndex *rtree.StationIndex
}

// New builds the router
func New(cfg *config.Config, repo *dataset.Repository) *Server {
	s := &Server{cfg: cfg, repo: repo}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	{
		api.GET("/overview", s.overview)
		api.GET("/stations", s.stationsTab)
		api.GET("/trains", s.trainsTab)
		api.GET("/schedules", s.schedulesTab)

		g := api.Group("/geo")
		g.GET("/stations", s.geoStations)
		g.GET("/heatmap", s.heatmap)
		g.GET("/distance", s.distance)
		g.GET("/trains", s.trainList)
		g.GET("/route/:train", s.route)
		g.GET("/route/:train/kml", s.routeKML)
		g.GET("/nearest", s.nearest)

		api.GET("/downloads/:dataset", s.download)
		api.GET("/reports/:format", s.report)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard API listening on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down dashboard API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// index returns the spatial index of the current store, rebuilding it only
// when the stations file changed
func (s *Server) index(store *geo.Store) *rtree.StationIndex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastStore != store || s.lastIndex == nil {
		s.lastIndex = rtree.NewStationIndex(store)
		s.lastStore = store
	}
	return s.lastIndex
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
