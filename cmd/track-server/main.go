// track-server exposes pass planning and dry runs over HTTP: REST endpoints
// for trajectories and pointing-error reports, plus a WebSocket feed of live
// session status for browser dashboards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skywatchdev/sattrack/pkg/config"
	"github.com/skywatchdev/sattrack/pkg/ephemeris"
	"github.com/skywatchdev/sattrack/pkg/tle"
	"github.com/skywatchdev/sattrack/pkg/track"
	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.Int("port", 8080, "HTTP server port")
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	catalog tle.Catalog
	hub     *statusHub
}

func main() {
	flag.Parse()

	log.Println("Starting sattrack server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The catalog is loaded once at startup; passes are planned against
	// these element sets until restart.
	groups := make([]tle.Group, len(cfg.Data.TLEGroups))
	for i, g := range cfg.Data.TLEGroups {
		groups[i] = tle.Group(g)
	}
	catalog, err := tle.NewLoader(cfg.Data.CacheDir).LoadCatalog(ctx, groups...)
	if err != nil {
		log.Fatalf("Failed to load satellite catalog: %v", err)
	}
	log.Printf("Catalog ready: %d satellites", len(catalog))

	srv := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		catalog: catalog,
		hub:     newStatusHub(),
	}
	srv.setupRoutes()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%d", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/satellites", s.handleSatellites)
		r.Post("/trajectory", s.handleTrajectory)
		r.Post("/dryrun", s.handleDryRun)
	})

	r.Get("/ws/status", s.hub.handleWebSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"satellites": len(s.catalog),
		"time":       time.Now().UTC(),
	})
}

func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Names())
}

// plan decodes a pass description from the request body and prepares the
// oracle and rate model for it, shared by both POST handlers.
func (s *Server) plan(r *http.Request) (*config.PassConfig, *ephemeris.Oracle, trajectory.RateModel, error) {
	var pass config.PassConfig
	model := trajectory.RateModel{
		MaxSlewRate:  s.cfg.Telescope.MaxSlewRate,
		ZenithMargin: s.cfg.Telescope.ZenithMargin,
	}

	if err := json.NewDecoder(r.Body).Decode(&pass); err != nil {
		return nil, nil, model, fmt.Errorf("invalid request body: %w", err)
	}
	if pass.StepSeconds == 0 {
		pass.StepSeconds = 1.0
	}
	if pass.OffsetMultiplier == 0 {
		pass.OffsetMultiplier = 1.0
	}
	if pass.TrackingPeriodSeconds == 0 {
		pass.TrackingPeriodSeconds = 1.0
	}
	if err := pass.Validate(); err != nil {
		return nil, nil, model, err
	}

	entry, ok := s.catalog.Find(pass.Satellite)
	if !ok {
		return nil, nil, model, fmt.Errorf("satellite %q not in catalog", pass.Satellite)
	}
	observer, err := s.cfg.Observer.CoordinatesObserver()
	if err != nil {
		return nil, nil, model, err
	}
	oracle, err := ephemeris.New(entry, observer)
	if err != nil {
		return nil, nil, model, err
	}
	return &pass, oracle, model, nil
}

// trajectoryResponse carries the pointing plan and its rate annotations.
type trajectoryResponse struct {
	Satellite    string                `json:"satellite"`
	Waypoints    trajectory.Trajectory `json:"waypoints"`
	Segments     []segmentView         `json:"segments"`
	Unattainable int                   `json:"unattainable"`
}

type segmentView struct {
	AzRate       float64 `json:"azRate"`
	AltRate      float64 `json:"altRate"`
	Unattainable bool    `json:"unattainable"`
}

func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	pass, oracle, model, err := s.plan(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	traj, segs, err := track.BuildTrajectory(oracle, pass.Window(), model)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	views := make([]segmentView, len(segs))
	for i, seg := range segs {
		views[i] = segmentView{AzRate: seg.AzRate, AltRate: seg.AltRate, Unattainable: seg.Unattainable}
	}
	writeJSON(w, http.StatusOK, trajectoryResponse{
		Satellite:    pass.Satellite,
		Waypoints:    traj,
		Segments:     views,
		Unattainable: trajectory.UnattainableCount(segs),
	})
}

// dryRunResponse carries the pointing-error log of a simulated session.
type dryRunResponse struct {
	Satellite string         `json:"satellite"`
	Stats     track.Stats    `json:"stats"`
	Samples   []track.Sample `json:"samples"`
	Aborted   string         `json:"aborted,omitempty"`
}

func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	pass, oracle, model, err := s.plan(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec := track.NewRecorder()
	// Replay well inside the HTTP write timeout; a 10-minute pass takes
	// about six seconds at this scale.
	opts := track.Options{
		Period:            pass.TrackingPeriod(),
		AllowUnattainable: pass.AllowUnattainable,
		TimeScale:         100,
		Recorder:          rec,
		OnStatus:          s.hub.broadcast,
	}

	resp := dryRunResponse{Satellite: pass.Satellite}
	if _, err := track.RunDryRun(r.Context(), oracle, pass.Window(), model, opts); err != nil {
		resp.Aborted = err.Error()
	}
	resp.Stats = rec.Stats()
	resp.Samples = rec.Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
