package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ProjectionService is the query surface behind the JSON API.
type ProjectionService interface {
	ReadinessChecker
	Catalog() domain.Catalog
	Species() []pipeline.SpeciesSummary
	Sightings(species string) ([]domain.HistoricalSighting, error)
	SightingsForYear(species string, year int) ([]domain.HistoricalSighting, error)
	Predictions(ctx context.Context, species string) ([]domain.PredictionResult, error)
	ProjectedSightings(ctx context.Context, species string, year int) ([]domain.HistoricalSighting, error)
	Trend(ctx context.Context, species string) (pipeline.TrendView, error)
}

// Server exposes health, readiness, metrics, and the projection API.
type Server struct {
	httpServer *http.Server
	svc        ProjectionService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api/v1 routes.
func NewServer(addr string, svc ProjectionService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/species", s.handleSpeciesList)
	mux.HandleFunc("GET /api/v1/species/{species}", s.handleSpecies)
	mux.HandleFunc("GET /api/v1/species/{species}/sightings", s.handleSightings)
	mux.HandleFunc("GET /api/v1/species/{species}/predictions", s.handlePredictions)
	mux.HandleFunc("GET /api/v1/species/{species}/trend", s.handleTrend)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type speciesDetail struct {
	Name    string              `json:"name"`
	Info    *domain.SpeciesInfo `json:"info"`
	Threats []string            `json:"threats"`
	Actions []string            `json:"actions"`
}

func (s *Server) handleSpeciesList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"species": s.svc.Species()})
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("species")
	cat := s.svc.Catalog()
	d := speciesDetail{
		Name:    name,
		Threats: cat.Threats(name),
		Actions: cat.Actions(name),
	}
	if info, ok := cat.Lookup(name); ok {
		d.Info = &info
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSightings(w http.ResponseWriter, r *http.Request) {
	species := r.PathValue("species")
	year, hasYear, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var sightings []domain.HistoricalSighting
	if hasYear {
		sightings, err = s.svc.SightingsForYear(species, year)
	} else {
		sightings, err = s.svc.Sightings(species)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{"species": species, "sightings": sightings}
	if hasYear {
		resp["year"] = year
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	species := r.PathValue("species")
	year, hasYear, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if hasYear {
		points, err := s.svc.ProjectedSightings(r.Context(), species, year)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"species": species, "year": year, "points": points})
		return
	}

	preds, err := s.svc.Predictions(r.Context(), species)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"species": species, "predictions": preds})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Trend(r.Context(), r.PathValue("species"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

var errBadYear = errors.New("year must be an integer")

func yearParam(r *http.Request) (int, bool, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, false, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, errBadYear
	}
	return y, true, nil
}

// writeServiceError maps the domain error taxonomy onto status codes. Missing
// data or model means the feature is unavailable, not that the request is bad.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrDataNotLoaded), errors.Is(err, domain.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
