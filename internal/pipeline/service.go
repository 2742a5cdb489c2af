package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
)

// SightingSource is the read side of the sightings store.
type SightingSource interface {
	ForSpecies(species string) ([]domain.HistoricalSighting, error)
	ForYear(species string, year int) ([]domain.HistoricalSighting, error)
	Species() ([]string, error)
	Loaded() bool
}

// ClimateCatalog is the climate store as seen by the Service.
type ClimateCatalog interface {
	ClimateSource
	Species() ([]string, error)
	Loaded() bool
}

// Publisher forwards a finished prediction batch downstream.
type Publisher interface {
	Publish(ctx context.Context, runID, species string, results []domain.PredictionResult) error
}

// SpeciesSummary describes one species known to the service.
type SpeciesSummary struct {
	Name           string              `json:"name"`
	Info           *domain.SpeciesInfo `json:"info,omitempty"`
	HasSightings   bool                `json:"has_sightings"`
	HasProjections bool                `json:"has_projections"`
}

// TrendView is a trend plus whether the projected partition could be built.
type TrendView struct {
	domain.Trend
	ProjectionsAvailable bool `json:"projections_available"`
}

// Service ties the stores, the orchestrator, and the catalog together for
// the presentation layer.
type Service struct {
	sightings    SightingSource
	climate      ClimateCatalog
	orchestrator *Orchestrator
	catalog      domain.Catalog
	publisher    Publisher
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithPublisher publishes every prediction batch the service generates.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a Service.
func NewService(sightings SightingSource, climate ClimateCatalog, orch *Orchestrator, catalog domain.Catalog, logger *slog.Logger, metrics *observability.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		sightings:    sightings,
		climate:      climate,
		orchestrator: orch,
		catalog:      catalog,
		logger:       logger,
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the species metadata table.
func (s *Service) Catalog() domain.Catalog {
	return s.catalog
}

// Predictions generates predictions for species and publishes them when a
// publisher is configured. A publish failure is logged, not returned.
func (s *Service) Predictions(ctx context.Context, species string) ([]domain.PredictionResult, error) {
	b, err := s.orchestrator.Run(ctx, species)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	return b.Results, nil
}

// ProjectedSightings returns the predictions for one year as map points.
// Nothing is published.
func (s *Service) ProjectedSightings(ctx context.Context, species string, year int) ([]domain.HistoricalSighting, error) {
	b, err := s.orchestrator.Run(ctx, species)
	if err != nil {
		return nil, err
	}
	return domain.ProjectedSightings(b.Results, species, year), nil
}

// Sightings returns the recorded sightings of species.
func (s *Service) Sightings(species string) ([]domain.HistoricalSighting, error) {
	return s.sightings.ForSpecies(species)
}

// SightingsForYear returns the recorded sightings of species in year.
func (s *Service) SightingsForYear(species string, year int) ([]domain.HistoricalSighting, error) {
	return s.sightings.ForYear(species, year)
}

// Trend builds the population series for species. When predictions are
// unavailable the trend holds historical points only. Nothing is published.
func (s *Service) Trend(ctx context.Context, species string) (TrendView, error) {
	sightings, err := s.sightings.ForSpecies(species)
	if err != nil {
		return TrendView{}, err
	}

	available := true
	var preds []domain.PredictionResult
	b, err := s.orchestrator.Run(ctx, species)
	switch {
	case err == nil:
		preds = b.Results
	case errors.Is(err, domain.ErrModelNotLoaded), errors.Is(err, domain.ErrDataNotLoaded):
		s.logger.Debug("trend without projections", "species", species, "reason", err)
		available = false
	default:
		return TrendView{}, err
	}

	return TrendView{
		Trend:                domain.NewTrend(sightings, preds, species),
		ProjectionsAvailable: available,
	}, nil
}

// Species lists every species in the catalog or in either data file.
func (s *Service) Species() []SpeciesSummary {
	withSightings := s.speciesSet(s.sightings.Species)
	withProjections := s.speciesSet(s.climate.Species)

	names := make(map[string]struct{})
	for _, n := range s.catalog.Names() {
		names[n] = struct{}{}
	}
	for n := range withSightings {
		names[n] = struct{}{}
	}
	for n := range withProjections {
		names[n] = struct{}{}
	}

	out := make([]SpeciesSummary, 0, len(names))
	for n := range names {
		sum := SpeciesSummary{
			Name:           n,
			HasSightings:   withSightings[n],
			HasProjections: withProjections[n],
		}
		if info, ok := s.catalog.Lookup(n); ok {
			sum.Info = &info
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CheckReadiness returns nil once both data files and the model are loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	var errs []error
	if !s.sightings.Loaded() {
		errs = append(errs, errors.New("sightings not loaded"))
	}
	if !s.climate.Loaded() {
		errs = append(errs, errors.New("climate projections not loaded"))
	}
	if !s.orchestrator.ModelLoaded() {
		errs = append(errs, domain.ErrModelNotLoaded)
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, b Batch) {
	if s.publisher == nil || len(b.Results) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, b.RunID, b.Species, b.Results); err != nil {
		s.logger.Error("publish predictions failed",
			"error", err,
			"run_id", b.RunID,
			"species", b.Species,
			"count", len(b.Results),
		)
		return
	}
	s.metrics.PublishedPredictions.Add(float64(len(b.Results)))
}

func (s *Service) speciesSet(list func() ([]string, error)) map[string]bool {
	names, err := list()
	if err != nil {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
