package store

import (
	"log/slog"
	"sort"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
)

// SightingStore holds historical sightings for the session.
type SightingStore struct {
	collection[domain.HistoricalSighting]
	logger *slog.Logger
}

// NewSightingStore creates an empty store.
func NewSightingStore(logger *slog.Logger) *SightingStore {
	return &SightingStore{logger: logger}
}

// Load parses the sightings file at path and swaps it in. On error the
// previous snapshot is kept.
func (s *SightingStore) Load(path string) (LoadStats, error) {
	res, err := readFile(path, s.logger, domain.ParseSightings)
	if err != nil {
		return LoadStats{}, err
	}
	s.replace(res.Records, LoadStats{Path: path, Dropped: res.Dropped})
	stats, _ := s.Stats()
	s.logger.Info("sightings loaded",
		"path", path,
		"records", stats.Records,
		"dropped", stats.Dropped,
	)
	return stats, nil
}

// Replace swaps in an already parsed collection.
func (s *SightingStore) Replace(records []domain.HistoricalSighting) {
	s.replace(records, LoadStats{})
}

// All returns every sighting in source order.
func (s *SightingStore) All() ([]domain.HistoricalSighting, error) {
	return s.filter(func(domain.HistoricalSighting) bool { return true })
}

// ForSpecies returns the sightings of one species.
func (s *SightingStore) ForSpecies(species string) ([]domain.HistoricalSighting, error) {
	return s.filter(func(r domain.HistoricalSighting) bool {
		return r.Species == species
	})
}

// ForYear returns the sightings of one species in one year.
func (s *SightingStore) ForYear(species string, year int) ([]domain.HistoricalSighting, error) {
	return s.filter(func(r domain.HistoricalSighting) bool {
		return r.Species == species && r.Year == year
	})
}

// Species returns the distinct species names present, sorted.
func (s *SightingStore) Species() ([]string, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return distinct(snap.records, func(r domain.HistoricalSighting) string { return r.Species }), nil
}

// Years returns the distinct years present, ascending.
func (s *SightingStore) Years() ([]int, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, r := range snap.records {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years, nil
}
