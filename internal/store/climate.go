package store

import (
	"log/slog"
	"sort"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
)

// ClimateStore holds climate projection records for the session.
type ClimateStore struct {
	collection[domain.ClimateProjection]
	logger *slog.Logger
}

// NewClimateStore creates an empty store. Query fails with
// domain.ErrDataNotLoaded until Load or Replace succeeds.
func NewClimateStore(logger *slog.Logger) *ClimateStore {
	return &ClimateStore{logger: logger}
}

// Load parses the climate projections file at path and swaps it in. On error
// the previous snapshot is kept.
func (s *ClimateStore) Load(path string) (LoadStats, error) {
	res, err := readFile(path, s.logger, domain.ParseClimateProjections)
	if err != nil {
		return LoadStats{}, err
	}
	s.replace(res.Records, LoadStats{Path: path, Dropped: res.Dropped})
	stats, _ := s.Stats()
	s.logger.Info("climate projections loaded",
		"path", path,
		"records", stats.Records,
		"dropped", stats.Dropped,
	)
	return stats, nil
}

// Replace swaps in an already parsed collection. The slice must not be
// modified afterwards.
func (s *ClimateStore) Replace(records []domain.ClimateProjection) {
	s.replace(records, LoadStats{})
}

// Query returns the records whose species equals species exactly.
func (s *ClimateStore) Query(species string) ([]domain.ClimateProjection, error) {
	return s.filter(func(r domain.ClimateProjection) bool {
		return r.Species == species
	})
}

// Species returns the distinct species names present, sorted.
func (s *ClimateStore) Species() ([]string, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return distinct(snap.records, func(r domain.ClimateProjection) string { return r.Species }), nil
}

func distinct[T any](records []T, key func(T) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
