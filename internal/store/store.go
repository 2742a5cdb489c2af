// Package store holds the session's parsed data sets behind atomically
// swapped snapshots. Readers never observe a partially replaced collection.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
)

// LoadStats describes the outcome of a file load.
type LoadStats struct {
	Path     string
	Records  int
	Dropped  int
	LoadedAt time.Time
}

type snapshot[T any] struct {
	records []T
	stats   LoadStats
}

// collection is the shared snapshot holder behind both stores.
type collection[T any] struct {
	current atomic.Pointer[snapshot[T]]
}

func (c *collection[T]) replace(records []T, stats LoadStats) {
	if stats.LoadedAt.IsZero() {
		stats.LoadedAt = domain.Now()
	}
	stats.Records = len(records)
	c.current.Store(&snapshot[T]{records: records, stats: stats})
}

func (c *collection[T]) load() (*snapshot[T], error) {
	s := c.current.Load()
	if s == nil {
		return nil, domain.ErrDataNotLoaded
	}
	return s, nil
}

func (c *collection[T]) filter(keep func(T) bool) ([]T, error) {
	s, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Loaded reports whether a snapshot is present.
func (c *collection[T]) Loaded() bool {
	return c.current.Load() != nil
}

// Stats returns the statistics of the current snapshot.
func (c *collection[T]) Stats() (LoadStats, bool) {
	s := c.current.Load()
	if s == nil {
		return LoadStats{}, false
	}
	return s.stats, true
}

// Len returns the number of records in the current snapshot.
func (c *collection[T]) Len() int {
	s := c.current.Load()
	if s == nil {
		return 0
	}
	return len(s.records)
}

// readFile opens path and hands it to parse, mapping file errors onto the
// domain taxonomy.
func readFile[T any](path string, logger *slog.Logger, parse func(io.Reader, domain.ParseOptions) (domain.ParseResult[T], error)) (domain.ParseResult[T], error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ParseResult[T]{}, fmt.Errorf("%s: %w", path, domain.ErrDataNotFound)
		}
		return domain.ParseResult[T]{}, &domain.DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	res, err := parse(f, domain.ParseOptions{Logger: logger, Source: path})
	if err != nil {
		return domain.ParseResult[T]{}, &domain.DataLoadError{Path: path, Err: err}
	}
	return res, nil
}
