package model

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
)

// Options selects and configures the predictor.
type Options struct {
	// ArtifactPath is used when RemoteURL is empty.
	ArtifactPath string
	RemoteURL    string
	Timeout      time.Duration
	// CacheSize of 0 disables memoization.
	CacheSize int
}

// Open loads the configured model. Errors match domain.ErrModelNotFound or
// domain.ErrModelLoad and are distinct from later per-record failures.
func Open(ctx context.Context, opts Options, logger *slog.Logger, metrics *observability.Metrics) (domain.Predictor, error) {
	var (
		p    domain.Predictor
		desc string
	)
	if opts.RemoteURL != "" {
		r := NewRemote(opts.RemoteURL, opts.Timeout)
		if _, err := r.Load(ctx); err != nil {
			return nil, err
		}
		p, desc = r, r.Describe()
	} else {
		a, err := LoadArtifact(opts.ArtifactPath)
		if err != nil {
			return nil, err
		}
		p, desc = a, a.Describe()
	}

	if opts.CacheSize > 0 {
		p = NewCached(p, opts.CacheSize, metrics)
	}
	metrics.ModelLoaded.Set(1)
	logger.Info("model loaded", "model", desc, "cache_size", opts.CacheSize)
	return p, nil
}
