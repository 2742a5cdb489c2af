package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/robfig/cron/v3"
)

// FileLoader loads a data file into a store, replacing its snapshot.
type FileLoader interface {
	Load(path string) (store.LoadStats, error)
}

// ReloadTarget is one data file and the store it feeds.
type ReloadTarget struct {
	// Name labels the file in metrics and logs ("sightings", "climate").
	Name   string
	Path   string
	Loader FileLoader
	// OnLoad, if set, runs after each successful load.
	OnLoad func(store.LoadStats)
}

// Reloader loads data files at startup and again on a cron schedule. A failed
// load leaves the store's previous snapshot in place.
type Reloader struct {
	targets []ReloadTarget
	logger  *slog.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
}

// NewReloader creates a Reloader over targets.
func NewReloader(targets []ReloadTarget, logger *slog.Logger, metrics *observability.Metrics) *Reloader {
	return &Reloader{targets: targets, logger: logger, metrics: metrics}
}

// Reload loads every target once. All targets are attempted; the returned
// error joins the individual failures.
func (r *Reloader) Reload() error {
	var errs []error
	for _, t := range r.targets {
		stats, err := t.Loader.Load(t.Path)
		if err != nil {
			r.logger.Error("data load failed", "file", t.Name, "path", t.Path, "error", err)
			r.metrics.StoreReloads.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		r.metrics.StoreReloads.WithLabelValues("success").Inc()
		r.metrics.RowsParsed.WithLabelValues(t.Name).Add(float64(stats.Records))
		r.metrics.RowsDropped.WithLabelValues(t.Name).Add(float64(stats.Dropped))
		if t.OnLoad != nil {
			t.OnLoad(stats)
		}
	}
	return errors.Join(errs...)
}

// Start schedules Reload using a standard five-field cron spec or a
// descriptor such as "@hourly".
func (r *Reloader) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := r.Reload(); err != nil {
			r.logger.Warn("scheduled reload incomplete, keeping previous data", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reload %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	r.logger.Info("data reload scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running reload to finish or ctx
// to expire.
func (r *Reloader) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}
