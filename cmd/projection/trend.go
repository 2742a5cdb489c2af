package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func getTrendCmd(opts *cliOptions) *cobra.Command {
	var species string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the historical and projected population trend of a species",
		Long: `trend merges yearly sighting totals with yearly prediction totals.
If the climate file or the model cannot be loaded, only the historical part
is shown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sightings, err := opts.loadSightings()
			if err != nil {
				return err
			}

			climate, err := opts.loadClimate()
			if err != nil {
				opts.logger.Warn("climate projections unavailable", "error", err)
				climate = store.NewClimateStore(opts.logger)
			}
			predictor, err := opts.openModel(cmd.Context())
			if err != nil {
				opts.logger.Warn("model unavailable", "error", err)
				predictor = nil
			}

			catalog, err := opts.catalog()
			if err != nil {
				return err
			}

			orch := pipeline.NewOrchestrator(climate, predictor, opts.logger, metrics(), opts.cfg.PredictionWorkers)
			svc := pipeline.NewService(sightings, climate, orch, catalog, opts.logger, metrics())
			view, err := svc.Trend(cmd.Context(), species)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, view)
			}

			if info, ok := catalog.Lookup(species); ok {
				fmt.Fprintf(out, "%s (%s), %s, est. population %s\n\n",
					info.CommonName, info.ScientificName, info.ConservationStatus,
					humanize.Comma(int64(info.CurrentPopulation)))
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tCOUNT\tKIND\tCONFIDENCE")
			for _, p := range view.Points {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Year, humanize.Comma(int64(p.Count)), kind(p), confidence(p))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nHistorical change: %s\n", formatChange(view.Summary.Historical))
			if view.ProjectionsAvailable {
				fmt.Fprintf(out, "Projected change:  %s\n", formatChange(view.Summary.Projected))
			} else {
				fmt.Fprintln(out, "Projections unavailable.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&species, "species", "s", "", "species name as it appears in the data files")
	_ = cmd.MarkFlagRequired("species")

	return cmd
}

func kind(p domain.PopulationDataPoint) string {
	if p.IsProjected {
		return "projected"
	}
	return "historical"
}

func confidence(p domain.PopulationDataPoint) string {
	c, ok := p.Confidence.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", c)
}

func formatChange(c domain.Change) string {
	return fmt.Sprintf("%+d (%+.1f%%)", c.Amount, c.Percent)
}
