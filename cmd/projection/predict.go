package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func getPredictCmd(opts *cliOptions) *cobra.Command {
	var (
		species string
		year    int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict population counts for every climate record of a species",
		Example: `  projection predict --species Condor
  projection predict --species "Red Wolf" --year 2040 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			climate, err := opts.loadClimate()
			if err != nil {
				return err
			}
			predictor, err := opts.openModel(cmd.Context())
			if err != nil {
				return err
			}

			orch := pipeline.NewOrchestrator(climate, predictor, opts.logger, metrics(), opts.cfg.PredictionWorkers)
			batch, err := orch.Run(cmd.Context(), species)
			if err != nil {
				return err
			}

			results := batch.Results
			if cmd.Flags().Changed("year") {
				results = filterYear(results, year)
			}
			sort.SliceStable(results, func(i, j int) bool { return results[i].Year < results[j].Year })

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, map[string]any{
					"run_id":      batch.RunID,
					"species":     species,
					"predictions": results,
					"skipped":     batch.Failed,
				})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tLAT\tLON\tPREDICTED\tCOUNT\tCONFIDENCE")
			for _, r := range results {
				fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.2f\t%d\t%.2f\n",
					r.Year, r.Latitude, r.Longitude, r.PredictedCount, r.DisplayCount(), r.Confidence)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s predictions for %s (%s skipped), run %s\n",
				humanize.Comma(int64(len(results))), species, humanize.Comma(int64(batch.Failed)), batch.RunID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&species, "species", "s", "", "species name as it appears in the data files")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "only show predictions for this year")
	_ = cmd.MarkFlagRequired("species")

	return cmd
}

func filterYear(results []domain.PredictionResult, year int) []domain.PredictionResult {
	out := make([]domain.PredictionResult, 0, len(results))
	for _, r := range results {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}
