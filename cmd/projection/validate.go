package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errValidation = errors.New("validation failed")

// phase tracks pass/fail for a validation phase. Notes are reported but do
// not fail the run.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func getValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the data files, model, and catalog load",
		Long: `validate loads the sightings file, the climate projections file, the
model, and the species catalog, and reports parsed and dropped row counts.
It exits non-zero when any of them cannot be loaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sightings := store.NewSightingStore(opts.logger)
			climate := store.NewClimateStore(opts.logger)

			phases := []*phase{
				validateFile("sightings", opts.cfg.SightingsPath, sightings),
				validateFile("climate projections", opts.cfg.ClimatePath, climate),
				validateModel(cmd, opts),
				validateCatalog(opts, sightings, climate),
				validateTimelines(sightings, climate),
			}
			if !report(cmd.OutOrStdout(), phases) {
				return errValidation
			}
			return nil
		},
	}
}

func validateFile(name, path string, s pipeline.FileLoader) *phase {
	p := &phase{name: fmt.Sprintf("%s file %s", name, path)}
	stats, err := s.Load(path)
	switch {
	case errors.Is(err, domain.ErrDataNotFound):
		p.errorf("file does not exist")
		return p
	case err != nil:
		p.errorf("%v", err)
		return p
	}
	if stats.Records == 0 {
		p.errorf("no valid rows")
	}
	p.notef("%s rows parsed, %s dropped", humanize.Comma(int64(stats.Records)), humanize.Comma(int64(stats.Dropped)))
	return p
}

func validateModel(cmd *cobra.Command, opts *cliOptions) *phase {
	source := opts.cfg.ModelPath
	if opts.cfg.ModelURL != "" {
		source = opts.cfg.ModelURL
	}
	p := &phase{name: "model " + source}
	if _, err := opts.openModel(cmd.Context()); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func validateCatalog(opts *cliOptions, sightings *store.SightingStore, climate *store.ClimateStore) *phase {
	p := &phase{name: "species catalog"}
	catalog, err := opts.catalog()
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("%d species in catalog", len(catalog.Names()))

	seen := map[string]bool{}
	for _, list := range []func() ([]string, error){sightings.Species, climate.Species} {
		names, err := list()
		if err != nil {
			continue
		}
		for _, n := range names {
			if _, ok := catalog.Lookup(n); !ok && !seen[n] {
				seen[n] = true
				p.notef("%q appears in the data but not in the catalog", n)
			}
		}
	}
	return p
}

// validateTimelines checks that historical sightings and climate projections
// sit on their side of the projection boundary.
func validateTimelines(sightings *store.SightingStore, climate *store.ClimateStore) *phase {
	p := &phase{name: fmt.Sprintf("timeline boundary %d", domain.ProjectionStartYear)}

	if all, err := sightings.All(); err == nil {
		late := 0
		for _, s := range all {
			if s.Timeline == domain.TimelineHistorical && s.Year >= domain.ProjectionStartYear {
				late++
			}
		}
		if late > 0 {
			p.notef("%d historical sightings dated %d or later", late, domain.ProjectionStartYear)
		}
	}

	if names, err := climate.Species(); err == nil {
		early := 0
		for _, n := range names {
			records, _ := climate.Query(n)
			for _, r := range records {
				if r.Year < domain.ProjectionStartYear {
					early++
				}
			}
		}
		if early > 0 {
			p.notef("%d climate records before %d are ignored by trends", early, domain.ProjectionStartYear)
		}
	}
	return p
}

func report(w io.Writer, phases []*phase) bool {
	fmt.Fprintln(w, "=== Projection Input Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-60s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
