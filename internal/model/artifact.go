// Package model provides implementations of domain.Predictor: a regression
// artifact evaluated in-process, an HTTP client for a remote inference
// server, and a memoizing decorator.
package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// OutputName is the scalar the artifact must produce.
const OutputName = "Count"

// Artifact is a trained linear regression over the eight model features.
// Categorical features contribute one weight per known value.
type Artifact struct {
	Name         string                        `yaml:"name"`
	Version      string                        `yaml:"version"`
	Output       string                        `yaml:"output"`
	Intercept    float64                       `yaml:"intercept"`
	Coefficients map[string]float64            `yaml:"coefficients"`
	Categorical  map[string]map[string]float64 `yaml:"categorical"`
}

// LoadArtifact reads and validates a YAML regression artifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrModelNotFound)
		}
		return nil, &domain.ModelLoadError{Source: path, Err: err}
	}

	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, &domain.ModelLoadError{Source: path, Err: fmt.Errorf("decode artifact: %w", err)}
	}
	if err := a.validate(); err != nil {
		return nil, &domain.ModelLoadError{Source: path, Err: err}
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if a.Output != OutputName {
		return fmt.Errorf("output %q, want %q", a.Output, OutputName)
	}

	var missing, unknown []string
	known := make(map[string]bool, len(domain.NumericFeatures))
	for _, f := range domain.NumericFeatures {
		known[f] = true
		if _, ok := a.Coefficients[f]; !ok {
			missing = append(missing, f)
		}
	}
	for f := range a.Coefficients {
		if !known[f] {
			unknown = append(unknown, f)
		}
	}
	for _, f := range []string{domain.FeatureSpecies, domain.FeatureFireOccurred} {
		if len(a.Categorical[f]) == 0 {
			missing = append(missing, f)
		}
	}
	for f := range a.Categorical {
		if f != domain.FeatureSpecies && f != domain.FeatureFireOccurred {
			unknown = append(unknown, f)
		}
	}

	switch {
	case len(missing) > 0:
		sort.Strings(missing)
		return fmt.Errorf("missing features: %s", strings.Join(missing, ", "))
	case len(unknown) > 0:
		sort.Strings(unknown)
		return fmt.Errorf("unknown features: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Predict evaluates the regression. Unknown categorical values and
// non-finite inputs or outputs fail with domain.ErrPrediction.
func (a *Artifact) Predict(_ context.Context, f domain.FeatureVector) (float64, error) {
	if !f.Finite() {
		return 0, fmt.Errorf("%w: non-finite feature value", domain.ErrPrediction)
	}
	species, ok := a.Categorical[domain.FeatureSpecies][f.Species]
	if !ok {
		return 0, fmt.Errorf("%w: unknown %s %q", domain.ErrPrediction, domain.FeatureSpecies, f.Species)
	}
	fire, ok := a.Categorical[domain.FeatureFireOccurred][f.FireOccurredLabel()]
	if !ok {
		return 0, fmt.Errorf("%w: unknown %s %q", domain.ErrPrediction, domain.FeatureFireOccurred, f.FireOccurredLabel())
	}

	// Fixed feature order keeps the float sum bit-identical across calls.
	x := f.Numeric()
	y := a.Intercept + species + fire
	for _, name := range domain.NumericFeatures {
		y += a.Coefficients[name] * x[name]
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", domain.ErrPrediction, y)
	}
	return y, nil
}

// Describe returns a short identifier for logs.
func (a *Artifact) Describe() string {
	return fmt.Sprintf("%s@%s", a.Name, a.Version)
}
