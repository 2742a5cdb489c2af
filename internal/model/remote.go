package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Info is the metadata a remote inference server reports for its model.
type Info struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Output   string   `json:"output"`
	Features []string `json:"features"`
}

type predictResponse struct {
	Count *float64 `json:"Count"`
}

// Remote implements domain.Predictor against an HTTP inference server
// exposing GET /model and POST /predict.
type Remote struct {
	client *resty.Client
	info   Info
}

// NewRemote creates a client for the server at baseURL. Call Load before
// the first prediction.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/json")
	return &Remote{client: client}
}

// Load verifies the server is reachable and serves a compatible model.
func (r *Remote) Load(ctx context.Context) (Info, error) {
	source := r.client.BaseURL
	var info Info
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/model")
	if err != nil {
		return Info{}, &domain.ModelLoadError{Source: source, Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Info{}, fmt.Errorf("%s: %w", source, domain.ErrModelNotFound)
	}
	if resp.IsError() {
		return Info{}, &domain.ModelLoadError{Source: source, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	if info.Output != OutputName {
		return Info{}, &domain.ModelLoadError{Source: source, Err: fmt.Errorf("output %q, want %q", info.Output, OutputName)}
	}
	if err := checkFeatures(info.Features); err != nil {
		return Info{}, &domain.ModelLoadError{Source: source, Err: err}
	}
	r.info = info
	return info, nil
}

// Predict posts the model input and returns the Count output.
func (r *Remote) Predict(ctx context.Context, f domain.FeatureVector) (float64, error) {
	if r.info.Output == "" {
		return 0, domain.ErrModelNotLoaded
	}
	var out predictResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(f.ModelInput()).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPrediction, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrPrediction, resp.StatusCode(), resp.String())
	}
	if out.Count == nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPrediction, errMissingOutput)
	}
	if math.IsNaN(*out.Count) || math.IsInf(*out.Count, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", domain.ErrPrediction, *out.Count)
	}
	return *out.Count, nil
}

// checkFeatures requires names to be exactly the eight FeatureVector inputs.
func checkFeatures(names []string) error {
	want := append([]string{domain.FeatureSpecies, domain.FeatureFireOccurred}, domain.NumericFeatures...)
	got := make(map[string]bool, len(names))
	for _, n := range names {
		got[n] = true
	}

	var missing, unknown []string
	for _, n := range want {
		if !got[n] {
			missing = append(missing, n)
		}
		delete(got, n)
	}
	for n := range got {
		unknown = append(unknown, n)
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

var errMissingOutput = errors.New("response has no Count")

// Describe returns a short identifier for logs.
func (r *Remote) Describe() string {
	return fmt.Sprintf("%s@%s (%s)", r.info.Name, r.info.Version, r.client.BaseURL)
}
