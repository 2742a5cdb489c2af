package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound means the model artifact could not be located.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelLoad matches any *ModelLoadError.
	ErrModelLoad = errors.New("model load failed")
	// ErrModelNotLoaded is returned when predictions are requested without a model.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrDataNotFound means a data file does not exist.
	ErrDataNotFound = errors.New("data not found")
	// ErrDataLoad matches any *DataLoadError.
	ErrDataLoad = errors.New("data load failed")
	// ErrDataNotLoaded is returned when a store is queried before its first load.
	ErrDataNotLoaded = errors.New("data not loaded")

	// ErrPrediction marks a single-record inference failure. The orchestrator
	// absorbs these; they never leave a batch.
	ErrPrediction = errors.New("prediction failed")
)

// ModelLoadError wraps the cause of a failed model load.
type ModelLoadError struct {
	Source string
	Err    error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Source, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Is reports ErrModelLoad so callers can match without a type assertion.
func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// DataLoadError wraps the cause of a failed data file read.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load data %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
