package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound means the artifact for a task is absent; callers should train first.
	ErrModelNotFound = errors.New("model not found, train models first")

	// ErrArtifactNotFound is returned by ArtifactStore.Read for a missing object.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrFeatureWidth is returned when a vector does not match the model's input width.
	ErrFeatureWidth = errors.New("feature vector width mismatch")

	// ErrNonFinite is returned when a regressor yields NaN or an infinity.
	ErrNonFinite = errors.New("model produced a non-finite value")
)

// TrainingDataError aborts training of a single task.
type TrainingDataError struct {
	Task   Task
	Reason string
}

func (e *TrainingDataError) Error() string {
	return fmt.Sprintf("training data error (%s): %s", e.Task, e.Reason)
}

// FeatureParseError is non-fatal: the resolver falls back to the default value.
type FeatureParseError struct {
	Feature string
	Value   any
	Cause   error
}

func (e *FeatureParseError) Error() string {
	return fmt.Sprintf("feature %q: cannot parse %v as number: %v", e.Feature, e.Value, e.Cause)
}

func (e *FeatureParseError) Unwrap() error { return e.Cause }
