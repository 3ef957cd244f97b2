package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures by cause.
// Adapters wrap these with %w so callers can classify with errors.Is.
var (
	// ErrAcquisition indicates the document could not be fetched or its text extracted.
	ErrAcquisition = errors.New("document acquisition failed")

	// ErrEmbeddingService indicates the embedding service failed or returned malformed output.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndexUnavailable indicates the vector index could not be reached or rejected credentials.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector's length disagrees with the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrGenerationService indicates the generative model failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrValidation indicates a malformed request or value.
	ErrValidation = errors.New("validation error")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	// It is always wrapped together with the service error of the caller.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnsupportedType indicates an unknown provider or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// DimensionMismatchError reports the expected and actual vector lengths.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// StageError records which pipeline state failed and, when answering,
// for which question.
type StageError struct {
	Stage PipelineState

	// Question is the 0-based question index, or -1 outside the answering stage.
	Question int

	Err error
}

func (e *StageError) Error() string {
	if e.Question >= 0 {
		return fmt.Sprintf("%s (question %d): %v", e.Stage, e.Question+1, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with a stage that has no question index.
func NewStageError(stage PipelineState, err error) *StageError {
	return &StageError{Stage: stage, Question: -1, Err: err}
}
