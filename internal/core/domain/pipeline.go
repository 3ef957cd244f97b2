package domain

// PipelineState is a step in the lifecycle of one answer request.
type PipelineState string

// Pipeline states in execution order. Failed is reachable from any state.
const (
	StateFetching  PipelineState = "fetching"
	StateChunking  PipelineState = "chunking"
	StateIndexing  PipelineState = "indexing"
	StateAnswering PipelineState = "answering"
	StateDone      PipelineState = "done"
	StateFailed    PipelineState = "failed"
)

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}

// IsTerminal returns true for Done and Failed.
func (s PipelineState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// FailurePolicy controls how a failed question affects the rest of the batch.
type FailurePolicy string

// Available failure policies.
const (
	// FailFast aborts the whole request on the first question failure.
	FailFast FailurePolicy = "fail_fast"

	// PerQuestion marks the failed question and keeps answering the others.
	PerQuestion FailurePolicy = "per_question"
)

// IsValid returns true if the policy is recognised.
func (p FailurePolicy) IsValid() bool {
	return p == FailFast || p == PerQuestion
}

// String returns the string representation.
func (p FailurePolicy) String() string {
	return string(p)
}
