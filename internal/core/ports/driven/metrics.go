package driven

import "time"

// MetricsRecorder receives pipeline timings and outcomes.
type MetricsRecorder interface {
	// ObserveStage records how long a pipeline stage took and whether it succeeded.
	ObserveStage(stage string, outcome string, d time.Duration)

	// IncQuestions counts answered or failed questions.
	IncQuestions(outcome string)
}

// Metric outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
