// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// SessionOpened is sent when document ingestion finishes.
type SessionOpened struct {
	Session driving.Session
	Err     error
}

// AnswerReceived carries the answer to one question back to the model.
type AnswerReceived struct {
	// Index is the transcript position of the question.
	Index   int
	Answer  string
	Err     error
	Elapsed time.Duration
}

// SessionClosed is sent after the session's index entries are released.
type SessionClosed struct {
	Err error
}
