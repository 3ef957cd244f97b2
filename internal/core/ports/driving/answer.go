package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerService answers a batch of questions about one document.
type AnswerService interface {
	// Answer ingests the document and answers every question.
	// Answers are positionally aligned with req.Questions.
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error)
}

// SessionService ingests a document once and answers questions about it on demand.
type SessionService interface {
	// Open fetches, chunks and indexes the document.
	Open(ctx context.Context, documentURL string) (Session, error)
}

// Session is one ingested document.
type Session interface {
	// ID returns the run ID of the ingestion.
	ID() string

	// ChunkCount returns the number of chunks indexed.
	ChunkCount() int

	// Ask retrieves evidence for the question and synthesises an answer.
	Ask(ctx context.Context, question string) (string, error)

	// Close releases the session's index entries unless they are retained.
	Close(ctx context.Context) error
}

// RetrievalService exposes evidence retrieval without answer synthesis.
type RetrievalService interface {
	// Retrieve returns at most topK chunks from the namespace, most similar first.
	Retrieve(ctx context.Context, namespace, question string, topK int) ([]domain.RetrievedChunk, error)
}
