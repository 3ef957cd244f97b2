package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// DefaultTopK is used when a caller asks for zero or fewer chunks.
const DefaultTopK = 5

// Retriever turns a question into the most similar indexed chunks.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	retry    RetryPolicy
	minScore float64
	useMin   bool
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrieverRetry sets the retry policy for embed and query calls.
func WithRetrieverRetry(p RetryPolicy) RetrieverOption {
	return func(r *Retriever) {
		r.retry = p
	}
}

// WithMinScore drops matches scoring below min.
func WithMinScore(minScore float64) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = minScore
		r.useMin = true
	}
}

// NewRetriever creates a retriever over an embedding service and a vector index.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		retry:    NewRetryPolicy(domain.RetrySettings{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the question and returns at most topK chunks from the
// namespace, most similar first. Ranks start at 1.
func (r *Retriever) Retrieve(
	ctx context.Context, namespace, question string, topK int,
) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := EmbedQuery(ctx, r.embedder, question, r.retry)
	if err != nil {
		return nil, err
	}

	var matches []driven.VectorMatch
	err = r.retry.Do(ctx, "vector query", func(ctx context.Context) error {
		var qerr error
		matches, qerr = r.index.Query(ctx, namespace, vector, topK)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}

	chunks := make([]domain.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		if r.useMin && m.Score < r.minScore {
			continue
		}
		chunks = append(chunks, domain.RetrievedChunk{
			ChunkID:  m.ID,
			Text:     m.Text,
			Score:    m.Score,
			Rank:     len(chunks) + 1,
			Metadata: m.Metadata,
		})
	}

	logger.Debug("retrieved %d/%d chunks from %s", len(chunks), topK, namespace)
	return chunks, nil
}
