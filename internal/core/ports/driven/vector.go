package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex stores chunk vectors with their payload and answers
// nearest-neighbour queries. It never computes embeddings itself.
//
// Entries are grouped by namespace. One ingestion run writes to and
// queries one namespace, so concurrent runs never see each other's chunks.
type VectorIndex interface {
	// Upsert writes or replaces entries keyed by (namespace, ID) and returns the IDs written.
	// Re-upserting an ID replaces its vector and payload but keeps its original insertion order.
	// Returns a *domain.DimensionMismatchError if any vector has the wrong length.
	Upsert(ctx context.Context, namespace string, entries []domain.IndexedEntry) ([]string, error)

	// Query returns at most topK entries ordered by descending similarity.
	// Equal scores are ordered by insertion, earliest first.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]VectorMatch, error)

	// DeleteNamespace removes every entry in the namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Dimensions returns the configured vector size, or 0 if not yet fixed.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// VectorMatch is one similarity search result.
type VectorMatch struct {
	// ID is the matched entry ID.
	ID string

	// Score is the cosine similarity in [-1, 1].
	Score float64

	// Text is the stored chunk text.
	Text string

	// Metadata is the stored chunk metadata.
	Metadata domain.Metadata
}
