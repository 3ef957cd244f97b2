package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// Chunker splits extracted document text into ordered, retrievable chunks.
// Implementations must be deterministic: the same text always yields the same chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits text. Empty or whitespace-only text yields no chunks.
	Chunk(text string) []domain.Chunk
}
