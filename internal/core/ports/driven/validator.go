package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AIConfigValidator checks that configured providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error

	// ValidateLLM pings the LLM provider.
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error

	// ValidateVectorIndex opens the vector index backend.
	ValidateVectorIndex(ctx context.Context, config *domain.VectorIndexSettings) error
}
