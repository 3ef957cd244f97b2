package driven

import "context"

// EmbeddingService generates vector embeddings for text.
// Vectors from EmbedBatch are positionally aligned with the input texts.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-*)
//   - Ollama (nomic-embed-text, mxbai-embed-large)
//   - Gemini (gemini-embedding-001)
//
// Implementations must not retry; retry policy belongs to the caller.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in as few calls as possible.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
