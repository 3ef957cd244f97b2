// Package ai provides factory functions for creating AI service adapters
// and the vector index they feed.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/cached"
	geminiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// settingsHint is appended to configuration errors.
const settingsHint = "Run 'docqa settings' to review configuration"

// pinger is implemented by adapters that can check connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// InitResult contains the services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	PromptStore      driven.PromptStore // User-customisable prompt templates.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Close(); err != nil {
			logger.Warn("closing embedding service: %v", err)
		}
	}
	if r.VectorIndex != nil {
		if err := r.VectorIndex.Close(); err != nil {
			logger.Warn("closing vector index: %v", err)
		}
	}
	if r.LLMService != nil {
		if err := r.LLMService.Close(); err != nil {
			logger.Warn("closing LLM service: %v", err)
		}
	}
}

// Options tunes Initialise.
type Options struct {
	// Validate pings each remote service before returning.
	Validate bool

	// PromptDir overrides the prompt directory (empty = ~/.docqa/prompts).
	PromptDir string
}

// Initialise builds every service the answer pipeline needs.
// On error, anything already created is closed.
func Initialise(ctx context.Context, settings *domain.AppSettings, opts Options) (*InitResult, error) {
	result := &InitResult{}
	ok := false
	defer func() {
		if !ok {
			result.Close()
		}
	}()

	embedder, err := CreateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, settingsHint)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, settingsHint)
	}
	result.EmbeddingService = DecorateEmbedding(embedder, settings.Embedding.CacheSize, settings.RateLimit)

	llm, err := CreateLLMService(ctx, &settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, settingsHint)
	}
	if llm == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrLLMUnavailable, settings.LLM.Provider, settingsHint)
	}
	result.LLMService = ratelimit.NewLLMService(llm, newLimiter(settings.RateLimit))

	index, err := CreateVectorIndex(ctx, &settings.VectorIndex, result.EmbeddingService.Dimensions())
	if err != nil {
		return nil, err
	}
	result.VectorIndex = index

	prompts, err := file.NewPromptStore(opts.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("creating prompt store: %w", err)
	}
	result.PromptStore = prompts

	if opts.Validate {
		if err := result.Ping(ctx); err != nil {
			return nil, err
		}
	}

	logger.Debug("AI services ready: embedding=%s llm=%s index=%s (dims %d)",
		result.EmbeddingService.ModelName(), result.LLMService.ModelName(),
		settings.VectorIndex.Backend, result.VectorIndex.Dimensions())

	ok = true
	return result, nil
}

// Ping checks connectivity of every service that supports it.
func (r *InitResult) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var errs []error
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err))
		}
	}
	if r.LLMService != nil {
		if err := r.LLMService.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err))
		}
	}
	if p, ok := r.VectorIndex.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("vector index unreachable: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DecorateEmbedding adds the query cache (when cacheSize > 0) and the rate limiter.
func DecorateEmbedding(svc driven.EmbeddingService, cacheSize int, limits domain.RateLimitSettings) driven.EmbeddingService {
	if cacheSize > 0 {
		c, err := cached.New(svc, cacheSize)
		if err != nil {
			logger.Warn("embedding cache disabled: %v", err)
		} else {
			svc = c
		}
	}
	return ratelimit.NewEmbeddingService(svc, newLimiter(limits))
}

func newLimiter(limits domain.RateLimitSettings) *ratelimit.Limiter {
	return ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: limits.RequestsPerSecond,
		Burst:             limits.Burst,
	})
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or gemini",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateVectorIndex creates the configured vector index backend.
// dimensions fixes the vector size; 0 lets the first upsert decide.
func CreateVectorIndex(ctx context.Context, settings *domain.VectorIndexSettings, dimensions int) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		return memory.NewVectorIndex(dimensions), nil

	case domain.VectorBackendSQLite:
		return sqlite.NewVectorIndex(settings.Path, dimensions)

	case domain.VectorBackendQdrant:
		return qdrant.New(ctx, qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: vector index backend %s", domain.ErrUnsupportedType, settings.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
