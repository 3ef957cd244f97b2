package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewConfigValidator(t *testing.T) {
	require.NotNil(t, NewConfigValidator())
}

func TestConfigValidator_NilOrUnconfigured(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, nil))
	assert.NoError(t, v.ValidateLLM(ctx, nil))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{}))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{}))
}

func TestConfigValidator_Ollama(t *testing.T) {
	server := ollamaServer(t)
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))

	server.Close()
	assert.Error(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
	assert.Error(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
}

func TestConfigValidator_ValidateVectorIndex(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendMemory}))
	assert.NoError(t, v.ValidateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: domain.VectorBackendSQLite, Path: t.TempDir()}))
	assert.Error(t, v.ValidateVectorIndex(ctx, &domain.VectorIndexSettings{Backend: "unknown"}))
}
