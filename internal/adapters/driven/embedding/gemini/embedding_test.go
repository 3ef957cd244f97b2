package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewEmbeddingService(context.Background(), Config{})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
		assert.Equal(t, DefaultDimensions, svc.Dimensions())
		assert.NoError(t, svc.Close())
	})
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed_ServerErrorIsEmbeddingServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestClassify(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		err := classify(genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"})
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("other", func(t *testing.T) {
		err := classify(errors.New("x"))
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.NotErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("context passes through", func(t *testing.T) {
		assert.Equal(t, context.Canceled, classify(context.Canceled))
	})
}
