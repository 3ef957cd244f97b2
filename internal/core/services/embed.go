package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultEmbedBatchSize is how many texts go into one embedding call.
const DefaultEmbedBatchSize = 96

// EmbedChecked embeds texts in batches and verifies that the service returned
// one vector per text, each of the service's dimension. Every vector must
// also share one length when the service does not declare its dimension.
func EmbedChecked(
	ctx context.Context,
	svc driven.EmbeddingService,
	texts []string,
	batchSize int,
	policy RetryPolicy,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}

	want := svc.Dimensions()
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]

		var vectors [][]float32
		err := policy.Do(ctx, "embed batch", func(ctx context.Context) error {
			var err error
			vectors, err = svc.EmbedBatch(ctx, batch)
			return err
		})
		if err != nil {
			return nil, wrapEmbeddingErr(err)
		}

		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d",
				domain.ErrEmbeddingService, len(batch), len(vectors))
		}
		for i, v := range vectors {
			if want == 0 {
				want = len(v)
			}
			if len(v) == 0 || len(v) != want {
				return nil, fmt.Errorf("%w: vector %d: %w", domain.ErrEmbeddingService, start+i,
					&domain.DimensionMismatchError{Expected: want, Got: len(v)})
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single text with the same checks as EmbedChecked.
func EmbedQuery(ctx context.Context, svc driven.EmbeddingService, text string, policy RetryPolicy) ([]float32, error) {
	vectors, err := EmbedChecked(ctx, svc, []string{text}, 1, policy)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// wrapEmbeddingErr tags err with ErrEmbeddingService unless it already
// carries it or is a context error.
func wrapEmbeddingErr(err error) error {
	if isContextErr(err) || errors.Is(err, domain.ErrEmbeddingService) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
}
