package cached

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type countingEmbedder struct {
	calls   int
	batches [][]string
	err     error
}

func (m *countingEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *countingEmbedder) Dimensions() int              { return 2 }
func (m *countingEmbedder) ModelName() string            { return "counting" }
func (m *countingEmbedder) Ping(_ context.Context) error { return nil }
func (m *countingEmbedder) Close() error                 { return nil }

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(&countingEmbedder{}, 0)
	assert.Error(t, err)
}

func TestEmbed_CachesResult(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 10)
	require.NoError(t, err)

	first, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, svc.Len())
}

func TestEmbed_ErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	svc, err := New(inner, 10)
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Len())
}

func TestEmbedBatch_OnlyMissingTexts(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 10)
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "bb")
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 1}, {2, 1}, {3, 1}}, vecs)
	require.Len(t, inner.batches, 1)
	assert.Equal(t, []string{"a", "ccc"}, inner.batches[0])

	// Everything is cached now.
	_, err = svc.EmbedBatch(context.Background(), []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Len(t, inner.batches, 1)
}

func TestDelegation(t *testing.T) {
	svc, err := New(&countingEmbedder{}, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, "counting", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
