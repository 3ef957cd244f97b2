package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func entry(id string, vec ...float32) domain.IndexedEntry {
	return domain.IndexedEntry{
		ID:       id,
		Vector:   vec,
		Text:     "text of " + id,
		Metadata: domain.Metadata{"section_number": 1},
	}
}

func TestVectorIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	ids, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{
		entry("a", 1, 0),
		entry("b", 0, 1),
		entry("c", 1, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	matches, err := idx.Query(ctx, "run", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "c", matches[1].ID)
	assert.Equal(t, "text of a", matches[0].Text)
	assert.Equal(t, 1, matches[0].Metadata["section_number"])
}

func TestVectorIndex_QueryScoresNonIncreasing(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(0)

	var entries []domain.IndexedEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, entry(fmt.Sprintf("e%d", i), float32(i), float32(20-i), 1))
	}
	_, err := idx.Upsert(ctx, "run", entries)
	require.NoError(t, err)

	for _, k := range []int{1, 5, 20, 50} {
		matches, err := idx.Query(ctx, "run", []float32{3, 1, 0}, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(matches), k)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}
	}
}

func TestVectorIndex_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	batch := []domain.IndexedEntry{entry("a", 1, 0), entry("b", 1, 0)}
	_, err := idx.Upsert(ctx, "run", batch)
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "run", batch)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len("run"))
}

func TestVectorIndex_ReupsertKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("first", 0, 1), entry("second", 1, 0)})
	require.NoError(t, err)

	replaced := entry("first", 1, 0)
	replaced.Text = "replaced"
	_, err = idx.Upsert(ctx, "run", []domain.IndexedEntry{replaced})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, "run", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].ID)
	assert.Equal(t, "replaced", matches[0].Text)
	assert.Equal(t, "second", matches[1].ID)
	assert.Equal(t, matches[0].Score, matches[1].Score)
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed at construction", func(t *testing.T) {
		idx := NewVectorIndex(3)
		_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("a", 1, 0)})
		var dm *domain.DimensionMismatchError
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Got)
		assert.Equal(t, 0, idx.Len("run"))
	})

	t.Run("fixed by first upsert", func(t *testing.T) {
		idx := NewVectorIndex(0)
		_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("a", 1, 0)})
		require.NoError(t, err)
		assert.Equal(t, 2, idx.Dimensions())

		_, err = idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("b", 1, 0, 0)})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		_, err = idx.Query(ctx, "run", []float32{1}, 1)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("batch is rejected as a whole", func(t *testing.T) {
		idx := NewVectorIndex(2)
		_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("ok", 1, 0), entry("bad", 1)})
		require.Error(t, err)
		assert.Equal(t, 0, idx.Len("run"))
	})
}

func TestVectorIndex_Validation(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{entry("", 1, 0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad := entry("a", 1, 0)
	bad.Metadata = domain.Metadata{"nested": map[string]any{}}
	_, err = idx.Upsert(ctx, "run", []domain.IndexedEntry{bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVectorIndex_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	_, err := idx.Upsert(ctx, "one", []domain.IndexedEntry{entry("a", 1, 0)})
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "two", []domain.IndexedEntry{entry("b", 1, 0)})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, "one", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)

	require.NoError(t, idx.DeleteNamespace(ctx, "one"))
	matches, err = idx.Query(ctx, "one", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1, idx.Len("two"))
}

func TestVectorIndex_StoredDataIsCopied(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	e := entry("a", 1, 0)
	_, err := idx.Upsert(ctx, "run", []domain.IndexedEntry{e})
	require.NoError(t, err)
	e.Vector[0] = -1
	e.Metadata["section_number"] = 99

	matches, err := idx.Query(ctx, "run", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, 1, matches[0].Metadata["section_number"])
}

func TestVectorIndex_EdgeCases(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	ids, err := idx.Upsert(ctx, "run", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	matches, err := idx.Query(ctx, "missing", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = idx.Query(ctx, "run", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.Upsert(cancelled, "run", []domain.IndexedEntry{entry("a", 1, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVectorIndex_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ns := fmt.Sprintf("run-%d", n)
			_, err := idx.Upsert(ctx, ns, []domain.IndexedEntry{entry("a", 1, 0)})
			assert.NoError(t, err)
			_, err = idx.Query(ctx, ns, []float32{1, 0}, 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.NoError(t, idx.Close())
	assert.Equal(t, 0, idx.Len("run-0"))
}
