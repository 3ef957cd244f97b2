package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Load())
	assert.NoError(t, store.Save())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("pipeline.failure_policy", "fail_fast"))
	require.NoError(t, store.Set("pipeline.failure_policy", "per_question"))

	val, ok := store.Get("pipeline.failure_policy")
	assert.True(t, ok)
	assert.Equal(t, "per_question", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"embedding.model":      "text-embedding-3-small",
		"pipeline.top_k":       int64(7),
		"pipeline.concurrency": float64(3),
		"pipeline.temperature": 0.2,
		"pipeline.max_tokens":  500,
		"vector_index.retain":  true,
	})

	assert.Equal(t, "text-embedding-3-small", store.GetString("embedding.model"))
	assert.Equal(t, 7, store.GetInt("pipeline.top_k"))
	assert.Equal(t, 3, store.GetInt("pipeline.concurrency"))
	assert.InDelta(t, 0.2, store.GetFloat("pipeline.temperature"), 1e-9)
	assert.InDelta(t, 500.0, store.GetFloat("pipeline.max_tokens"), 1e-9)
	assert.True(t, store.GetBool("vector_index.retain"))
}

func TestConfigStore_TypedGetters_WrongType(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"str":  "x",
		"num":  1,
		"bool": true,
	})

	assert.Equal(t, "", store.GetString("num"))
	assert.Equal(t, 0, store.GetInt("str"))
	assert.Equal(t, 0.0, store.GetFloat("bool"))
	assert.False(t, store.GetBool("str"))

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Equal(t, 0.0, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("pipeline.top_k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("pipeline.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("pipeline.top_k")
	assert.True(t, ok)
}
