package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory brute-force implementation of driven.VectorIndex.
// It is the default backend: every run lives in its own namespace and is
// dropped when the run ends.
type VectorIndex struct {
	mu         sync.RWMutex
	dims       int
	seq        int64
	namespaces map[string]map[string]*memEntry
}

type memEntry struct {
	entry domain.IndexedEntry
	norm  float64
	seq   int64
}

// NewVectorIndex creates an empty index. A dimensions of 0 lets the
// first upsert fix the vector size.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dims:       dimensions,
		namespaces: make(map[string]map[string]*memEntry),
	}
}

// Upsert validates every entry before writing any of them.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, entries []domain.IndexedEntry) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dims, err := vecmath.ValidateEntries(entries, v.dims)
	if err != nil {
		return nil, err
	}
	v.dims = dims

	ns, ok := v.namespaces[namespace]
	if !ok {
		ns = make(map[string]*memEntry)
		v.namespaces[namespace] = ns
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		stored := domain.IndexedEntry{
			ID:       e.ID,
			Vector:   append([]float32(nil), e.Vector...),
			Text:     e.Text,
			Metadata: e.Metadata.Clone(),
		}
		if existing, ok := ns[e.ID]; ok {
			existing.entry = stored
			existing.norm = vecmath.Norm(stored.Vector)
		} else {
			v.seq++
			ns[e.ID] = &memEntry{entry: stored, norm: vecmath.Norm(stored.Vector), seq: v.seq}
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Query scores every entry in the namespace.
func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]driven.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := vecmath.CheckQuery(vector, v.dims); err != nil {
		return nil, err
	}

	ns := v.namespaces[namespace]
	queryNorm := vecmath.Norm(vector)
	candidates := make([]vecmath.Candidate, 0, len(ns))
	for _, e := range ns {
		candidates = append(candidates, vecmath.Candidate{
			Match: driven.VectorMatch{
				ID:       e.entry.ID,
				Score:    vecmath.Cosine(vector, e.entry.Vector, queryNorm, e.norm),
				Text:     e.entry.Text,
				Metadata: e.entry.Metadata.Clone(),
			},
			Seq: e.seq,
		})
	}
	return vecmath.TopK(candidates, topK), nil
}

// DeleteNamespace removes every entry in the namespace.
func (v *VectorIndex) DeleteNamespace(_ context.Context, namespace string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.namespaces, namespace)
	return nil
}

// Dimensions returns the vector size, or 0 before the first upsert.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Len returns the number of entries in the namespace.
func (v *VectorIndex) Len(namespace string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.namespaces[namespace])
}

// Close drops all entries.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.namespaces = make(map[string]map[string]*memEntry)
	return nil
}
