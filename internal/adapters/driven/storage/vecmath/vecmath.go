// Package vecmath holds the similarity and ranking helpers shared by the
// brute-force vector index backends.
package vecmath

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b given their norms.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// Candidate is a scored entry awaiting ranking.
type Candidate struct {
	Match driven.VectorMatch
	Seq   int64
}

// TopK sorts candidates by score descending, then by insertion sequence,
// and returns at most k matches.
func TopK(candidates []Candidate, k int) []driven.VectorMatch {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Match.Score != candidates[j].Match.Score {
			return candidates[i].Match.Score > candidates[j].Match.Score
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	out := make([]driven.VectorMatch, len(candidates))
	for i, c := range candidates {
		out[i] = c.Match
	}
	return out
}

// ValidateEntries checks ids, metadata and vector lengths before a write.
// dims of 0 means the first entry fixes the dimension; the resolved
// dimension is returned.
func ValidateEntries(entries []domain.IndexedEntry, dims int) (int, error) {
	for _, e := range entries {
		if e.ID == "" {
			return dims, fmt.Errorf("%w: entry id is empty", domain.ErrValidation)
		}
		if err := e.Metadata.Validate(); err != nil {
			return dims, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if dims == 0 {
			dims = len(e.Vector)
		}
		if len(e.Vector) != dims || dims == 0 {
			return dims, &domain.DimensionMismatchError{Expected: dims, Got: len(e.Vector)}
		}
	}
	return dims, nil
}

// CheckQuery validates a query vector against the index dimension.
func CheckQuery(vector []float32, dims int) error {
	if dims != 0 && len(vector) != dims {
		return &domain.DimensionMismatchError{Expected: dims, Got: len(vector)}
	}
	return nil
}
