package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const dimensionsKey = "dimensions"

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex persists entries in SQLite and answers queries by brute force.
type VectorIndex struct {
	store *Store

	mu   sync.RWMutex
	dims int
}

// NewVectorIndex opens (or creates) the index in dataDir.
// A dimensions of 0 adopts the dimension stored by an earlier run, or lets the
// first upsert fix it. A non-zero value must agree with the stored one.
func NewVectorIndex(dataDir string, dimensions int) (*VectorIndex, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	stored, err := store.intSetting(context.Background(), dimensionsKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	switch {
	case dimensions == 0:
		dimensions = stored
	case stored != 0 && stored != dimensions:
		store.Close()
		return nil, &domain.DimensionMismatchError{Expected: stored, Got: dimensions}
	}

	return &VectorIndex{store: store, dims: dimensions}, nil
}

// Path returns the database file path.
func (v *VectorIndex) Path() string {
	return v.store.Path()
}

// Upsert writes all entries in one transaction.
// A conflicting (namespace, id) keeps its original seq.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, entries []domain.IndexedEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dims, err := vecmath.ValidateEntries(entries, v.dims)
	if err != nil {
		return nil, err
	}

	type row struct {
		id, text, metadata string
		vector             []byte
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		meta := e.Metadata
		if meta == nil {
			meta = domain.Metadata{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("%w: marshalling metadata for %s: %w", domain.ErrValidation, e.ID, err)
		}
		rows = append(rows, row{id: e.ID, text: e.Text, metadata: string(metaJSON), vector: encodeVector(e.Vector)})
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, v.unavailable(ctx, "beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if v.dims == 0 {
		if err := putIntSetting(ctx, tx, dimensionsKey, dims); err != nil {
			return nil, v.unavailable(ctx, "storing dimensions", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_entries (namespace, id, seq, vector, text, metadata)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM vector_entries), ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			vector = excluded.vector,
			text = excluded.text,
			metadata = excluded.metadata
	`)
	if err != nil {
		return nil, v.unavailable(ctx, "preparing upsert", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, namespace, r.id, r.vector, r.text, r.metadata); err != nil {
			return nil, v.unavailable(ctx, "upserting entry "+r.id, err)
		}
		ids = append(ids, r.id)
	}

	if err := tx.Commit(); err != nil {
		return nil, v.unavailable(ctx, "committing upsert", err)
	}

	v.dims = dims
	return ids, nil
}

// Query scans the namespace in insertion order and ranks by cosine similarity.
func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := vecmath.CheckQuery(vector, v.Dimensions()); err != nil {
		return nil, err
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, seq, vector, text, metadata
		FROM vector_entries
		WHERE namespace = ?
		ORDER BY seq
	`, namespace)
	if err != nil {
		return nil, v.unavailable(ctx, "querying entries", err)
	}
	defer rows.Close()

	queryNorm := vecmath.Norm(vector)
	var candidates []vecmath.Candidate
	for rows.Next() {
		var (
			id, text, metaJSON string
			seq                int64
			blob               []byte
		)
		if err := rows.Scan(&id, &seq, &blob, &text, &metaJSON); err != nil {
			return nil, v.unavailable(ctx, "scanning entry", err)
		}

		stored := decodeVector(blob)
		if len(stored) != len(vector) {
			return nil, &domain.DimensionMismatchError{Expected: len(stored), Got: len(vector)}
		}

		var meta domain.Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("%w: decoding metadata for %s: %w", domain.ErrIndexUnavailable, id, err)
		}

		candidates = append(candidates, vecmath.Candidate{
			Match: driven.VectorMatch{
				ID:       id,
				Score:    vecmath.Cosine(vector, stored, queryNorm, vecmath.Norm(stored)),
				Text:     text,
				Metadata: meta,
			},
			Seq: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, v.unavailable(ctx, "iterating entries", err)
	}

	return vecmath.TopK(candidates, topK), nil
}

// DeleteNamespace removes every entry in the namespace.
func (v *VectorIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM vector_entries WHERE namespace = ?", namespace); err != nil {
		return v.unavailable(ctx, "deleting namespace", err)
	}
	return nil
}

// Count returns the number of entries in the namespace.
func (v *VectorIndex) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vector_entries WHERE namespace = ?", namespace).Scan(&n)
	if err != nil {
		return 0, v.unavailable(ctx, "counting entries", err)
	}
	return n, nil
}

// Dimensions returns the vector size, or 0 if not yet fixed.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Close closes the underlying database.
func (v *VectorIndex) Close() error {
	return v.store.Close()
}

// unavailable wraps a database failure, preferring the context error
// when the caller gave up.
func (v *VectorIndex) unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
