// Package qdrant implements driven.VectorIndex on a Qdrant server over REST.
//
// All namespaces share one collection. Each point carries its namespace in
// the payload and searches filter on it. Point IDs are name-based UUIDs so
// re-upserting a chunk overwrites the same point.
package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const (
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "docqa"

	// DefaultTimeout bounds a single Qdrant request.
	DefaultTimeout = 15 * time.Second

	// searchOverfetch widens each search so ties at the cut-off can be
	// re-ordered by insertion before truncating.
	searchOverfetch = 2
)

// Payload keys.
const (
	payloadNamespace = "namespace"
	payloadChunkID   = "chunk_id"
	payloadSeq       = "seq"
	payloadText      = "text"
	payloadMetadata  = "metadata"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Config holds Qdrant connection settings.
type Config struct {
	// URL is the Qdrant REST base URL (e.g., http://localhost:6333).
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the collection name. Defaults to DefaultCollection.
	Collection string

	// Dimensions fixes the vector size. 0 lets the first upsert fix it.
	Dimensions int

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// VectorIndex stores entries as Qdrant points.
type VectorIndex struct {
	client     *httpapi.Client
	collection string

	mu      sync.Mutex
	dims    int
	ensured bool
	lastSeq int64
}

// New creates a Qdrant-backed index. When the dimension is known the
// collection is created (or checked) immediately.
func New(ctx context.Context, cfg Config) (*VectorIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrValidation)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["api-key"] = cfg.APIKey
	}

	v := &VectorIndex{
		client: httpapi.New(httpapi.Config{
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
			Headers: headers,
		}, domain.ErrIndexUnavailable),
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
	}

	if cfg.Dimensions > 0 {
		v.mu.Lock()
		err := v.ensureCollection(ctx, cfg.Dimensions)
		v.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// PointID returns the Qdrant point ID for a chunk in a namespace.
func PointID(namespace, id string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa:"+namespace))
	return uuid.NewSHA1(ns, []byte(id)).String()
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes all entries in one request. Existing points keep their seq.
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
	if err := v.ensureCollection(ctx, dims); err != nil {
		return nil, err
	}

	pointIDs := make([]string, len(entries))
	for i, e := range entries {
		pointIDs[i] = PointID(namespace, e.ID)
	}
	existing, err := v.existingSeqs(ctx, pointIDs)
	if err != nil {
		return nil, err
	}

	points := make([]point, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		seq, ok := existing[pointIDs[i]]
		if !ok {
			seq = v.nextSeq()
			existing[pointIDs[i]] = seq
		}
		meta := map[string]any(e.Metadata.Clone())
		if meta == nil {
			meta = map[string]any{}
		}
		points[i] = point{
			ID:     pointIDs[i],
			Vector: e.Vector,
			Payload: map[string]any{
				payloadNamespace: namespace,
				payloadChunkID:   e.ID,
				payloadSeq:       seq,
				payloadText:      e.Text,
				payloadMetadata:  meta,
			},
		}
		ids[i] = e.ID
	}

	body := map[string]any{"points": points}
	if err := v.client.Put(ctx, v.collectionPath("/points?wait=true"), body, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Query searches within the namespace and re-sorts ties by insertion.
func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := vecmath.CheckQuery(vector, v.Dimensions()); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK * searchOverfetch,
		"with_payload": true,
		"filter":       namespaceFilter(namespace),
	}
	var resp searchResponse
	if err := v.client.Post(ctx, v.collectionPath("/points/search"), req, &resp); err != nil {
		if httpapi.StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	candidates := make([]vecmath.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		candidates = append(candidates, vecmath.Candidate{
			Match: driven.VectorMatch{
				ID:       stringField(r.Payload, payloadChunkID),
				Score:    r.Score,
				Text:     stringField(r.Payload, payloadText),
				Metadata: metadataField(r.Payload),
			},
			Seq: int64Field(r.Payload, payloadSeq),
		})
	}
	return vecmath.TopK(candidates, topK), nil
}

// DeleteNamespace removes every point carrying the namespace.
func (v *VectorIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	body := map[string]any{"filter": namespaceFilter(namespace)}
	err := v.client.Post(ctx, v.collectionPath("/points/delete?wait=true"), body, nil)
	if httpapi.StatusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// Dimensions returns the vector size, or 0 if not yet fixed.
func (v *VectorIndex) Dimensions() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dims
}

// Ping checks that the server is reachable and the API key is accepted.
func (v *VectorIndex) Ping(ctx context.Context) error {
	return v.client.Get(ctx, "/collections", nil)
}

// Close is a no-op; the HTTP client holds no open resources.
func (v *VectorIndex) Close() error {
	return nil
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// ensureCollection creates the collection if missing and checks its vector
// size otherwise. Callers hold v.mu.
func (v *VectorIndex) ensureCollection(ctx context.Context, dims int) error {
	if v.ensured {
		return nil
	}

	var info collectionInfo
	err := v.client.Get(ctx, v.collectionPath(""), &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dims {
			return &domain.DimensionMismatchError{Expected: size, Got: dims}
		}
	case httpapi.StatusCode(err) == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dims,
				"distance": "Cosine",
			},
		}
		if err := v.client.Put(ctx, v.collectionPath(""), body, nil); err != nil {
			return err
		}
	default:
		return err
	}

	v.dims = dims
	v.ensured = true
	return nil
}

type retrieveResponse struct {
	Result []struct {
		ID      string         `json:"id"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// existingSeqs returns the stored seq of each point that already exists.
func (v *VectorIndex) existingSeqs(ctx context.Context, pointIDs []string) (map[string]int64, error) {
	body := map[string]any{
		"ids":          pointIDs,
		"with_payload": []string{payloadSeq},
		"with_vector":  false,
	}
	var resp retrieveResponse
	if err := v.client.Post(ctx, v.collectionPath("/points"), body, &resp); err != nil {
		return nil, err
	}
	seqs := make(map[string]int64, len(resp.Result))
	for _, r := range resp.Result {
		seqs[r.ID] = int64Field(r.Payload, payloadSeq)
	}
	return seqs, nil
}

// nextSeq returns a sequence that increases within the process and, being
// clock based, across restarts. Microseconds keep it exact as a JSON number.
// Callers hold v.mu.
func (v *VectorIndex) nextSeq() int64 {
	seq := time.Now().UnixMicro()
	if seq <= v.lastSeq {
		seq = v.lastSeq + 1
	}
	v.lastSeq = seq
	return seq
}

func (v *VectorIndex) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(v.collection) + suffix
}

func namespaceFilter(namespace string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{
				"key":   payloadNamespace,
				"match": map[string]any{"value": namespace},
			},
		},
	}
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func int64Field(payload map[string]any, key string) int64 {
	switch n := payload[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func metadataField(payload map[string]any) domain.Metadata {
	raw, ok := payload[payloadMetadata].(map[string]any)
	if !ok {
		return domain.Metadata{}
	}
	return domain.Metadata(raw)
}
