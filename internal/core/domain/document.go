package domain

import "fmt"

// Metadata is an open mapping restricted to scalar values.
// Allowed value types are string, bool, int, int64, float32 and float64.
type Metadata map[string]any

// Validate returns ErrValidation if any value is not a scalar.
func (m Metadata) Validate() error {
	for k, v := range m {
		switch v.(type) {
		case string, bool, int, int64, float32, float64:
		default:
			return fmt.Errorf("%w: metadata key %q has non-scalar value of type %T", ErrValidation, k, v)
		}
	}
	return nil
}

// Clone returns a shallow copy. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	dst := make(Metadata, len(m))
	for k, v := range m {
		dst[k] = v
	}
	return dst
}

// Int returns the integer stored under key, converting from any numeric scalar.
// Decoded JSON and SQLite payloads hand numbers back as float64 or int64.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// Chunk is an independently retrievable unit of document text.
// Chunks are created by the chunker and are immutable afterwards.
type Chunk struct {
	// ID is unique within one ingestion run (e.g., "section_3").
	ID string

	// Text is the trimmed chunk content. Never empty.
	Text string

	// SequenceIndex preserves document order and is strictly increasing.
	SequenceIndex int

	// Metadata carries at least the sequence index.
	Metadata Metadata
}

// IndexedEntry is a chunk paired with its embedding, as held by a vector index.
type IndexedEntry struct {
	// ID equals the chunk ID.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// Text is the chunk text payload.
	Text string

	// Metadata is the chunk metadata payload.
	Metadata Metadata
}

// EntryFromChunk builds an IndexedEntry for a chunk and its embedding.
func EntryFromChunk(c Chunk, vector []float32) IndexedEntry {
	return IndexedEntry{
		ID:       c.ID,
		Vector:   vector,
		Text:     c.Text,
		Metadata: c.Metadata.Clone(),
	}
}

// RetrievedChunk is one ranked similarity hit for a question.
type RetrievedChunk struct {
	// ChunkID references the indexed chunk.
	ChunkID string

	// Text is the chunk content.
	Text string

	// Score is the similarity score, higher is more similar.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int

	// Metadata is the chunk metadata.
	Metadata Metadata
}

// QueryAnswer is the output for one input question.
type QueryAnswer struct {
	// Question is the question as asked.
	Question string

	// Answer is the synthesised answer text.
	Answer string

	// Err marks a question that failed under the per-question failure policy.
	Err error
}

// Failed reports whether the question could not be answered.
func (a QueryAnswer) Failed() bool {
	return a.Err != nil
}

// AnswerRequest is one document plus the questions to answer about it.
type AnswerRequest struct {
	// DocumentURL locates the document to ingest.
	DocumentURL string

	// Questions are answered independently; output order matches this order.
	Questions []string
}

// AnswerResult is the output of one pipeline run.
type AnswerResult struct {
	// RunID identifies the ingestion run and its index namespace.
	RunID string

	// Answers is positionally aligned with AnswerRequest.Questions.
	Answers []QueryAnswer

	// ChunkCount is the number of chunks indexed for the document.
	ChunkCount int
}

// InsufficientInformationAnswer is returned when no evidence was retrieved.
const InsufficientInformationAnswer = "The document does not contain enough information to answer this question."
