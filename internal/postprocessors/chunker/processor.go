// Package chunker splits document text into clause-level chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultMinLength is the default minimum trimmed chunk length in characters.
// Shorter segments are headers, stray markers or whitespace.
const DefaultMinLength = 50

// Metadata keys set on every chunk.
const (
	MetaSectionNumber = "section_number"
	MetaOffset        = "offset"
)

// Chunker splits text at structural boundaries found by a BoundaryDetector.
// It is stateless and deterministic.
type Chunker struct {
	detector  BoundaryDetector
	minLength int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMinLength sets the minimum trimmed chunk length in characters.
func WithMinLength(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// WithDetector replaces the boundary detection strategy.
func WithDetector(d BoundaryDetector) Option {
	return func(c *Chunker) {
		if d != nil {
			c.detector = d
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		detector:  DefaultDetector(),
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "clause:" + c.detector.Name()
}

// MinLength returns the configured minimum chunk length.
func (c *Chunker) MinLength() int {
	return c.minLength
}

// Chunk splits text into chunks.
// Each raw segment gets the index i of its position in the text; retained
// segments are emitted as "section_<i>" so IDs and sequence indexes stay
// stable regardless of which neighbours were filtered out.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	spans := c.detector.Boundaries(text)
	chunks := make([]domain.Chunk, 0, len(spans)+1)

	segment := 0
	start := 0
	emit := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" && utf8.RuneCountInString(trimmed) >= c.minLength {
			offset := start + strings.Index(raw, trimmed)
			chunks = append(chunks, domain.Chunk{
				ID:            fmt.Sprintf("section_%d", segment),
				Text:          trimmed,
				SequenceIndex: segment,
				Metadata: domain.Metadata{
					MetaSectionNumber: segment,
					MetaOffset:        offset,
				},
			})
		}
		segment++
	}

	for _, sp := range spans {
		if sp.Start < start || sp.End > len(text) {
			continue
		}
		emit(sp.Start)
		start = sp.End
	}
	emit(len(text))

	return chunks
}
