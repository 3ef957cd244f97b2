package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentSource fetches raw document bytes.
// Failures (unreachable host, non-2xx status, timeout) wrap domain.ErrAcquisition.
type DocumentSource interface {
	// Fetch downloads the document at url.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}

// TextExtractor turns raw document bytes into plain text.
// Unknown formats fall back to decoding the bytes as UTF-8 text.
type TextExtractor interface {
	// Extract returns the plain text of the document.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}
