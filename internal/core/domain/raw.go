package domain

// RawDocument represents opaque bytes fetched from a document source.
// It is the fetcher's output before text extraction.
type RawDocument struct {
	// URI is the original location of the document.
	URI string

	// MIMEType is the declared content type (e.g., "application/pdf").
	// May be empty or generic when the source did not say.
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains source-specific key-value pairs.
	Metadata map[string]any
}
