package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/html"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.TextExtractor = (*Registry)(nil)

// extensionTypes maps URL path extensions to MIME types.
var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": docx.MIMEType,
	".htm":  "text/html",
	".html": "text/html",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
}

// Registry selects a normaliser by MIME type and extracts text with it.
type Registry struct {
	byType   map[string][]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates an empty registry that falls back to plain text.
func NewRegistry() *Registry {
	return &Registry{
		byType:   make(map[string][]driven.Normaliser),
		fallback: plaintext.New(),
	}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
// Normalisers for the same type are kept in descending priority order.
func (r *Registry) Register(n driven.Normaliser) {
	for _, mt := range n.SupportedMIMETypes() {
		list := append(r.byType[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[mt] = list
	}
}

// Select returns the highest-priority normaliser for mimeType, or the fallback.
func (r *Registry) Select(mimeType string) driven.Normaliser {
	if list := r.byType[baseType(mimeType)]; len(list) > 0 {
		return list[0]
	}
	return r.fallback
}

// Extract implements driven.TextExtractor.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: nil document", domain.ErrAcquisition)
	}

	mt := r.DetectType(raw)
	n := r.Select(mt)
	logger.Debug("extracting %s as %s (%d bytes)", raw.URI, mt, len(raw.Content))

	result, err := n.Normalise(ctx, raw)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// DetectType resolves the document's MIME type.
// A declared content type wins when a normaliser handles it; otherwise the
// URL extension, then a content sniff decide.
func (r *Registry) DetectType(raw *domain.RawDocument) string {
	if declared := baseType(raw.MIMEType); declared != "" && !isGeneric(declared) && r.handles(declared) {
		return declared
	}
	if byExt := typeFromURL(raw.URI); byExt != "" {
		return byExt
	}
	if len(raw.Content) == 0 {
		return "text/plain"
	}
	return baseType(mimetype.Detect(raw.Content).String())
}

func (r *Registry) handles(mimeType string) bool {
	return len(r.byType[mimeType]) > 0
}

// baseType strips parameters and lowercases a content type.
func baseType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func isGeneric(mt string) bool {
	switch mt {
	case "application/octet-stream", "binary/octet-stream", "application/binary", "application/download":
		return true
	}
	return false
}

func typeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return extensionTypes[strings.ToLower(path.Ext(u.Path))]
}
