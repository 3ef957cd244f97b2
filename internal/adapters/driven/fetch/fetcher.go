// Package fetch downloads documents over HTTP(S) or reads them from local
// file:// URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

const (
	// DefaultTimeout bounds one download.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBytes caps the body size.
	DefaultMaxBytes int64 = 50 << 20

	// DefaultUserAgent identifies docqa to document hosts.
	DefaultUserAgent = "docqa/1.0"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentSource = (*Fetcher)(nil)

// Config holds fetcher configuration.
type Config struct {
	// Timeout bounds one download (default: 60s).
	Timeout time.Duration

	// MaxBytes caps the body size (default: 50 MiB).
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string

	// AllowFiles enables file:// URLs.
	AllowFiles bool
}

// Fetcher implements driven.DocumentSource.
type Fetcher struct {
	client     *resty.Client
	maxBytes   int64
	allowFiles bool
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Fetcher{client: client, maxBytes: cfg.MaxBytes, allowFiles: cfg.AllowFiles}
}

// Fetch downloads the document at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid document url: %w", domain.ErrValidation, err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		if !f.allowFiles {
			return nil, fmt.Errorf("%w: file urls are not allowed", domain.ErrValidation)
		}
		return f.readFile(u)
	default:
		return nil, fmt.Errorf("%w: unsupported url scheme %q", domain.ErrValidation, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL) (*domain.RawDocument, error) {
	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrAcquisition, redact(u), err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !isSuccess(resp.StatusCode()) {
		return nil, fmt.Errorf("%w: GET %s: status %d", domain.ErrAcquisition, redact(u), resp.StatusCode())
	}

	content, err := f.readLimited(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("fetched %s: %d bytes in %s", redact(u), len(content), time.Since(start).Round(time.Millisecond))

	return &domain.RawDocument{
		URI:      u.String(),
		MIMEType: resp.Header().Get("Content-Type"),
		Content:  content,
		Metadata: map[string]any{
			"status_code": resp.StatusCode(),
		},
	}, nil
}

func (f *Fetcher) readFile(u *url.URL) (*domain.RawDocument, error) {
	path := filepath.FromSlash(u.Path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAcquisition, err)
	}
	defer file.Close()

	content, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{URI: u.String(), Content: content}, nil
}

// readLimited reads at most maxBytes and fails if the body is larger.
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", domain.ErrAcquisition, err)
	}
	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrAcquisition, f.maxBytes)
	}
	return content, nil
}

// redact drops the query string, which often carries signed-URL tokens.
func redact(u *url.URL) string {
	c := *u
	if c.RawQuery != "" {
		c.RawQuery = "..."
	}
	c.User = nil
	return c.String()
}

// FileURL converts a local path into a file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
