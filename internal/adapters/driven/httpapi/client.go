// Package httpapi is the JSON-over-HTTP client shared by the REST adapters
// (OpenAI, Ollama, Qdrant). It classifies failures into domain errors so
// services can decide whether to retry.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// maxErrorBody caps how much of an error response is echoed into messages.
const maxErrorBody = 512

// Config holds client configuration.
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration

	// BearerToken is sent as "Authorization: Bearer <token>" when set.
	BearerToken string

	// Headers are added to every request.
	Headers map[string]string
}

// Client sends JSON requests to one API.
type Client struct {
	rc      *resty.Client
	service error
}

// New creates a client. Failures are wrapped with service, the domain
// sentinel of the adapter using it (e.g. domain.ErrEmbeddingService).
func New(cfg Config, service error) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.BearerToken != "" {
		rc.SetAuthToken(cfg.BearerToken)
	}
	for k, v := range cfg.Headers {
		rc.SetHeader(k, v)
	}
	return &Client{rc: rc, service: service}
}

// Get issues a GET and decodes a 2xx body into result (may be nil).
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPut, path, body, result)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do performs the request and classifies the outcome.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	req := c.rc.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		// Some servers omit or mislabel the content type.
		req.SetResult(result).ForceContentType("application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", c.service, method, path, err)
	}
	return c.checkStatus(method, path, resp)
}

func (c *Client) checkStatus(method, path string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	statusErr := &StatusError{
		Method: method,
		Path:   path,
		Code:   resp.StatusCode(),
		Body:   truncate(strings.TrimSpace(resp.String()), maxErrorBody),
	}
	if statusErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w: %w", c.service, domain.ErrRateLimited, statusErr)
	}
	return fmt.Errorf("%w: %w", c.service, statusErr)
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// StatusCode returns the HTTP status of err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
