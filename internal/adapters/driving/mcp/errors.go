// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants answer questions about a document through the pipeline.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
