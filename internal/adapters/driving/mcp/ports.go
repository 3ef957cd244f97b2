package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer runs the full document Q&A pipeline.
	Answer driving.AnswerService

	// Retrieval queries chunks of runs whose index entries were retained.
	Retrieval driving.RetrievalService

	// Settings exposes the effective configuration as resources.
	Settings SettingsReader
}

// SettingsReader is the part of the settings service the resources need.
type SettingsReader interface {
	GetValue(key string) (string, error)
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Retrieval and Settings are optional
	return nil
}
