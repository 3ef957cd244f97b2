package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/services"
)

const (
	// uriScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Settings == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Effective configuration with credentials masked",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "settings/{key}",
		Name:        "setting",
		Description: "A single configuration value",
		MIMEType:    "text/plain",
	}, s.handleSettingResource)
}

// handleSettingsResource returns every setting as a JSON object.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	values := make(map[string]string)
	for _, key := range services.SettingKeys() {
		v, err := s.ports.Settings.GetValue(key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		values[key] = mask(key, v)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSettingResource returns one setting.
func (s *Server) handleSettingResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	key := extractSettingKey(req.Params.URI)
	if key == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	v, err := s.ports.Settings.GetValue(key)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     mask(key, v),
		}},
	}, nil
}

// extractSettingKey extracts the key from docqa://settings/{key}.
func extractSettingKey(uri string) string {
	prefix := uriScheme + "settings/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	key := strings.TrimPrefix(uri, prefix)
	if key == "" || strings.Contains(key, "/") {
		return ""
	}
	return key
}

// mask hides credentials, keeping whether one is set visible.
func mask(key, value string) string {
	if !services.IsSecretKey(key) || value == "" {
		return value
	}
	return "********"
}
