package postprocessors

import (
	"errors"

	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Strategy names understood by RegisterDefaults.
const (
	StrategyDefault = "default"
	StrategyLine    = "line"
	StrategyInline  = "inline"
	StrategyRegex   = "regex"
)

// ConfigPattern is the config key holding a custom boundary pattern.
const ConfigPattern = "pattern"

// RegisterDefaults registers all built-in strategies with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(StrategyDefault, func(_ map[string]any) (chunker.BoundaryDetector, error) {
		return chunker.DefaultDetector(), nil
	})
	r.Register(StrategyLine, func(_ map[string]any) (chunker.BoundaryDetector, error) {
		return chunker.LineMarkerDetector(), nil
	})
	r.Register(StrategyInline, func(_ map[string]any) (chunker.BoundaryDetector, error) {
		return chunker.InlineEnumerationDetector(), nil
	})
	r.Register(StrategyRegex, buildRegex)
}

// buildRegex creates a detector from a user pattern.
// Supported config keys:
//   - pattern (string): regular expression whose first capture group is the separator
func buildRegex(cfg map[string]any) (chunker.BoundaryDetector, error) {
	pattern := getStringFromConfig(cfg, ConfigPattern)
	if pattern == "" {
		return nil, errors.New("regex strategy requires a pattern")
	}
	return chunker.NewRegexDetector(StrategyRegex, pattern)
}

// BuildChunker resolves strategy against the default registry and returns
// a chunker with the given minimum length. An empty strategy selects the default.
func BuildChunker(strategy, pattern string, minLength int) (*chunker.Chunker, error) {
	if strategy == "" {
		strategy = StrategyDefault
	}

	r := NewRegistry()
	RegisterDefaults(r)

	detector, err := r.Build(strategy, map[string]any{ConfigPattern: pattern})
	if err != nil {
		return nil, err
	}
	return chunker.New(chunker.WithDetector(detector), chunker.WithMinLength(minLength)), nil
}

// getStringFromConfig safely extracts a string from generic config map.
func getStringFromConfig(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	s, _ := cfg[key].(string)
	return s
}
