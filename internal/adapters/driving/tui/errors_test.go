package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	all := []error{
		ErrMissingSessionService,
		ErrMissingDocument,
		ErrInvalidPorts,
	}

	seen := make(map[string]bool)
	for _, err := range all {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestErrors_Messages(t *testing.T) {
	assert.Contains(t, ErrMissingSessionService.Error(), "session service")
	assert.Contains(t, ErrMissingDocument.Error(), "document URL")
	assert.Contains(t, ErrInvalidPorts.Error(), "invalid ports")
}
