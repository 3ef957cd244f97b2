package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVerbose(t *testing.T) {
	defer Reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Contains(t, buf.String(), "test message arg")
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")

	assert.Zero(t, buf.Len(), "default level is warn")
}

func TestWarn_AlwaysLogged(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("careful %d", 1)
	Error("broken %d", 2)

	assert.Contains(t, buf.String(), "careful 1")
	assert.Contains(t, buf.String(), "broken 2")
}

func TestSection(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Indexing")

	assert.Contains(t, buf.String(), "=== Indexing ===")
}

func TestConfigure_Level(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure(Config{Level: "info"}))

	Info("now visible")
	Debug("still hidden")

	assert.Contains(t, buf.String(), "now visible")
	assert.NotContains(t, buf.String(), "still hidden")
}

func TestConfigure_InvalidLevel(t *testing.T) {
	defer Reset()

	err := Configure(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestConfigure_JSON(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure(Config{Level: "info", JSON: true}))

	Info("hello %s", "json")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "hello json", entry["msg"])
}

func TestWith(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	With("status", 500).Error("request failed")

	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "status=500")
}
