package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docqa", rootCmd.Use)
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "env-file", "verbose", "log-level", "log-json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "chunk", "mcp", "tui", "settings", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer logger.Reset()

	_, err := execute(t, "--log-level", "loud", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --log-level")
}

func TestRootCmd_LoadsEnvFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOCQA_CLI_TEST_VAR=loaded\n"), 0o600))
	t.Setenv("DOCQA_CLI_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("DOCQA_CLI_TEST_VAR"))

	_, err := execute(t, "--env-file", path, "version")

	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("DOCQA_CLI_TEST_VAR"))
}

func TestRootCmd_MissingEnvFileIsIgnored(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "absent.env"), "version")

	assert.NoError(t, err)
}

func TestRootCmd_FactoryBuildsSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	installed := settingsService
	settingsService = nil
	var gotDir string
	factory = &Factory{Settings: func(dir string) (SettingsManager, error) {
		gotDir = dir
		return installed, nil
	}}

	_, err := execute(t, "--config", "/tmp/docqa-test", "settings", "get", "pipeline.top_k")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/docqa-test", gotDir)
	assert.Equal(t, installed, settingsService)
}

func TestRootCmd_FactorySettingsError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	settingsService = nil
	factory = &Factory{Settings: func(string) (SettingsManager, error) {
		return nil, errors.New("bad config")
	}}

	_, err := execute(t, "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

func TestLoadRuntime_AppliesOverridesAndValidates(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	activeRuntime = nil
	require.NoError(t, testSvc.settings.Set("embedding.api_key", "sk-test-embedding"))
	require.NoError(t, testSvc.settings.Set("llm.api_key", "sk-test-llm"))

	var got *domain.AppSettings
	built := &Runtime{Answer: testSvc.answer}
	factory = &Factory{Runtime: func(_ context.Context, s *domain.AppSettings) (*Runtime, error) {
		got = s
		return built, nil
	}}

	rt, err := loadRuntime(rootCmd, func(s *domain.AppSettings) { s.Pipeline.TopK = 11 })

	require.NoError(t, err)
	assert.Same(t, built, rt)
	require.NotNil(t, got)
	assert.Equal(t, 11, got.Pipeline.TopK)

	// Built once.
	again, err := loadRuntime(rootCmd)
	require.NoError(t, err)
	assert.Same(t, built, again)
}

func TestLoadRuntime_InvalidSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	activeRuntime = nil
	called := false
	factory = &Factory{Runtime: func(context.Context, *domain.AppSettings) (*Runtime, error) {
		called = true
		return &Runtime{}, nil
	}}

	_, err := loadRuntime(rootCmd, func(s *domain.AppSettings) { s.Pipeline.TopK = -1 })

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, called)
}

func TestLoadRuntime_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	activeRuntime = nil

	_, err := loadRuntime(rootCmd)

	assert.EqualError(t, err, "pipeline services not configured")
}

func TestCloseRuntime(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	closed := 0
	activeRuntime = &Runtime{Close: func() { closed++ }}

	closeRuntime()
	closeRuntime()

	assert.Equal(t, 1, closed)
	assert.Nil(t, activeRuntime)
}
