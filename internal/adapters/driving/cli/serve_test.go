package cli

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type stubMetrics struct {
	observed int
}

func (s *stubMetrics) ObserveRequest(string, int, time.Duration) { s.observed++ }
func (s *stubMetrics) Handler() http.Handler                      { return http.NotFoundHandler() }

func TestServeCmd_Flags(t *testing.T) {
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	insecure := serveCmd.Flags().Lookup("insecure")
	require.NotNil(t, insecure)
	assert.Equal(t, "false", insecure.DefValue)
}

func TestServeCmd_RequiresBearerToken(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bearer token configured")
}

func TestServeCmd_StopsWhenContextCancelled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, testSvc.settings.Set("server.bearer_token", "tok-123456789"))
	activeRuntime.Metrics = &stubMetrics{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve", "--addr", "127.0.0.1:0"})
	defer rootCmd.SetArgs(nil)

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeCmd_InsecureStartsWithoutToken(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve", "--insecure", "--addr", "127.0.0.1:0"})
	defer rootCmd.SetArgs(nil)

	assert.NoError(t, rootCmd.ExecuteContext(ctx))
}

func TestServeCmd_UsesContextOfLatestExecution(t *testing.T) {
	cleanup := setupTestServices()
	// Leaves serveCmd with the background context of this execution.
	_, err := execute(t, "serve")
	require.Error(t, err)
	cleanup()

	cleanup = setupTestServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve", "--insecure", "--addr", "127.0.0.1:0"})
	defer rootCmd.SetArgs(nil)

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve ran with a stale context")
	}
}

func TestServeCmd_KeepsLocalFilesDisabled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	activeRuntime = nil
	require.NoError(t, testSvc.settings.Set("embedding.api_key", "sk-test-embedding"))
	require.NoError(t, testSvc.settings.Set("llm.api_key", "sk-test-llm"))

	var got *domain.AppSettings
	factory = &Factory{Runtime: func(_ context.Context, s *domain.AppSettings) (*Runtime, error) {
		got = s
		return &Runtime{Answer: testSvc.answer}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve", "--insecure", "--addr", "127.0.0.1:0"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.ExecuteContext(ctx))
	require.NotNil(t, got)
	assert.False(t, got.Fetch.AllowFiles)
}
