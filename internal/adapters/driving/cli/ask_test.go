package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask <url|file>", askCmd.Use)
}

func TestAskCmd_Flags(t *testing.T) {
	q := askCmd.Flags().Lookup("question")
	require.NotNil(t, q)
	assert.Equal(t, "q", q.Shorthand)

	assert.NotNil(t, askCmd.Flags().Lookup("json"))
	topK := askCmd.Flags().Lookup("top-k")
	require.NotNil(t, topK)
	assert.Equal(t, "0", topK.DefValue)
}

func TestAskCmd_RequiresURL(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "-q", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "https://example.com/policy.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "question")
}

func TestAskCmd_TextOutputPreservesOrder(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "https://example.com/policy.pdf",
		"-q", "What is the grace period?", "-q", "Is dental covered?")

	require.NoError(t, err)
	req := testSvc.answer.last()
	assert.Equal(t, "https://example.com/policy.pdf", req.DocumentURL)
	assert.Equal(t, []string{"What is the grace period?", "Is dental covered?"}, req.Questions)

	first := strings.Index(out, "Q1: What is the grace period?")
	second := strings.Index(out, "Q2: Is dental covered?")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, out, "answer to Is dental covered?")
	assert.Contains(t, out, "Indexed 7 chunks")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testSvc.answer.failAt = 1

	out, err := execute(t, "ask", "https://example.com/p.pdf", "-q", "a", "-q", "b", "--json")

	require.NoError(t, err)
	var got resultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "run-test", got.RunID)
	assert.Equal(t, 7, got.ChunkCount)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, "answer to a", got.Answers[0].Answer)
	assert.Empty(t, got.Answers[0].Error)
	assert.Equal(t, "llm down", got.Answers[1].Error)
}

func TestAskCmd_PerQuestionErrorInText(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testSvc.answer.failAt = 0

	out, err := execute(t, "ask", "https://example.com/p.pdf", "-q", "a")

	require.NoError(t, err)
	assert.Contains(t, out, "error: llm down")
}

func TestAskCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testSvc.answer.err = domain.NewStageError(domain.StateFetching, errors.New("404"))

	_, err := execute(t, "ask", "https://example.com/p.pdf", "-q", "a")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answering failed")
}

func TestAskCmd_LocalPathBecomesFileURL(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o600))

	_, err := execute(t, "ask", path, "-q", "a")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(testSvc.answer.last().DocumentURL, "file://"))
	assert.True(t, strings.HasSuffix(testSvc.answer.last().DocumentURL, "/policy.txt"))
}

func TestAskCmd_EnablesLocalFiles(t *testing.T) {
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

	_, err := execute(t, "ask", "https://example.com/p.pdf", "-q", "a")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Fetch.AllowFiles)
}

func TestResolveDocumentURL(t *testing.T) {
	u, err := resolveDocumentURL("https://example.com/a.pdf?sig=1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.pdf?sig=1", u)

	u, err = resolveDocumentURL("docs/a.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file:///"))
}
