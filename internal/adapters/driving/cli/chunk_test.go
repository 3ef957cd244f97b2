package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policyText = `Policy Terms
1. A grace period of thirty days is provided for premium payment after the due date.
2. Dental treatment is excluded unless it arises from an accident requiring hospitalisation.
3. Short.`

func TestChunkCmd_Use(t *testing.T) {
	assert.Equal(t, "chunk <file|->", chunkCmd.Use)
}

func TestChunkCmd_MinLengthFlag(t *testing.T) {
	flag := chunkCmd.Flags().Lookup("min-length")
	require.NotNil(t, flag)
	assert.Equal(t, "-1", flag.DefValue)
}

func TestChunkCmd_FromStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput(t, policyText, "chunk", "-")

	require.NoError(t, err)
	assert.Contains(t, out, "grace period of thirty days")
	assert.Contains(t, out, "Dental treatment is excluded")
	assert.NotContains(t, out, "3. Short.")
	assert.Contains(t, out, "2 chunks")
}

func TestChunkCmd_MinLengthZeroKeepsShortChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput(t, policyText, "chunk", "-", "--min-length", "0")

	require.NoError(t, err)
	assert.Contains(t, out, "3. Short.")
	assert.Contains(t, out, "min length 0")
}

func TestChunkCmd_FromFileJSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte(policyText), 0o600))

	out, err := execute(t, "chunk", path, "--json")

	require.NoError(t, err)
	var chunks []chunkJSONOut
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0].ID, "section_"))
	assert.Less(t, chunks[0].Sequence, chunks[1].Sequence)
	assert.Contains(t, chunks[1].Text, "Dental")
}

func TestChunkCmd_UsesConfiguredMinLength(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, testSvc.settings.Set("pipeline.min_chunk_length", "0"))

	out, err := executeWithInput(t, policyText, "chunk", "-")

	require.NoError(t, err)
	assert.Contains(t, out, "3. Short.")
}

func TestChunkCmd_RegexWithoutPattern(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeWithInput(t, policyText, "chunk", "-", "--strategy", "regex")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern")
}

func TestChunkCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "chunk", filepath.Join(t.TempDir(), "absent.txt"))

	assert.Error(t, err)
}
