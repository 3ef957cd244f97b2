package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// maxChunkInput caps how much is read for a local preview.
const maxChunkInput = 50 << 20

var (
	chunkMinLength int
	chunkStrategy  string
	chunkPattern   string
	chunkJSON      bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file|->",
	Short: "Preview how a document is chunked",
	Long: `Extracts text from a local file (or stdin with "-") and prints the chunks
that would be indexed. No external services are called.

Strategies: default, line, inline, regex (requires --pattern).`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkMinLength, "min-length", -1, "minimum chunk length (default from pipeline.min_chunk_length)")
	chunkCmd.Flags().StringVar(&chunkStrategy, "strategy", "", "boundary strategy (default from pipeline.chunk_strategy)")
	chunkCmd.Flags().StringVar(&chunkPattern, "pattern", "", "boundary pattern for the regex strategy")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output chunks as JSON")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	raw, err := readLocalDocument(cmd, args[0])
	if err != nil {
		return err
	}

	text, err := normalisers.NewDefaultRegistry().Extract(cmd.Context(), raw)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	pipeline := chunkSettings()
	if chunkMinLength >= 0 {
		pipeline.MinChunkLength = chunkMinLength
	}
	if chunkStrategy != "" {
		pipeline.ChunkStrategy = chunkStrategy
	}
	if chunkPattern != "" {
		pipeline.ChunkPattern = chunkPattern
	}

	chunker, err := postprocessors.BuildChunker(pipeline.ChunkStrategy, pipeline.ChunkPattern, pipeline.MinChunkLength)
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}

	chunks := chunker.Chunk(text)
	if chunkJSON {
		return outputChunksJSON(cmd, chunks)
	}

	for _, c := range chunks {
		cmd.Printf("[%s] (%d chars)\n%s\n\n", c.ID, len([]rune(c.Text)), c.Text)
	}
	cmd.Printf("%d chunks (%s, min length %d)\n", len(chunks), chunker.Name(), chunker.MinLength())
	return nil
}

// chunkSettings returns the configured pipeline settings, or the defaults
// when no settings service is available.
func chunkSettings() domain.PipelineSettings {
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			return s.Pipeline
		}
	}
	return domain.DefaultAppSettings().Pipeline
}

func readLocalDocument(cmd *cobra.Command, path string) (*domain.RawDocument, error) {
	var (
		r   io.Reader
		uri string
	)
	if path == "-" {
		r = cmd.InOrStdin()
		uri = "stdin"
	} else {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
		uri = path
	}

	data, err := io.ReadAll(io.LimitReader(r, maxChunkInput+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}
	if len(data) > maxChunkInput {
		return nil, fmt.Errorf("%s exceeds %d bytes", uri, maxChunkInput)
	}
	return &domain.RawDocument{URI: uri, Content: data}, nil
}

type chunkJSONOut struct {
	ID       string          `json:"id"`
	Sequence int             `json:"sequence"`
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

func outputChunksJSON(cmd *cobra.Command, chunks []domain.Chunk) error {
	out := make([]chunkJSONOut, len(chunks))
	for i, c := range chunks {
		out[i] = chunkJSONOut{ID: c.ID, Sequence: c.SequenceIndex, Text: c.Text, Metadata: c.Metadata}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
