// Command docqa answers questions about documents from the command line,
// over HTTP and over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/fetch"
	"github.com/custodia-labs/docqa/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.SetFactory(&cli.Factory{
		Settings: openSettings,
		Runtime:  buildRuntime,
	})

	if err := cli.Execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func openSettings(configDir string) (cli.SettingsManager, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

func buildRuntime(ctx context.Context, settings *domain.AppSettings) (*cli.Runtime, error) {
	chunker, err := postprocessors.BuildChunker(
		settings.Pipeline.ChunkStrategy,
		settings.Pipeline.ChunkPattern,
		settings.Pipeline.MinChunkLength,
	)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	aiServices, err := ai.Initialise(ctx, settings, ai.Options{})
	if err != nil {
		return nil, err
	}

	recorder := prometheus.NewRecorder()
	cfg := services.PipelineConfigFromSettings(settings)

	pipeline, err := services.NewPipelineService(services.PipelineDeps{
		Source: fetch.New(fetch.Config{
			Timeout:    settings.Fetch.Timeout,
			MaxBytes:   settings.Fetch.MaxBytes,
			AllowFiles: settings.Fetch.AllowFiles,
		}),
		Extractor: normalisers.NewDefaultRegistry(),
		Chunker:   chunker,
		Embedder:  aiServices.EmbeddingService,
		Index:     aiServices.VectorIndex,
		LLM:       aiServices.LLMService,
		Prompts:   aiServices.PromptStore,
		Metrics:   recorder,
	}, cfg)
	if err != nil {
		aiServices.Close()
		return nil, err
	}

	rt := &cli.Runtime{
		Answer:    pipeline,
		Sessions:  pipeline,
		Retrieval: services.NewRetriever(aiServices.EmbeddingService, aiServices.VectorIndex, services.WithRetrieverRetry(cfg.Retry)),
		Metrics:   recorder,
		Close:     aiServices.Close,
	}
	if watcher, ok := aiServices.PromptStore.(cli.PromptWatcher); ok {
		rt.Prompts = watcher
	}
	return rt, nil
}
