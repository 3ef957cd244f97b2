// Package cli implements the docqa command-line interface with cobra.
// Commands reach the core through driving ports; the composition root in
// cmd/docqa installs a Factory that builds them once flags are parsed.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/api"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	configDir string
	envFile   string
	verbose   bool
	logLevel  string
	logJSON   bool
)

// SettingsManager is the settings surface the commands use.
type SettingsManager interface {
	driving.SettingsService

	// GetValue returns the effective value of one key as a string.
	GetValue(key string) (string, error)

	// Check probes the configured providers and vector index.
	Check(ctx context.Context) error
}

// RequestMetrics records HTTP requests and serves the collected metrics.
type RequestMetrics interface {
	api.RequestObserver
	Handler() http.Handler
}

// PromptWatcher hot-reloads prompt templates until ctx is done.
type PromptWatcher interface {
	Watch(ctx context.Context) error
}

// Runtime holds the services built for commands that run the pipeline.
type Runtime struct {
	Answer    driving.AnswerService
	Sessions  driving.SessionService
	Retrieval driving.RetrievalService
	Metrics   RequestMetrics
	Prompts   PromptWatcher

	// Close releases client handles. May be nil.
	Close func()
}

// Factory builds services from the parsed global flags.
type Factory struct {
	// Settings opens the settings store in configDir (empty = default location).
	Settings func(configDir string) (SettingsManager, error)

	// Runtime builds the pipeline from resolved settings.
	Runtime func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)
}

var (
	factory         *Factory
	settingsService SettingsManager
	activeRuntime   *Runtime
)

// SetFactory installs the service factory used by Execute.
func SetFactory(f *Factory) {
	factory = f
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Answer questions about documents",
	Long: `docqa answers natural-language questions about a document.

It fetches the document, splits it into clause-level chunks, embeds and
indexes them, then answers each question from the most relevant chunks.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config", "", "config directory (default ~/.docqa)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment if present")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&logJSON, "log-json", false, "log as JSON lines")
}

// Execute runs the root command and releases any runtime it built.
func Execute(ctx context.Context) error {
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	if err := logger.Configure(logger.Config{Level: logLevel, JSON: logJSON}); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if settingsService == nil && factory != nil && factory.Settings != nil {
		s, err := factory.Settings(configDir)
		if err != nil {
			return fmt.Errorf("opening settings: %w", err)
		}
		settingsService = s
	}
	return nil
}

// requireSettings returns the settings service or an error if none is configured.
func requireSettings() (SettingsManager, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService, nil
}

// loadRuntime builds the pipeline on first use. Overrides adjust the resolved
// settings before anything is constructed.
func loadRuntime(cmd *cobra.Command, overrides ...func(*domain.AppSettings)) (*Runtime, error) {
	if activeRuntime != nil {
		return activeRuntime, nil
	}
	if factory == nil || factory.Runtime == nil {
		return nil, errors.New("pipeline services not configured")
	}

	settings, err := requireSettings()
	if err != nil {
		return nil, err
	}
	resolved, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	for _, o := range overrides {
		o(resolved)
	}
	if err := settings.Validate(resolved); err != nil {
		return nil, err
	}

	rt, err := factory.Runtime(cmd.Context(), resolved)
	if err != nil {
		return nil, err
	}
	activeRuntime = rt
	return rt, nil
}

// allowLocalFiles enables file:// documents. Only commands that read a path
// given by the local user apply it; serve and mcp serve never do.
func allowLocalFiles(s *domain.AppSettings) {
	s.Fetch.AllowFiles = true
}

func closeRuntime() {
	if activeRuntime != nil && activeRuntime.Close != nil {
		activeRuntime.Close()
	}
	activeRuntime = nil
}
