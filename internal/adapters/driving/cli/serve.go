package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/api"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	serveAddr     string
	serveInsecure bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API.

Endpoints:
  POST /hackrx/run   {"documents": "<url>", "questions": [...]} -> {"answers": [...]}
  GET  /healthz      liveness probe
  GET  /metrics      Prometheus metrics

Requests to /hackrx/run must carry "Authorization: Bearer <token>" matching
server.bearer_token (or BEARER_TOKEN). Prompt files are reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveInsecure, "insecure", false, "allow starting without a bearer token")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}
	resolved, err := settings.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	if resolved.Server.BearerToken == "" {
		if !serveInsecure {
			return errors.New("no bearer token configured: set BEARER_TOKEN or server.bearer_token, or pass --insecure")
		}
		logger.Warn("authentication disabled: no bearer token configured")
	}

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	cfg := api.Config{
		Addr:          resolved.Server.Addr,
		BearerToken:   resolved.Server.BearerToken,
		FailurePolicy: resolved.Pipeline.FailurePolicy,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	var opts []api.Option
	if rt.Metrics != nil {
		opts = append(opts, api.WithMetrics(rt.Metrics, rt.Metrics.Handler()))
	}

	server, err := api.NewServer(rt.Answer, cfg, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if rt.Prompts != nil {
		go func() {
			if err := rt.Prompts.Watch(ctx); err != nil {
				logger.Warn("prompt watcher stopped: %v", err)
			}
		}()
	}

	cmd.Printf("docqa API listening on %s (failure policy: %s)\n", server.Addr(), orDefault(cfg.FailurePolicy))
	return server.Run(ctx)
}

func orDefault(p domain.FailurePolicy) domain.FailurePolicy {
	if p.IsValid() {
		return p
	}
	return domain.FailFast
}
