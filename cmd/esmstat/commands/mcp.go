package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/config"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/mcp"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - esmstat_count: count ESM and CommonJS imports in a dataset file
  - esmstat_classify: classify a single import record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs are always JSON on stderr.
			cfg.Logging.Format = config.LogFormatJSON

			providers, err := initObservability(cmd, cfg, observability.ModeMCP, false)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			importMetrics, err := observability.NewImportMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:        providers.Logger,
				Metrics:       red,
				ImportMetrics: importMetrics,
				Tracer:        providers.Tracer,
				Workers:       cfg.Workers,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&configPath, flagConfig, "", "Config file path (default: .esmstat.yaml)")

	return cmd
}
