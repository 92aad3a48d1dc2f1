// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/rune-dev/rune/internal/config"
	"github.com/rune-dev/rune/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: "Serves the capture, recall, vault_status, and reload_pipelines tools\n" +
			"over line-delimited JSON-RPC on stdin/stdout. Diagnostics go to stderr.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := config.NewStore(configPath(cmd))
			config.EnforcePermissions(store.Path())

			if err := os.MkdirAll(config.LogsDir(), 0o700); err != nil {
				slog.Warn("could not create logs directory", "path", config.LogsDir(), "error", err)
			}

			runtime := server.NewRuntime(store, buildPipelines)

			// A failed initial build is not fatal: the server starts
			// dormant and reload_pipelines can recover it.
			if err := runtime.Reload(context.Background()); err != nil {
				slog.Warn("initial pipeline build failed, serving dormant", "error", err)
			}

			slog.Info("rune mcp server starting", "version", server.Version, "active", runtime.Active())
			return server.ServeStdio(server.New(runtime))
		},
	}
}
