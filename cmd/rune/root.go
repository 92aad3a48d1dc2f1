// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root rune command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rune",
		Short: "Rune — encrypted organizational memory for agents",
		Long: "Rune captures organizational decisions into an encrypted vector store\n" +
			"and recalls them with cited answers, exposed to agents as MCP tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ~/.rune/config.json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newStatusCmd(),
		newActivateCmd(),
		newDeactivateCmd(),
		newVersionCmd(),
	)

	return root
}

// setupLogging sends structured logs to stderr. Stdout belongs to the
// MCP transport and must stay clean.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
