// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package main

import (
	"errors"
	"fmt"

	"github.com/rune-dev/rune/internal/config"
	"github.com/spf13/cobra"
)

func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Set the plugin state to active",
		Long: "Validates that Vault, enVector, and at least one LLM provider are\n" +
			"configured, then persists state=active. A running server picks the\n" +
			"change up via the reload_pipelines tool.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath(cmd)
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if cfg.IsActive() {
				fmt.Fprintln(cmd.OutOrStdout(), "already active")
				return nil
			}

			cfg.State = config.StateActive
			if errs := cfg.Validate(); len(errs) > 0 {
				cfg.State = config.StateDormant
				return fmt.Errorf("cannot activate: %w", errors.Join(errs...))
			}

			if err := cfg.Save(path); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "state set to active — call reload_pipelines on a running server")
			return nil
		},
	}
}

func newDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Set the plugin state to dormant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := config.NewStore(configPath(cmd))
			if err := store.Demote("explicit deactivate"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "state set to dormant")
			return nil
		},
	}
}
