// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rune-dev/rune/internal/config"
	"github.com/rune-dev/rune/internal/vault"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show plugin state, configuration, and Vault reachability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := config.NewStore(configPath(cmd))
			out := cmd.OutOrStdout()

			cfg, err := store.Current()
			if err != nil {
				fmt.Fprintf(out, "config:  %s (unreadable: %v)\n", store.Path(), err)
				fmt.Fprintln(out, "state:   dormant")
				return nil
			}

			fmt.Fprintf(out, "config:  %s\n", store.Path())
			fmt.Fprintf(out, "state:   %s\n", cfg.State)

			provider := cfg.LLM.Provider
			if resolved, err := cfg.ResolveProvider(provider); err == nil {
				provider = resolved
			}
			fmt.Fprintf(out, "llm:     %s (key configured: %v)\n", provider, cfg.APIKeyFor(provider) != "")
			fmt.Fprintf(out, "store:   %s (index %q)\n", cfg.EnVector.Endpoint, cfg.EnVector.Index)

			if cfg.Vault.Endpoint == "" {
				fmt.Fprintln(out, "vault:   not configured")
				return nil
			}

			client, err := vault.New(vault.Config{Endpoint: cfg.Vault.Endpoint, Token: cfg.Vault.Token})
			if err != nil {
				fmt.Fprintf(out, "vault:   %s (error: %v)\n", cfg.Vault.Endpoint, err)
				return nil
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			status, _ := client.Status(ctx)
			if status.Reachable {
				fmt.Fprintf(out, "vault:   %s (reachable, mode %s)\n", cfg.Vault.Endpoint, status.SecurityMode)
			} else {
				fmt.Fprintf(out, "vault:   %s (unreachable)\n", cfg.Vault.Endpoint)
			}

			return nil
		},
	}
}
