// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/rune-dev/rune/internal/config"
	"github.com/rune-dev/rune/internal/embedding"
	"github.com/rune-dev/rune/internal/envector"
	"github.com/rune-dev/rune/internal/provider"
	anthropicprov "github.com/rune-dev/rune/internal/provider/anthropic"
	googleprov "github.com/rune-dev/rune/internal/provider/google"
	openaiprov "github.com/rune-dev/rune/internal/provider/openai"
	"github.com/rune-dev/rune/internal/retriever"
	"github.com/rune-dev/rune/internal/scribe"
	"github.com/rune-dev/rune/internal/secrets"
	"github.com/rune-dev/rune/internal/server"
	"github.com/rune-dev/rune/internal/vault"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

func init() {
	provider.RegisterFactory(config.ProviderAnthropic, anthropicprov.New)
	provider.RegisterFactory(config.ProviderOpenAI, openaiprov.New)
	provider.RegisterFactory(config.ProviderGoogle, googleprov.New)
}

// buildPipelines wires one active configuration into a pipeline bundle.
// Everything is constructed before anything is handed to the runtime,
// so a failed build leaves the prior bundle untouched.
func buildPipelines(ctx context.Context, cfg *config.Config) (*server.Pipelines, error) {
	secrets.ResolveConfigSecrets(cfg, secrets.NewKeyringStore())

	// LLM clients. "auto" resolves here; the provider package rejects it.
	primaryName, err := cfg.ResolveProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	primary, err := provider.New(provider.Config{
		Provider: primaryName,
		APIKey:   cfg.APIKeyFor(primaryName),
		Model:    cfg.ModelFor(primaryName),
	})
	if err != nil {
		return nil, err
	}

	tier2Name := cfg.LLM.Tier2Provider
	if tier2Name == "" {
		tier2Name = cfg.LLM.Provider
	}
	tier2Name, err = cfg.ResolveProvider(tier2Name)
	if err != nil {
		return nil, err
	}
	tier2, err := provider.New(provider.Config{
		Provider: tier2Name,
		APIKey:   cfg.APIKeyFor(tier2Name),
		Model:    cfg.Tier2ModelFor(tier2Name),
	})
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewService(embedding.Config{
		Endpoint:  cfg.Embedding.Endpoint,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, err
	}

	vaultClient, err := vault.New(vault.Config{
		Endpoint: cfg.Vault.Endpoint,
		Token:    cfg.Vault.Token,
	})
	if err != nil {
		return nil, err
	}

	store, err := envector.New(envector.Config{
		Endpoint: cfg.EnVector.Endpoint,
		APIKey:   cfg.EnVector.APIKey,
		Index:    cfg.EnVector.Index,
	}, nil)
	if err != nil {
		vaultClient.Close()
		return nil, err
	}

	// Provision the tenant session from Vault: team index, key id, and
	// the metadata DEK. Failure here is non-fatal — recall and status
	// still work, and capture surfaces store errors until a reload
	// succeeds with Vault reachable.
	if bundle, err := vaultClient.FetchKeyBundle(ctx); err != nil {
		slog.Warn("vault key bundle unavailable, capture disabled until reload", "error", err)
	} else {
		if bundle.IndexName != "" {
			store.SetIndex(bundle.IndexName)
		}
		if len(bundle.MetadataDEK) > 0 {
			sealer, err := envector.NewSealer(bundle.MetadataDEK)
			if err != nil {
				store.Close()
				vaultClient.Close()
				return nil, err
			}
			store.SetSealer(sealer)
		}
	}

	if store.Index() == "" {
		store.Close()
		vaultClient.Close()
		return nil, runeerr.New(runeerr.CodeStoreIndexFailure,
			"no index configured and vault did not provision one")
	}

	if err := store.EnsureIndex(ctx, cfg.Embedding.Dimension); err != nil {
		slog.Warn("ensure index failed, store operations may fail", "error", err)
	}

	// Capture pipeline.
	cache := scribe.NewExemplarCache(cfg.Scribe.CacheSize)

	var tier2Client provider.Client
	if cfg.Scribe.Tier2Enabled {
		tier2Client = tier2
	}

	capture := scribe.New(
		embedder,
		cache,
		scribe.NewPolicyFilter(tier2Client),
		scribe.NewExtractor(primary),
		store,
		scribe.Thresholds{
			Duplicate:   cfg.Scribe.DuplicateThreshold,
			Similarity:  cfg.Scribe.SimilarityThreshold,
			AutoCapture: cfg.Scribe.AutoCaptureThreshold,
		},
	)
	capture.Seed(ctx)

	// Recall pipeline.
	recall := retriever.New(
		retriever.NewProcessor(primary),
		retriever.NewSearcher(embedder, store, vaultClient),
		retriever.NewSynthesizer(primary),
		cfg.Retriever.ConfidenceThreshold,
	)

	return &server.Pipelines{
		Scribe:      capture,
		Retriever:   recall,
		Vault:       vaultClient,
		DefaultTopK: cfg.Retriever.TopK,
		Close: func() {
			store.Close()
			vaultClient.Close()
		},
	}, nil
}
