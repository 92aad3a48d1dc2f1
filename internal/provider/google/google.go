// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/rune-dev/rune/internal/provider"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Client implements provider.Client using the Google Gemini API. The
// system prompt attaches at generation-config construction; configs are
// cached keyed by the hash of the system prompt, mirroring how the SDK
// expects system instructions to be bound to a model instance.
type Client struct {
	client *genai.Client
	model  string

	mu      sync.Mutex
	configs map[string]*genai.GenerateContentConfig
}

// New creates a Google client. A missing API key yields an unavailable
// client rather than an error.
func New(cfg provider.Config) (provider.Client, error) {
	if cfg.APIKey == "" {
		slog.Info("google API key not provided, llm client unavailable")
		return provider.Unavailable{Provider: "google"}, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Client{
		client:  client,
		model:   cfg.Model,
		configs: make(map[string]*genai.GenerateContentConfig),
	}, nil
}

func (c *Client) Name() string    { return "google" }
func (c *Client) Available() bool { return true }

// Generate sends the prompt through a cached generation config and
// returns the response text.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	req.Normalize()

	callCtx, cancel := provider.CallContext(ctx, req)
	defer cancel()

	config := c.configFor(req)

	resp, err := c.client.Models.GenerateContent(callCtx, c.model,
		genai.Text(req.Prompt), config)
	if err != nil {
		return "", runeerr.Wrapf(err, runeerr.CodeProviderUpstreamFailure, "google: generate_content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", runeerr.New(runeerr.CodeProviderResponseInvalid, "google: empty response",
			runeerr.FieldProvider("google"))
	}

	return text, nil
}

// configFor returns the generation config for the request's system
// prompt, creating and caching it on first use.
func (c *Client) configFor(req provider.GenerateRequest) *genai.GenerateContentConfig {
	sum := sha256.Sum256([]byte(req.System))
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	config, ok := c.configs[key]
	if !ok {
		config = &genai.GenerateContentConfig{}
		if req.System != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: req.System}},
			}
		}
		c.configs[key] = config
	}

	// Token and temperature bounds are per-call, not part of the cached
	// identity.
	out := *config
	out.MaxOutputTokens = int32(req.MaxTokens)
	if req.Temperature != nil {
		out.Temperature = genai.Ptr(*req.Temperature)
	}
	return &out
}

// CachedConfigs reports how many distinct system prompts have been bound.
func (c *Client) CachedConfigs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.configs)
}
