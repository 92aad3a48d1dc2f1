// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package anthropic

import (
	"context"
	"log/slog"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rune-dev/rune/internal/provider"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Client implements provider.Client using the Anthropic Messages API.
type Client struct {
	client anthropicsdk.Client
	model  string
}

// New creates an Anthropic client. A missing API key yields an
// unavailable client rather than an error so callers can check
// Available() and degrade.
func New(cfg provider.Config) (provider.Client, error) {
	if cfg.APIKey == "" {
		slog.Info("anthropic API key not provided, llm client unavailable")
		return provider.Unavailable{Provider: "anthropic"}, nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: anthropicsdk.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (c *Client) Name() string    { return "anthropic" }
func (c *Client) Available() bool { return true }

// Generate sends a single user message and returns the concatenated text
// blocks of the response.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	req.Normalize()

	callCtx, cancel := provider.CallContext(ctx, req)
	defer cancel()

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropicsdk.Float(float64(*req.Temperature))
	}

	resp, err := c.client.Messages.New(callCtx, params,
		option.WithRequestTimeout(req.Timeout))
	if err != nil {
		return "", runeerr.Wrapf(err, runeerr.CodeProviderUpstreamFailure, "anthropic: messages.create")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", runeerr.New(runeerr.CodeProviderResponseInvalid, "anthropic: empty response",
			runeerr.FieldProvider("anthropic"))
	}

	return text, nil
}
