// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package openai

import (
	"context"
	"log/slog"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rune-dev/rune/internal/provider"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Client implements provider.Client using the OpenAI Chat Completions API.
type Client struct {
	client openaisdk.Client
	model  string
}

// New creates an OpenAI client. A missing API key yields an unavailable
// client rather than an error.
func New(cfg provider.Config) (provider.Client, error) {
	if cfg.APIKey == "" {
		slog.Info("openai API key not provided, llm client unavailable")
		return provider.Unavailable{Provider: "openai"}, nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openaisdk.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (c *Client) Name() string    { return "openai" }
func (c *Client) Available() bool { return true }

// Generate sends a single-turn chat completion and returns the message
// content.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	req.Normalize()

	callCtx, cancel := provider.CallContext(ctx, req)
	defer cancel()

	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.System))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.model),
		Messages:            msgs,
		MaxCompletionTokens: param.NewOpt(int64(req.MaxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*req.Temperature))
	}

	resp, err := c.client.Chat.Completions.New(callCtx, params,
		option.WithRequestTimeout(req.Timeout))
	if err != nil {
		return "", runeerr.Wrapf(err, runeerr.CodeProviderUpstreamFailure, "openai: chat.completions.create")
	}

	if len(resp.Choices) == 0 {
		return "", runeerr.New(runeerr.CodeProviderResponseInvalid, "openai: no choices in response",
			runeerr.FieldProvider("openai"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", runeerr.New(runeerr.CodeProviderResponseInvalid, "openai: empty response",
			runeerr.FieldProvider("openai"))
	}

	return text, nil
}
