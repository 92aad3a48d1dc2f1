// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package server exposes the capture and recall pipelines as MCP tools
// over line-delimited JSON-RPC 2.0 on stdio. Logging goes to stderr
// only; stdout belongs to the transport.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rune-dev/rune/internal/scribe"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

const (
	// Name and Version identify the server in the MCP handshake.
	Name    = "rune"
	Version = "0.3.0"

	// callBudget bounds one tool call end to end.
	callBudget = 60 * time.Second
)

// New builds the MCP server with the four Rune tools registered.
func New(runtime *Runtime) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		Name,
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	s.AddTool(captureTool(), handleCapture(runtime))
	s.AddTool(recallTool(), handleRecall(runtime))
	s.AddTool(vaultStatusTool(), handleVaultStatus(runtime))
	s.AddTool(reloadTool(), handleReload(runtime))

	return s
}

// ServeStdio runs the server on stdin/stdout until the client closes
// the transport.
func ServeStdio(s *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(s); err != nil {
		return runeerr.Wrap(err, runeerr.CodeServerStartFailure, "serving stdio")
	}
	return nil
}

func captureTool() mcp.Tool {
	return mcp.NewTool("capture",
		mcp.WithDescription(
			"Capture a significant organizational decision into encrypted memory. "+
				"Runs the three-tier pipeline: similarity detection, LLM policy filter, "+
				"structured extraction. Only text that passes all tiers is stored.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text containing a potential decision or significant context to capture"),
		),
		mcp.WithString("source",
			mcp.Description("Origin of the text (e.g. 'agent', 'slack', 'github')"),
		),
		mcp.WithString("user",
			mcp.Description("User who authored the text"),
		),
		mcp.WithString("channel",
			mcp.Description("Channel or location where the text originated"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

func recallTool() mcp.Tool {
	return mcp.NewTool("recall",
		mcp.WithDescription(
			"Search organizational memory for past decisions, context, and insights. "+
				"Expands the query, searches encrypted vector memory, and synthesizes a "+
				"cited answer that respects each record's evidence certainty.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question about past decisions or organizational context"),
		),
		mcp.WithNumber("topk",
			mcp.Description("Number of results to consider for synthesis (1-10, default 5)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func vaultStatusTool() mcp.Tool {
	return mcp.NewTool("vault_status",
		mcp.WithDescription("Check Rune-Vault connection status and security mode."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func reloadTool() mcp.Tool {
	return mcp.NewTool("reload_pipelines",
		mcp.WithDescription(
			"Re-read the Rune configuration and reinitialize the capture and recall "+
				"pipelines. Call after activating or reconfiguring the plugin.",
		),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func handleCapture(runtime *Runtime) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pipelines, errResult := gate(runtime)
		if errResult != nil {
			return errResult, nil
		}

		text := req.GetString("text", "")

		callCtx, cancel := context.WithTimeout(ctx, callBudget)
		defer cancel()

		res, err := pipelines.Scribe.Capture(callCtx, scribe.Input{
			Text:    text,
			Source:  req.GetString("source", "agent"),
			User:    req.GetString("user", ""),
			Channel: req.GetString("channel", ""),
		})
		if err != nil {
			return failure(callCtx, "capture", err), nil
		}

		body := map[string]any{
			"ok":       true,
			"captured": res.Captured,
		}
		if res.Reason != "" {
			body["reason"] = res.Reason
		}
		if res.RecordID != "" {
			body["record_id"] = res.RecordID
		}
		return toolResult(body), nil
	}
}

func handleRecall(runtime *Runtime) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pipelines, errResult := gate(runtime)
		if errResult != nil {
			return errResult, nil
		}

		query := req.GetString("query", "")
		topk := intArg(req, "topk", pipelines.DefaultTopK)

		callCtx, cancel := context.WithTimeout(ctx, callBudget)
		defer cancel()

		res, err := pipelines.Retriever.Recall(callCtx, query, topk)
		runtime.NoteVaultResult(err)
		if err != nil {
			return failure(callCtx, "recall", err), nil
		}

		return toolResult(map[string]any{
			"ok":              true,
			"found":           res.Found,
			"answer":          res.Answer,
			"sources":         res.Sources,
			"confidence":      res.Confidence,
			"warnings":        emptyIfNil(res.Warnings),
			"related_queries": emptyIfNil(res.RelatedQueries),
		}), nil
	}
}

func handleVaultStatus(runtime *Runtime) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pipelines := runtime.Snapshot()
		if pipelines == nil || pipelines.Vault == nil {
			return toolResult(map[string]any{
				"ok":            true,
				"reachable":     false,
				"security_mode": "unconfigured",
			}), nil
		}

		callCtx, cancel := context.WithTimeout(ctx, callBudget)
		defer cancel()

		status, err := pipelines.Vault.Status(callCtx)
		if err != nil {
			return failure(callCtx, "vault_status", err), nil
		}

		return toolResult(map[string]any{
			"ok":            true,
			"reachable":     status.Reachable,
			"security_mode": status.SecurityMode,
		}), nil
	}
}

func handleReload(runtime *Runtime) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, callBudget)
		defer cancel()

		if err := runtime.Reload(callCtx); err != nil {
			return failure(callCtx, "reload_pipelines", err), nil
		}
		return toolResult(map[string]any{"ok": true}), nil
	}
}

// gate enforces the dormant state: capture and recall return immediately
// without touching adapters or models.
func gate(runtime *Runtime) (*Pipelines, *mcp.CallToolResult) {
	if !runtime.Active() {
		return nil, toolResult(map[string]any{"ok": false, "error": "dormant"})
	}
	return runtime.Snapshot(), nil
}

// failure renders an error as a JSON-RPC result (never a transport
// error). Unclassified errors get a correlation id that links the
// response to a stderr log line.
func failure(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	tag := runeerr.ClientTag(err)
	if ctx.Err() == context.DeadlineExceeded {
		tag = "timeout"
	}

	body := map[string]any{"ok": false, "error": tag}

	if tag == "internal" {
		id := uuid.NewString()
		body["detail"] = "internal error, see server log " + id
		slog.Error("tool call failed", "tool", tool, "correlation_id", id, "error", err)
	} else {
		body["detail"] = err.Error()
		slog.Warn("tool call failed", "tool", tool, "error", tag)
	}

	return toolResult(body)
}

// toolResult marshals the tool's structured response into the single
// text content MCP expects.
func toolResult(body map[string]any) *mcp.CallToolResult {
	data, err := json.Marshal(body)
	if err != nil {
		return mcp.NewToolResultText(`{"ok":false,"error":"internal"}`)
	}
	return mcp.NewToolResultText(string(data))
}

// intArg extracts an integer argument, returning defaultVal when the key
// is absent (JSON numbers arrive as float64). An explicit value is
// passed through untouched so range validation can reject it.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
