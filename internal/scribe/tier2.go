// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package scribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rune-dev/rune/internal/provider"
)

// filterPolicy is the Tier-2 system prompt. The model judges whether a
// Tier-1 candidate is truly worth recording as organizational memory.
const filterPolicy = `You judge whether a workplace message contains a significant organizational decision, learning, or policy that should be permanently recorded.

CAPTURE if the message contains:
- A concrete decision with reasoning (technology choice, architecture, process change)
- A policy or standard being established or changed
- A trade-off analysis or rejection of an alternative
- A lesson learned from an incident or failure
- A commitment or agreement that affects the team

DO NOT CAPTURE:
- Casual conversation, greetings, or social chat
- Questions without answers or decisions
- Status updates without decisions ("still working on X")
- Vague opinions without commitment ("maybe we should...")
- Operational messages (deployments, alerts) without decisions

Respond with JSON only: {"capture": true/false, "reason": "one sentence", "domain": "architecture|security|product|ops|design|data|general"}`

// PolicyVerdict is the Tier-2 outcome.
type PolicyVerdict struct {
	Capture bool
	Reason  string
	Domain  string
}

// PolicyFilter is the Tier-2 LLM classifier. Every failure mode passes
// the candidate through: a transient model glitch must never silently
// drop a decision.
type PolicyFilter struct {
	client provider.Client
}

// NewPolicyFilter wraps the given client; nil disables the filter.
func NewPolicyFilter(client provider.Client) *PolicyFilter {
	return &PolicyFilter{client: client}
}

// Available reports whether the filter can actually consult a model.
func (f *PolicyFilter) Available() bool {
	return f != nil && f.client != nil && f.client.Available()
}

// Evaluate judges the candidate text. The Tier-1 score and matched
// trigger travel along as context for the model.
func (f *PolicyFilter) Evaluate(ctx context.Context, text string, tier1Score float64, trigger string) PolicyVerdict {
	if !f.Available() {
		return PolicyVerdict{Capture: true, Reason: "policy filter unavailable"}
	}

	excerpt := text
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}

	prompt := fmt.Sprintf("Message: %s\n(Tier 1 similarity: %.2f)", excerpt, tier1Score)
	if trigger != "" {
		prompt += fmt.Sprintf("\n(Matched trigger phrase: %q)", trigger)
	}

	raw, err := f.client.Generate(ctx, provider.GenerateRequest{
		Prompt:    prompt,
		System:    filterPolicy,
		MaxTokens: 100,
	})
	if err != nil {
		slog.Warn("tier2 policy filter failed, passing candidate through", "error", err)
		return PolicyVerdict{Capture: true, Reason: "policy filter error"}
	}

	obj := provider.ParseJSON(raw)
	if len(obj) == 0 {
		slog.Warn("tier2 policy filter returned unparseable output, passing candidate through")
		return PolicyVerdict{Capture: true, Reason: "policy filter output unparseable"}
	}

	return PolicyVerdict{
		Capture: provider.JSONBool(obj, "capture", true),
		Reason:  provider.JSONString(obj, "reason"),
		Domain:  provider.JSONString(obj, "domain"),
	}
}
