// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rune-dev/rune/internal/provider"
)

// maxQueries caps the expansion fan-out per recall.
const maxQueries = 4

// IntentGeneric is the fallback intent when no model is available or the
// model output is unusable.
const IntentGeneric = "generic"

// knownIntents is the closed intent taxonomy the model chooses from.
var knownIntents = map[string]bool{
	"decision_rationale": true,
	"pattern_lookup":     true,
	"technical_context":  true,
	"historical_context": true,
	"attribution":        true,
	IntentGeneric:        true,
}

// Plan is the processed form of a recall question: intent, extracted
// entities, and the queries to search.
type Plan struct {
	Intent   string
	Entities []string
	Queries  []string
}

// queryPrompt asks the model for the full plan in one call. Queries come
// back in English regardless of the input language so they match the
// stored records.
const queryPrompt = `Analyze this user question about organizational memory and produce a search plan.
The question may be in any language; all output values must be in English.

Respond with a valid JSON object:
{
  "intent": one of ["decision_rationale", "pattern_lookup", "technical_context", "historical_context", "attribution", "generic"],
  "entities": ["named", "entities", "mentioned"],
  "queries": ["up to 4 short search queries covering different phrasings of the question"]
}

Question: %s

JSON:`

// Processor expands a user question into a query plan, with a
// deterministic fallback when no model is configured.
type Processor struct {
	client provider.Client
}

// NewProcessor wraps the given client; nil forces the fallback path.
func NewProcessor(client provider.Client) *Processor {
	return &Processor{client: client}
}

// Process builds the plan for one question.
func (p *Processor) Process(ctx context.Context, query string) Plan {
	if p.client == nil || !p.client.Available() {
		return fallbackPlan(query)
	}

	raw, err := p.client.Generate(ctx, provider.GenerateRequest{
		Prompt:    fmt.Sprintf(queryPrompt, query),
		MaxTokens: 256,
	})
	if err != nil {
		slog.Warn("query expansion failed, using fallback plan", "error", err)
		return fallbackPlan(query)
	}

	obj := provider.ParseJSON(raw)
	if len(obj) == 0 {
		return fallbackPlan(query)
	}

	plan := Plan{
		Intent:   provider.JSONString(obj, "intent"),
		Entities: provider.JSONStrings(obj, "entities"),
		Queries:  provider.JSONStrings(obj, "queries"),
	}

	if !knownIntents[plan.Intent] {
		plan.Intent = IntentGeneric
	}

	// The original question is always searched; model output only adds
	// phrasings.
	plan.Queries = dedupe(append([]string{query}, plan.Queries...))
	if len(plan.Queries) > maxQueries {
		plan.Queries = plan.Queries[:maxQueries]
	}

	return plan
}

func fallbackPlan(query string) Plan {
	return Plan{
		Intent:   IntentGeneric,
		Entities: []string{},
		Queries:  []string{query},
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
