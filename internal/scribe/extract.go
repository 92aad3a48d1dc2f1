// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package scribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rune-dev/rune/internal/provider"
	"github.com/rune-dev/rune/internal/record"
)

// extractionPrompt asks the model for the structured decision record.
// Input may be in any language; output values are English.
const extractionPrompt = `You are a structured information extractor for organizational decision records.

Given a message (which may be in any language), extract the following fields.
IMPORTANT: All output values MUST be in English (translate if needed).

Respond with a valid JSON object with these keys:
- "kind": one of "decision", "rationale", "policy", "lesson", "insight"
- "title": a short title for the record (5-120 chars, in English)
- "body": the full extracted context, including the reasoning (in English)
- "participants": list of actors or roles involved (empty list if none)
- "certainty": "supported" if the message itself states the reasoning, "partially_supported" if reasoning is implied, "unknown" otherwise
- "tags": list of relevant topic tags (e.g. ["database", "migration"])

Rules:
- Never invent reasoning that is not present in the message
- certainty cannot be "supported" unless the message states the rationale
- Keep the title concise and descriptive

Message to extract from:
%s

JSON:`

// Extractor is the Tier-3 structured extraction stage. It always yields
// a record: complete failure degrades to the minimal record.
type Extractor struct {
	client provider.Client
}

// NewExtractor wraps the given client; nil means minimal records only.
func NewExtractor(client provider.Client) *Extractor {
	return &Extractor{client: client}
}

// Available reports whether structured extraction can run.
func (e *Extractor) Available() bool {
	return e != nil && e.client != nil && e.client.Available()
}

// ExtractionHints carry conversational context into the record.
type ExtractionHints struct {
	Source  string
	User    string
	Channel string
	Domain  string
}

// Extract builds a decision record from the raw utterance.
func (e *Extractor) Extract(ctx context.Context, text string, hints ExtractionHints) record.Record {
	rec := e.extractStructured(ctx, text)
	applyHints(&rec, hints)
	rec.Clamp()
	return rec
}

func (e *Extractor) extractStructured(ctx context.Context, text string) record.Record {
	if !e.Available() {
		return record.Minimal(text)
	}

	raw, err := e.client.Generate(ctx, provider.GenerateRequest{
		Prompt:    fmt.Sprintf(extractionPrompt, text),
		MaxTokens: 768,
	})
	if err != nil {
		slog.Warn("tier3 extraction failed, storing minimal record", "error", err)
		return record.Minimal(text)
	}

	obj := provider.ParseJSON(raw)
	title := provider.JSONString(obj, "title")
	if len(obj) == 0 || title == "" {
		slog.Warn("tier3 extraction returned unparseable output, storing minimal record")
		return record.Minimal(text)
	}

	kind := record.Kind(provider.JSONString(obj, "kind"))
	if !record.ValidKind(kind) {
		kind = record.KindInsight
	}

	certainty := record.Certainty(provider.JSONString(obj, "certainty"))
	if !record.ValidCertainty(certainty) {
		certainty = record.CertaintyUnknown
	}

	body := provider.JSONString(obj, "body")
	if body == "" {
		body = text
	}

	rec := record.New(kind, title, body, certainty)
	rec.Participants = provider.JSONStrings(obj, "participants")
	rec.Tags = provider.JSONStrings(obj, "tags")
	return rec
}

func applyHints(rec *record.Record, hints ExtractionHints) {
	if hints.User != "" {
		rec.Participants = appendUnique(rec.Participants, "user:"+hints.User)
	}
	if hints.Source != "" {
		rec.Sources = appendUnique(rec.Sources, "source:"+hints.Source)
	}
	if hints.Channel != "" {
		rec.Sources = appendUnique(rec.Sources, "channel:"+hints.Channel)
	}
	if hints.Domain != "" && hints.Domain != "general" {
		rec.Tags = appendUnique(rec.Tags, hints.Domain)
	}
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
