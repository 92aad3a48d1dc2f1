// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rune-dev/rune/internal/provider"
	"github.com/rune-dev/rune/internal/record"
)

// synthesisPrompt is the system prompt for answer synthesis. The
// certainty rules are the contract: a record's certainty must be
// respected and never upgraded.
const synthesisPrompt = `You are an AI assistant that answers questions based on organizational decision records.

Your task is to synthesize an answer from the records below. Follow these rules strictly:

1. ONLY use information from the provided records. Do NOT make up information.
2. Respect the certainty level of each record:
   - "supported": you can state this confidently
   - "partially_supported": qualify with "likely" or "based on available evidence"
   - "unknown": state that the evidence is uncertain
3. Always cite records by their id in brackets like [dec_2026-01-01_decision_ab12cd34].
4. If no relevant information is found, say "No relevant records found in organizational memory."
5. Be concise but complete.`

// NoRecordsAnswer is returned when the search surfaces nothing.
const NoRecordsAnswer = "No relevant records found in organizational memory."

var citationRe = regexp.MustCompile(`\[(dec_[0-9]{4}-[0-9]{2}-[0-9]{2}_[a-z]+_[0-9a-f]+)\]`)

// Synthesizer produces the cited natural-language answer. Without a
// model it degrades to a deterministic title listing.
type Synthesizer struct {
	client provider.Client
}

// NewSynthesizer wraps the given client; nil forces the fallback path.
func NewSynthesizer(client provider.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize builds the answer and follow-up suggestions for the query.
func (s *Synthesizer) Synthesize(ctx context.Context, query, intent string, records []ScoredRecord) (string, []string) {
	if len(records) == 0 {
		return NoRecordsAnswer, nil
	}

	related := suggestFollowups(records)

	if s.client == nil || !s.client.Available() {
		return fallbackAnswer(records), related
	}

	answer, err := s.synthesizeLLM(ctx, query, intent, records)
	if err != nil {
		slog.Warn("synthesis failed, using fallback answer", "error", err)
		return fallbackAnswer(records), related
	}

	return answer, related
}

func (s *Synthesizer) synthesizeLLM(ctx context.Context, query, intent string, records []ScoredRecord) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User question: %s\nQuery intent: %s\n\nDecision records:\n", query, intent)
	for i, sr := range records {
		rec := sr.Record
		fmt.Fprintf(&sb, "---\nRecord %d: [%s]\nTitle: %s\nKind: %s\nCertainty: %s\nSimilarity: %.2f\n\n%s\n",
			i+1, rec.ID, rec.Title, rec.Kind, rec.Certainty, sr.Similarity, truncate(rec.Body, 1000))
	}
	sb.WriteString("---\n\nYour answer:")

	answer, err := s.client.Generate(ctx, provider.GenerateRequest{
		Prompt:    sb.String(),
		System:    synthesisPrompt,
		MaxTokens: 1024,
	})
	if err != nil {
		return "", err
	}

	return stripUnknownCitations(answer, records), nil
}

// stripUnknownCitations removes any cited record id that was not in the
// synthesizer's input set. Hallucinated citations must never reach the
// client.
func stripUnknownCitations(answer string, records []ScoredRecord) string {
	known := make(map[string]bool, len(records))
	for _, sr := range records {
		known[sr.Record.ID] = true
	}

	return citationRe.ReplaceAllStringFunc(answer, func(match string) string {
		id := citationRe.FindStringSubmatch(match)[1]
		if known[id] {
			return match
		}
		return ""
	})
}

// fallbackAnswer is the deterministic degradation: concatenated titles.
func fallbackAnswer(records []ScoredRecord) string {
	titles := make([]string, 0, len(records))
	for _, sr := range records {
		title := sr.Record.Title
		if sr.Record.Certainty != record.CertaintySupported {
			title += fmt.Sprintf(" (%s)", sr.Record.Certainty)
		}
		titles = append(titles, fmt.Sprintf("Found: %s [%s]", title, sr.Record.ID))
	}
	return strings.Join(titles, "\n")
}

func suggestFollowups(records []ScoredRecord) []string {
	var out []string
	for _, sr := range records {
		if len(out) >= 2 {
			break
		}
		if sr.Record.Title != "" {
			out = append(out, fmt.Sprintf("Why did we decide on %s?", truncate(sr.Record.Title, 60)))
		}
	}
	out = append(out, "What were the alternatives considered?")
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
