// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package retriever implements the recall pipeline: multi-query
// expansion, parallel encrypted top-k search with Vault-mediated
// decryption, and synthesis of a cited answer.
package retriever

import (
	"context"

	"github.com/rune-dev/rune/internal/record"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// DefaultTopK applies when the caller does not request a result count.
const DefaultTopK = 5

// MaxTopK is the upper bound on requested results, matching the Vault
// per-call cap.
const MaxTopK = 10

// WarningLowConfidence flags answers whose mean similarity fell below
// the configured threshold. Results are still returned.
const WarningLowConfidence = "low_confidence"

// Source is one cited record in a recall response.
type Source struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Certainty record.Certainty `json:"certainty"`
}

// Result is the recall outcome returned to the tool surface.
type Result struct {
	Found          int
	Answer         string
	Sources        []Source
	Confidence     float64
	Warnings       []string
	RelatedQueries []string
}

// Pipeline is the Retriever recall orchestrator.
type Pipeline struct {
	processor   *Processor
	searcher    *Searcher
	synthesizer *Synthesizer

	confidenceThreshold float64
}

// New assembles a recall pipeline.
func New(processor *Processor, searcher *Searcher, synthesizer *Synthesizer, confidenceThreshold float64) *Pipeline {
	return &Pipeline{
		processor:           processor,
		searcher:            searcher,
		synthesizer:         synthesizer,
		confidenceThreshold: confidenceThreshold,
	}
}

// Recall answers one question. The caller supplies topk explicitly
// (DefaultTopK when the tool argument was omitted); anything outside
// [1,10] is rejected.
func (p *Pipeline) Recall(ctx context.Context, query string, topk int) (Result, error) {
	if query == "" {
		return Result{}, runeerr.New(runeerr.CodePipelineInputEmpty, "recall query is empty")
	}

	if topk < 1 || topk > MaxTopK {
		return Result{}, runeerr.Errorf(runeerr.CodePipelineBadArgument,
			"topk must be between 1 and %d, got %d", MaxTopK, topk)
	}

	plan := p.processor.Process(ctx, query)

	candidates, err := p.searcher.Search(ctx, plan.Queries, topk)
	if err != nil {
		return Result{}, err
	}

	if len(candidates) == 0 {
		return Result{
			Found:   0,
			Answer:  NoRecordsAnswer,
			Sources: []Source{},
		}, nil
	}

	records, err := p.searcher.FetchRecords(ctx, candidates)
	if err != nil {
		return Result{}, err
	}

	var confidence float64
	for _, sr := range records {
		confidence += sr.Similarity
	}
	if len(records) > 0 {
		confidence /= float64(len(records))
	}

	var warnings []string
	if confidence < p.confidenceThreshold {
		warnings = append(warnings, WarningLowConfidence)
	}

	answer, related := p.synthesizer.Synthesize(ctx, query, plan.Intent, records)

	sources := make([]Source, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, sr := range records {
		if seen[sr.Record.ID] {
			continue
		}
		seen[sr.Record.ID] = true
		sources = append(sources, Source{
			ID:        sr.Record.ID,
			Title:     sr.Record.Title,
			Certainty: sr.Record.Certainty,
		})
	}

	return Result{
		Found:          len(sources),
		Answer:         answer,
		Sources:        sources,
		Confidence:     confidence,
		Warnings:       warnings,
		RelatedQueries: related,
	}, nil
}
