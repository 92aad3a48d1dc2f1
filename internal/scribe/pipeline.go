// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package scribe implements the capture pipeline: a three-stage cascade
// that decides whether an utterance is worth remembering, extracts a
// structured record, and inserts an encrypted vector into the store.
package scribe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rune-dev/rune/internal/embedding"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Thresholds hold the Tier-1 cosine boundaries.
type Thresholds struct {
	// Duplicate drops candidates at or above this similarity to any
	// cached exemplar.
	Duplicate float64
	// Similarity drops candidates whose best match falls below it,
	// unless a trigger phrase matches.
	Similarity float64
	// AutoCapture skips Tier 2 when an accepted exemplar matches at or
	// above it.
	AutoCapture float64
}

// DefaultThresholds mirror the documented configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Duplicate: 0.95, Similarity: 0.35, AutoCapture: 0.8}
}

// Inserter is the slice of the enVector adapter the pipeline needs.
type Inserter interface {
	Insert(ctx context.Context, vec []float32, metadata []byte) error
}

// Input is one capture request.
type Input struct {
	Text    string
	Source  string
	User    string
	Channel string
}

// Result is the capture outcome returned to the tool surface.
type Result struct {
	Captured bool
	Reason   string
	RecordID string
}

// Drop reasons surfaced in Result.Reason.
const (
	ReasonEmpty          = "empty"
	ReasonDuplicate      = "duplicate"
	ReasonBelowThreshold = "below_threshold"
	ReasonPolicyRejected = "policy_rejected"
)

// Pipeline is the Scribe capture cascade. Stages run strictly in order:
// Tier 1 similarity, Tier 2 policy, Tier 3 extraction, insert.
type Pipeline struct {
	embedder   embedding.Embedder
	cache      *ExemplarCache
	policy     *PolicyFilter
	extractor  *Extractor
	store      Inserter
	thresholds Thresholds
}

// New assembles a capture pipeline.
func New(embedder embedding.Embedder, cache *ExemplarCache, policy *PolicyFilter, extractor *Extractor, store Inserter, thresholds Thresholds) *Pipeline {
	return &Pipeline{
		embedder:   embedder,
		cache:      cache,
		policy:     policy,
		extractor:  extractor,
		store:      store,
		thresholds: thresholds,
	}
}

// Seed embeds the built-in capture-worthy sentences into the exemplar
// cache so a fresh process can measure candidates against something.
// Seeding is best-effort: the first embedding failure is logged and ends
// seeding, keeping whatever exemplars were added before it.
func (p *Pipeline) Seed(ctx context.Context) {
	for _, text := range SeedExemplars() {
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			slog.Warn("seeding exemplar cache failed", "error", err)
			return
		}
		p.cache.Add(vec, true)
	}
	slog.Debug("exemplar cache seeded", "count", p.cache.Len())
}

// Capture runs the full cascade for one utterance.
func (p *Pipeline) Capture(ctx context.Context, in Input) (Result, error) {
	text := strings.TrimSpace(in.Text)
	if len(text) < 2 {
		return Result{Captured: false, Reason: ReasonEmpty}, nil
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return Result{}, runeerr.Wrapf(err, runeerr.CodeEmbeddingUpstreamFailure, "embedding capture candidate")
	}

	// Tier 1: similarity filter. Never fails.
	sim := p.cache.Scan(vec)
	trigger, triggered := MatchesTrigger(text)

	if sim.Max >= p.thresholds.Duplicate {
		slog.Debug("tier1 drop: duplicate", "similarity", sim.Max)
		return Result{Captured: false, Reason: ReasonDuplicate}, nil
	}

	if sim.Max < p.thresholds.Similarity && !triggered {
		slog.Debug("tier1 drop: below threshold", "similarity", sim.Max)
		p.cache.Add(vec, false)
		return Result{Captured: false, Reason: ReasonBelowThreshold}, nil
	}

	autoCapture := sim.MaxAccepted >= p.thresholds.AutoCapture

	// Tier 2: policy filter. Skipped on a very strong exemplar match;
	// fails open otherwise.
	var domain string
	if !autoCapture {
		verdict := p.policy.Evaluate(ctx, text, sim.Max, trigger)
		if !verdict.Capture {
			slog.Debug("tier2 drop", "reason", verdict.Reason)
			p.cache.Add(vec, false)
			return Result{Captured: false, Reason: ReasonPolicyRejected}, nil
		}
		domain = verdict.Domain
	}

	// Tier 3: structured extraction. Always runs once the pipeline gets
	// here; degrades to a minimal record rather than dropping.
	rec := p.extractor.Extract(ctx, text, ExtractionHints{
		Source:  in.Source,
		User:    in.User,
		Channel: in.Channel,
		Domain:  domain,
	})

	metadata, err := rec.Marshal()
	if err != nil {
		return Result{}, err
	}

	if err := p.store.Insert(ctx, vec, metadata); err != nil {
		return Result{}, runeerr.Wrap(err, runeerr.CodeStoreUnavailable, "inserting capture",
			runeerr.FieldRecordID(rec.ID))
	}

	p.cache.Add(vec, true)

	slog.Info("captured decision record", "record_id", rec.ID, "kind", rec.Kind, "certainty", rec.Certainty)
	return Result{Captured: true, RecordID: rec.ID}, nil
}
