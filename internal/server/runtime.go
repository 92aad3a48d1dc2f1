// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rune-dev/rune/internal/config"
	"github.com/rune-dev/rune/internal/retriever"
	"github.com/rune-dev/rune/internal/scribe"
	"github.com/rune-dev/rune/internal/vault"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// policyDemotionWindow is how many consecutive Vault policy denials
// demote the plugin to dormant. The demotion persists to disk.
const policyDemotionWindow = 5

// CapturePipeline is the capture entry point the tool surface calls.
type CapturePipeline interface {
	Capture(ctx context.Context, in scribe.Input) (scribe.Result, error)
}

// RecallPipeline is the recall entry point the tool surface calls.
type RecallPipeline interface {
	Recall(ctx context.Context, query string, topk int) (retriever.Result, error)
}

// VaultStatus is the slice of the Vault client the status tool needs.
type VaultStatus interface {
	Status(ctx context.Context) (vault.Status, error)
}

// Pipelines bundles everything one active configuration wires up.
type Pipelines struct {
	Scribe      CapturePipeline
	Retriever   RecallPipeline
	Vault       VaultStatus
	DefaultTopK int

	// Close tears the bundle's connections down. Optional.
	Close func()
}

// Builder constructs a fresh pipeline bundle from the given config.
// Returning (nil, nil) means the config is dormant and no pipelines run.
type Builder func(ctx context.Context, cfg *config.Config) (*Pipelines, error)

// Runtime holds the active pipelines behind an RWMutex so reload swaps
// them atomically: a request either sees the prior bundle or the new
// one, never a partially built state.
type Runtime struct {
	store   *config.Store
	builder Builder

	mu        sync.RWMutex
	pipelines *Pipelines

	policyMu       sync.Mutex
	policyFailures int
}

// NewRuntime creates a runtime; call Reload to build the first bundle.
func NewRuntime(store *config.Store, builder Builder) *Runtime {
	return &Runtime{store: store, builder: builder}
}

// Reload re-reads the config and rebuilds the pipelines. The new bundle
// is constructed completely before the swap; on any failure the prior
// bundle stays in place.
func (r *Runtime) Reload(ctx context.Context) error {
	cfg, err := r.store.Reload()
	if err != nil {
		return runeerr.Wrap(err, runeerr.CodePipelineReloadFailure, "reloading config")
	}

	var next *Pipelines
	if cfg.IsActive() {
		next, err = r.builder(ctx, cfg)
		if err != nil {
			return runeerr.Wrap(err, runeerr.CodePipelineReloadFailure, "building pipelines")
		}
	}

	r.mu.Lock()
	prev := r.pipelines
	r.pipelines = next
	r.mu.Unlock()

	if prev != nil && prev.Close != nil {
		prev.Close()
	}

	r.resetPolicyFailures()
	slog.Info("pipelines reloaded", "active", next != nil)
	return nil
}

// Snapshot returns the current bundle, or nil when dormant.
func (r *Runtime) Snapshot() *Pipelines {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipelines
}

// Active reports whether the state gate is open and pipelines exist.
func (r *Runtime) Active() bool {
	return r.Snapshot() != nil && r.store.IsActive()
}

// NoteVaultResult tracks categorical Vault policy failures. Every call
// in a window of policyDemotionWindow failing with a policy denial
// demotes the plugin to dormant and persists the change.
func (r *Runtime) NoteVaultResult(err error) {
	if err == nil || !runeerr.IsPolicyDenied(err) {
		r.resetPolicyFailures()
		return
	}

	r.policyMu.Lock()
	r.policyFailures++
	failures := r.policyFailures
	r.policyMu.Unlock()

	if failures < policyDemotionWindow {
		return
	}

	slog.Error("vault denied every call in the demotion window, deactivating",
		"window", policyDemotionWindow)

	if demoteErr := r.store.Demote("categorical vault policy denial"); demoteErr != nil {
		slog.Error("failed to persist demotion", "error", demoteErr)
	}

	r.mu.Lock()
	prev := r.pipelines
	r.pipelines = nil
	r.mu.Unlock()

	if prev != nil && prev.Close != nil {
		prev.Close()
	}

	r.resetPolicyFailures()
}

func (r *Runtime) resetPolicyFailures() {
	r.policyMu.Lock()
	r.policyFailures = 0
	r.policyMu.Unlock()
}
