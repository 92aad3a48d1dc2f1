// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package scribe

import (
	"sync"

	"github.com/rune-dev/rune/internal/embedding"
)

// DefaultCacheSize bounds the Tier-1 exemplar cache.
const DefaultCacheSize = 64

// Exemplar is one cached (embedding, outcome) pair.
type Exemplar struct {
	Vector   []float32
	Accepted bool
}

// ExemplarCache is the bounded, process-local set of recently captured
// embeddings. It is the only mutable shared state in the capture
// pipeline; critical sections are O(N) scans with no I/O under the lock.
// Eviction is least-recently-inserted.
type ExemplarCache struct {
	mu      sync.Mutex
	bound   int
	entries []Exemplar
	next    int
	full    bool
}

// NewExemplarCache creates a cache with the given bound (DefaultCacheSize
// when non-positive).
func NewExemplarCache(bound int) *ExemplarCache {
	if bound <= 0 {
		bound = DefaultCacheSize
	}
	return &ExemplarCache{
		bound:   bound,
		entries: make([]Exemplar, bound),
	}
}

// Add inserts an exemplar, evicting the oldest entry once full.
func (c *ExemplarCache) Add(vec []float32, accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.next] = Exemplar{Vector: vec, Accepted: accepted}
	c.next++
	if c.next == c.bound {
		c.next = 0
		c.full = true
	}
}

// Len returns the number of cached exemplars.
func (c *ExemplarCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return c.bound
	}
	return c.next
}

// Bound returns the configured capacity.
func (c *ExemplarCache) Bound() int {
	return c.bound
}

// Similarity holds the per-candidate scan result.
type Similarity struct {
	// Max is the highest cosine similarity to any cached exemplar.
	Max float64
	// MaxAccepted is the highest similarity to an accepted exemplar.
	MaxAccepted float64
}

// Scan computes similarity of vec against every cached exemplar in one
// pass. Exemplars of a different dimension (possible after an embedding
// model change) are skipped.
func (c *ExemplarCache) Scan(vec []float32) Similarity {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sim Similarity
	count := c.next
	if c.full {
		count = c.bound
	}

	for i := 0; i < count; i++ {
		entry := c.entries[i]
		score, err := embedding.Cosine(vec, entry.Vector)
		if err != nil {
			continue
		}
		if score > sim.Max {
			sim.Max = score
		}
		if entry.Accepted && score > sim.MaxAccepted {
			sim.MaxAccepted = score
		}
	}

	return sim
}
