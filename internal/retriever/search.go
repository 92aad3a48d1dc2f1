// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package retriever

import (
	"context"
	"sort"
	"sync"

	"github.com/rune-dev/rune/internal/embedding"
	"github.com/rune-dev/rune/internal/record"
	"github.com/rune-dev/rune/internal/vault"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// SearchStore is the slice of the enVector adapter the recall pipeline
// needs: ciphertext out only.
type SearchStore interface {
	Search(ctx context.Context, vec []float32, k int) ([]byte, error)
	FetchMetadata(ctx context.Context, indices []int64) ([][]byte, error)
}

// Decrypter is the slice of the Vault client the recall pipeline needs.
type Decrypter interface {
	DecryptScores(ctx context.Context, cipher []byte, topK int) ([]vault.Score, error)
	DecryptMetadata(ctx context.Context, blobs [][]byte) ([][]byte, error)
}

// Candidate is one merged search hit, transient to a single recall.
type Candidate struct {
	Index      int64
	Similarity float64
}

// ScoredRecord pairs a decrypted record with its merged similarity.
type ScoredRecord struct {
	Record     record.Record
	Similarity float64
}

// Searcher fans a query plan out over encrypted search and merges the
// Vault-decrypted candidate sets.
type Searcher struct {
	embedder embedding.Embedder
	store    SearchStore
	vault    Decrypter
}

// NewSearcher assembles a searcher.
func NewSearcher(embedder embedding.Embedder, store SearchStore, decrypter Decrypter) *Searcher {
	return &Searcher{embedder: embedder, store: store, vault: decrypter}
}

// Search runs one encrypted search per query in parallel and merges the
// results. A failure on any branch fails the whole call: recall never
// returns partial data.
func (s *Searcher) Search(ctx context.Context, queries []string, topk int) ([]Candidate, error) {
	type branchResult struct {
		scores []vault.Score
		err    error
	}

	results := make([]branchResult, len(queries))
	var wg sync.WaitGroup

	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			scores, err := s.searchOne(ctx, query, topk)
			results[i] = branchResult{scores: scores, err: err}
		}(i, query)
	}
	wg.Wait()

	merged := make(map[int64]float64)
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		for _, score := range res.scores {
			sim := float64(score.Similarity)
			if existing, ok := merged[score.Index]; !ok || sim > existing {
				merged[score.Index] = sim
			}
		}
	}

	candidates := make([]Candidate, 0, len(merged))
	for idx, sim := range merged {
		candidates = append(candidates, Candidate{Index: idx, Similarity: sim})
	}

	// Similarity descending; ties break by index ascending so results
	// are deterministic regardless of branch scheduling.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Index < candidates[j].Index
	})

	if len(candidates) > topk {
		candidates = candidates[:topk]
	}

	return candidates, nil
}

func (s *Searcher) searchOne(ctx context.Context, query string, topk int) ([]vault.Score, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeEmbeddingUpstreamFailure, "embedding recall query")
	}

	cipher, err := s.store.Search(ctx, vec, topk)
	if err != nil {
		return nil, err
	}
	if len(cipher) == 0 {
		return nil, nil
	}

	return s.vault.DecryptScores(ctx, cipher, topk)
}

// FetchRecords retrieves and decrypts the metadata for the surviving
// candidates, preserving candidate order.
func (s *Searcher) FetchRecords(ctx context.Context, candidates []Candidate) ([]ScoredRecord, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	indices := make([]int64, len(candidates))
	for i, c := range candidates {
		indices[i] = c.Index
	}

	blobs, err := s.store.FetchMetadata(ctx, indices)
	if err != nil {
		return nil, err
	}

	plain, err := s.vault.DecryptMetadata(ctx, blobs)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredRecord, 0, len(plain))
	for i, data := range plain {
		rec, err := record.Unmarshal(data)
		if err != nil {
			// A single corrupt document should not sink the whole recall.
			continue
		}
		out = append(out, ScoredRecord{Record: rec, Similarity: candidates[i].Similarity})
	}

	return out, nil
}
