// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package retriever_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rune-dev/rune/internal/provider"
	"github.com/rune-dev/rune/internal/record"
	"github.com/rune-dev/rune/internal/retriever"
	"github.com/rune-dev/rune/internal/vault"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (fakeEmbedder) Dimension() int { return 3 }

// fakeStore hands back a cipher token per search call and canned
// metadata blobs.
type fakeStore struct {
	mu        sync.Mutex
	searchErr error
	metaErr   error
	metadata  map[int64][]byte
	searches  int
}

func (f *fakeStore) Search(_ context.Context, _ []float32, _ int) ([]byte, error) {
	f.mu.Lock()
	f.searches++
	n := f.searches
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []byte(fmt.Sprintf("cipher-%d", n)), nil
}

func (f *fakeStore) FetchMetadata(_ context.Context, indices []int64) ([][]byte, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	out := make([][]byte, len(indices))
	for i, idx := range indices {
		out[i] = f.metadata[idx]
	}
	return out, nil
}

// fakeVault maps cipher tokens to score sets and passes metadata blobs
// through as "decrypted" plaintext.
type fakeVault struct {
	scores    map[string][]vault.Score
	scoresErr error
	metaErr   error
}

func (f *fakeVault) DecryptScores(_ context.Context, cipher []byte, _ int) ([]vault.Score, error) {
	if f.scoresErr != nil {
		return nil, f.scoresErr
	}
	return f.scores[string(cipher)], nil
}

func (f *fakeVault) DecryptMetadata(_ context.Context, blobs [][]byte) ([][]byte, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return blobs, nil
}

type fakeLLM struct {
	response  string
	err       error
	available bool
}

func (f *fakeLLM) Name() string    { return "fake" }
func (f *fakeLLM) Available() bool { return f.available }
func (f *fakeLLM) Generate(context.Context, provider.GenerateRequest) (string, error) {
	return f.response, f.err
}

func testRecord(id, title string, certainty record.Certainty) []byte {
	rec := record.Record{
		ID: id, Timestamp: time.Now().UTC(), Kind: record.KindDecision,
		Title: title, Body: "body of " + title, Certainty: certainty,
	}
	data, _ := rec.Marshal()
	return data
}

func newTestPipeline(store *fakeStore, fv *fakeVault, llm provider.Client) *retriever.Pipeline {
	return retriever.New(
		retriever.NewProcessor(llm),
		retriever.NewSearcher(fakeEmbedder{}, store, fv),
		retriever.NewSynthesizer(llm),
		0.5,
	)
}

func TestRecallValidatesTopK(t *testing.T) {
	pipeline := newTestPipeline(&fakeStore{}, &fakeVault{}, nil)

	for _, topk := range []int{0, -1, 11, 50} {
		_, err := pipeline.Recall(context.Background(), "why postgres?", topk)
		require.Error(t, err, "topk=%d", topk)
		assert.Equal(t, "bad_argument", runeerr.ClientTag(err))
	}
}

func TestRecallRejectsEmptyQuery(t *testing.T) {
	pipeline := newTestPipeline(&fakeStore{}, &fakeVault{}, nil)

	_, err := pipeline.Recall(context.Background(), "", 5)
	require.Error(t, err)
	assert.Equal(t, "empty", runeerr.ClientTag(err))
}

func TestRecallHappyPathFallbackAnswer(t *testing.T) {
	id := "dec_2026-08-05_decision_ab12cd34"
	store := &fakeStore{metadata: map[int64][]byte{
		7: testRecord(id, "Adopt PostgreSQL", record.CertaintySupported),
	}}
	fv := &fakeVault{scores: map[string][]vault.Score{
		"cipher-1": {{Index: 7, Similarity: 0.82}},
	}}

	pipeline := newTestPipeline(store, fv, nil)

	res, err := pipeline.Recall(context.Background(), "Why PostgreSQL?", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Found)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, id, res.Sources[0].ID)
	assert.Equal(t, record.CertaintySupported, res.Sources[0].Certainty)
	assert.InDelta(t, 0.82, res.Confidence, 1e-6)
	assert.Empty(t, res.Warnings)
	assert.Contains(t, res.Answer, "Found: Adopt PostgreSQL")
	assert.Contains(t, res.Answer, id)
}

func TestRecallMergeKeepsMaxSimilarityAndOrdering(t *testing.T) {
	idA := "dec_2026-08-05_decision_aaaaaaaa"
	idB := "dec_2026-08-05_policy_bbbbbbbb"
	idC := "dec_2026-08-05_lesson_cccccccc"

	store := &fakeStore{metadata: map[int64][]byte{
		1: testRecord(idA, "A", record.CertaintySupported),
		2: testRecord(idB, "B", record.CertaintyUnknown),
		3: testRecord(idC, "C", record.CertaintyPartiallySupported),
	}}
	// Two branches: index 2 appears in both with different similarity;
	// indices 1 and 3 tie so index ascending breaks it.
	fv := &fakeVault{scores: map[string][]vault.Score{
		"cipher-1": {{Index: 2, Similarity: 0.60}, {Index: 3, Similarity: 0.70}},
		"cipher-2": {{Index: 2, Similarity: 0.90}, {Index: 1, Similarity: 0.70}},
	}}

	// A two-query plan from the model.
	llm := &fakeLLM{available: true, response: `{"intent": "decision_rationale", "queries": ["expanded phrasing"], "entities": []}`}
	pipeline := newTestPipeline(store, fv, llm)

	res, err := pipeline.Recall(context.Background(), "why?", 5)
	require.NoError(t, err)

	require.Len(t, res.Sources, 3)
	// Index 2 merged to 0.90 and leads; 1 and 3 tie at 0.70 → index order.
	assert.Equal(t, idB, res.Sources[0].ID)
	assert.Equal(t, idA, res.Sources[1].ID)
	assert.Equal(t, idC, res.Sources[2].ID)
}

func TestRecallTruncatesToTopK(t *testing.T) {
	metadata := make(map[int64][]byte)
	scores := make([]vault.Score, 0, 8)
	for i := int64(1); i <= 8; i++ {
		id := fmt.Sprintf("dec_2026-08-05_insight_%08x", i)
		metadata[i] = testRecord(id, fmt.Sprintf("R%d", i), record.CertaintyUnknown)
		scores = append(scores, vault.Score{Index: i, Similarity: float32(i) / 10})
	}
	store := &fakeStore{metadata: metadata}
	fv := &fakeVault{scores: map[string][]vault.Score{"cipher-1": scores}}

	pipeline := newTestPipeline(store, fv, nil)

	res, err := pipeline.Recall(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	assert.Len(t, res.Sources, 3)
}

func TestRecallNoResults(t *testing.T) {
	store := &fakeStore{}
	fv := &fakeVault{scores: map[string][]vault.Score{}}
	pipeline := newTestPipeline(store, fv, nil)

	res, err := pipeline.Recall(context.Background(), "anything at all", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Found)
	assert.Equal(t, retriever.NoRecordsAnswer, res.Answer)
	assert.Empty(t, res.Sources)
}

func TestRecallVaultFailureNoPartialData(t *testing.T) {
	store := &fakeStore{}
	fv := &fakeVault{scoresErr: runeerr.New(runeerr.CodeVaultUnavailable, "refused")}
	pipeline := newTestPipeline(store, fv, nil)

	_, err := pipeline.Recall(context.Background(), "why postgres?", 5)
	require.Error(t, err)
	assert.Equal(t, "vault_unavailable", runeerr.ClientTag(err))
}

func TestRecallStoreFailure(t *testing.T) {
	store := &fakeStore{searchErr: runeerr.New(runeerr.CodeStoreUnavailable, "down")}
	pipeline := newTestPipeline(store, &fakeVault{}, nil)

	_, err := pipeline.Recall(context.Background(), "why postgres?", 5)
	require.Error(t, err)
	assert.Equal(t, "store_unavailable", runeerr.ClientTag(err))
}

func TestRecallPolicyDeniedSurfaces(t *testing.T) {
	store := &fakeStore{}
	fv := &fakeVault{scoresErr: runeerr.New(runeerr.CodeVaultPolicyDenied, "top-k cap")}
	pipeline := newTestPipeline(store, fv, nil)

	_, err := pipeline.Recall(context.Background(), "why postgres?", 5)
	require.Error(t, err)
	assert.True(t, runeerr.IsPolicyDenied(err))
}

func TestRecallLowConfidenceWarning(t *testing.T) {
	id := "dec_2026-08-05_insight_dddddddd"
	store := &fakeStore{metadata: map[int64][]byte{
		4: testRecord(id, "Weak match", record.CertaintyUnknown),
	}}
	fv := &fakeVault{scores: map[string][]vault.Score{
		"cipher-1": {{Index: 4, Similarity: 0.21}},
	}}
	pipeline := newTestPipeline(store, fv, nil)

	res, err := pipeline.Recall(context.Background(), "something obscure", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Contains(t, res.Warnings, retriever.WarningLowConfidence)
}

func TestRecallSkipsCorruptMetadata(t *testing.T) {
	id := "dec_2026-08-05_decision_ee00ff11"
	store := &fakeStore{metadata: map[int64][]byte{
		1: []byte("{corrupt"),
		2: testRecord(id, "Survivor", record.CertaintySupported),
	}}
	fv := &fakeVault{scores: map[string][]vault.Score{
		"cipher-1": {{Index: 1, Similarity: 0.9}, {Index: 2, Similarity: 0.8}},
	}}
	pipeline := newTestPipeline(store, fv, nil)

	res, err := pipeline.Recall(context.Background(), "what survived?", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, id, res.Sources[0].ID)
}
