// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package embedding_test

import (
	"math"
	"testing"

	"github.com/rune-dev/rune/internal/embedding"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceValidation(t *testing.T) {
	_, err := embedding.NewService(embedding.Config{Dimension: 384})
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeEmbeddingRequestInvalid))

	_, err = embedding.NewService(embedding.Config{Endpoint: "http://localhost:8091/v1"})
	require.Error(t, err)

	svc, err := embedding.NewService(embedding.Config{
		Endpoint:  "http://localhost:8091/v1",
		Model:     "paraphrase-multilingual-MiniLM-L12-v2",
		Dimension: 384,
	})
	require.NoError(t, err)
	assert.Equal(t, 384, svc.Dimension())
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	embedding.Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	embedding.Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	d := []float32{-1, 0, 0}

	sim, err := embedding.Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = embedding.Cosine(a, c)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	// Negative similarity clamps to zero.
	sim, err = embedding.Cosine(a, d)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	_, err = embedding.Cosine(a, []float32{1, 0})
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeEmbeddingDimensionMismatch))
}

func TestBatchCosine(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{{1, 0}, {0, 1}, {float32(math.Sqrt2) / 2, float32(math.Sqrt2) / 2}}

	sims, err := embedding.BatchCosine(query, vectors)
	require.NoError(t, err)
	require.Len(t, sims, 3)
	assert.InDelta(t, 1.0, sims[0], 1e-6)
	assert.InDelta(t, 0.0, sims[1], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, sims[2], 1e-6)

	_, err = embedding.BatchCosine(query, [][]float32{{1, 2, 3}})
	require.Error(t, err)
}
