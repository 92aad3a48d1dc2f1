// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package embedding produces fixed-dimension vectors for capture and
// recall. The backend is any OpenAI-compatible /v1/embeddings endpoint,
// which covers both hosted APIs and local on-device servers.
package embedding

import (
	"context"
	"math"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Embedder converts text into an L2-normalized vector of a fixed
// dimension, stable per installation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Config selects the embedding backend.
type Config struct {
	Endpoint  string
	APIKey    string
	Model     string
	Dimension int
}

// Service calls an OpenAI-compatible embeddings endpoint.
type Service struct {
	client openaisdk.Client
	model  string
	dim    int
}

// NewService creates an embedding service for the configured endpoint.
func NewService(cfg Config) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, runeerr.New(runeerr.CodeEmbeddingRequestInvalid, "embedding endpoint not configured")
	}
	if cfg.Dimension <= 0 {
		return nil, runeerr.Errorf(runeerr.CodeEmbeddingRequestInvalid,
			"embedding dimension must be positive, got %d", cfg.Dimension)
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.Endpoint),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// Local embedding servers accept any key; the SDK requires one.
		opts = append(opts, option.WithAPIKey("unused"))
	}

	return &Service{
		client: openaisdk.NewClient(opts...),
		model:  cfg.Model,
		dim:    cfg.Dimension,
	}, nil
}

// Dimension returns the installation's embedding dimension.
func (s *Service) Dimension() int { return s.dim }

// Embed produces the L2-normalized vector for text. The backend's
// dimension must match the configured one.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, runeerr.New(runeerr.CodeEmbeddingRequestInvalid, "cannot embed empty text")
	}

	resp, err := s.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(s.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeEmbeddingUpstreamFailure, "embedding request")
	}

	if len(resp.Data) == 0 {
		return nil, runeerr.New(runeerr.CodeEmbeddingUpstreamFailure, "embedding response carried no vectors")
	}

	raw := resp.Data[0].Embedding
	if len(raw) != s.dim {
		return nil, runeerr.Errorf(runeerr.CodeEmbeddingDimensionMismatch,
			"embedding dimension mismatch: expected %d, got %d", s.dim, len(raw))
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	Normalize(vec)
	return vec, nil
}

// Normalize scales v to unit length in place. A zero vector is left
// unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// Cosine returns the cosine similarity of two normalized vectors, clamped
// to [0,1]. Dimension mismatch is an error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, runeerr.Errorf(runeerr.CodeEmbeddingDimensionMismatch,
			"vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	return clamp01(dot), nil
}

// BatchCosine computes the similarity of query against each vector in
// vectors. All vectors must share the query's dimension.
func BatchCosine(query []float32, vectors [][]float32) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i, vec := range vectors {
		sim, err := Cosine(query, vec)
		if err != nil {
			return nil, err
		}
		out[i] = sim
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
