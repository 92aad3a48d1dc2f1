// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package scribe_test

import (
	"testing"

	"github.com/rune-dev/rune/internal/scribe"
	"github.com/stretchr/testify/assert"
)

func TestExemplarCacheBound(t *testing.T) {
	cache := scribe.NewExemplarCache(4)
	assert.Equal(t, 4, cache.Bound())
	assert.Equal(t, 0, cache.Len())

	for i := 0; i < 10; i++ {
		vec := make([]float32, 4)
		vec[i%4] = 1
		cache.Add(vec, true)
		assert.LessOrEqual(t, cache.Len(), 4)
	}
	assert.Equal(t, 4, cache.Len())
}

func TestExemplarCacheEvictsOldest(t *testing.T) {
	cache := scribe.NewExemplarCache(2)

	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{0, 0, 1}

	cache.Add(a, true)
	cache.Add(b, true)
	// a is the oldest entry; adding c evicts it.
	cache.Add(c, true)

	sim := cache.Scan(a)
	assert.Equal(t, 0.0, sim.Max, "evicted exemplar no longer matches")

	sim = cache.Scan(b)
	assert.InDelta(t, 1.0, sim.Max, 1e-6)
	sim = cache.Scan(c)
	assert.InDelta(t, 1.0, sim.Max, 1e-6)
}

func TestExemplarCacheScanTracksAcceptedSeparately(t *testing.T) {
	cache := scribe.NewExemplarCache(4)
	cache.Add([]float32{1, 0}, false)
	cache.Add([]float32{0, 1}, true)

	sim := cache.Scan([]float32{1, 0})
	assert.InDelta(t, 1.0, sim.Max, 1e-6)
	assert.InDelta(t, 0.0, sim.MaxAccepted, 1e-6)

	sim = cache.Scan([]float32{0, 1})
	assert.InDelta(t, 1.0, sim.MaxAccepted, 1e-6)
}

func TestExemplarCacheSkipsMismatchedDimensions(t *testing.T) {
	cache := scribe.NewExemplarCache(4)
	cache.Add([]float32{1, 0, 0}, true)

	sim := cache.Scan([]float32{1, 0})
	assert.Equal(t, 0.0, sim.Max)
}

func TestExemplarCacheDefaultBound(t *testing.T) {
	cache := scribe.NewExemplarCache(0)
	assert.Equal(t, scribe.DefaultCacheSize, cache.Bound())
}

func TestMatchesTrigger(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"We Decided To move forward with the plan", true},
		{"팀에서 PostgreSQL을 사용하기로 했습니다", true},
		{"金曜日のデプロイは行わないと決定しました", true},
		{"我们决定采用 Kafka", true},
		{"good morning everyone", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, got := scribe.MatchesTrigger(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}
