// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rune-dev/rune/internal/retriever"
	"github.com/stretchr/testify/assert"
)

func TestProcessFallbackWithoutLLM(t *testing.T) {
	processor := retriever.NewProcessor(nil)

	plan := processor.Process(context.Background(), "Why did we choose PostgreSQL?")

	assert.Equal(t, retriever.IntentGeneric, plan.Intent)
	assert.Empty(t, plan.Entities)
	assert.Equal(t, []string{"Why did we choose PostgreSQL?"}, plan.Queries)
}

func TestProcessFallbackWhenLLMUnavailable(t *testing.T) {
	processor := retriever.NewProcessor(&fakeLLM{available: false})

	plan := processor.Process(context.Background(), "q")
	assert.Equal(t, []string{"q"}, plan.Queries)
}

func TestProcessLLMPlan(t *testing.T) {
	llm := &fakeLLM{available: true, response: `{
		"intent": "decision_rationale",
		"entities": ["PostgreSQL", "MongoDB"],
		"queries": ["postgres decision rationale", "database choice trade-offs"]
	}`}
	processor := retriever.NewProcessor(llm)

	plan := processor.Process(context.Background(), "Why PostgreSQL?")

	assert.Equal(t, "decision_rationale", plan.Intent)
	assert.Equal(t, []string{"PostgreSQL", "MongoDB"}, plan.Entities)
	assert.Equal(t, []string{
		"Why PostgreSQL?",
		"postgres decision rationale",
		"database choice trade-offs",
	}, plan.Queries)
}

func TestProcessCapsQueriesAtFour(t *testing.T) {
	llm := &fakeLLM{available: true, response: `{
		"intent": "generic",
		"queries": ["a", "b", "c", "d", "e", "f"]
	}`}
	processor := retriever.NewProcessor(llm)

	plan := processor.Process(context.Background(), "original")
	assert.Len(t, plan.Queries, 4)
	assert.Equal(t, "original", plan.Queries[0])
}

func TestProcessUnknownIntentBecomesGeneric(t *testing.T) {
	llm := &fakeLLM{available: true, response: `{"intent": "vibes", "queries": ["x"]}`}
	processor := retriever.NewProcessor(llm)

	plan := processor.Process(context.Background(), "q")
	assert.Equal(t, retriever.IntentGeneric, plan.Intent)
}

func TestProcessLLMErrorFallsBack(t *testing.T) {
	llm := &fakeLLM{available: true, err: errors.New("overloaded")}
	processor := retriever.NewProcessor(llm)

	plan := processor.Process(context.Background(), "q")
	assert.Equal(t, retriever.IntentGeneric, plan.Intent)
	assert.Equal(t, []string{"q"}, plan.Queries)
}

func TestProcessDeduplicatesQueries(t *testing.T) {
	llm := &fakeLLM{available: true, response: `{"intent": "generic", "queries": ["q", "other"]}`}
	processor := retriever.NewProcessor(llm)

	plan := processor.Process(context.Background(), "q")
	assert.Equal(t, []string{"q", "other"}, plan.Queries)
}
