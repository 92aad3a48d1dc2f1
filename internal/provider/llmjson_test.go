// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package provider_test

import (
	"testing"

	"github.com/rune-dev/rune/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "plain object",
			raw:  `{"capture": true, "reason": "clear decision"}`,
			want: map[string]any{"capture": true, "reason": "clear decision"},
		},
		{
			name: "fenced with json tag",
			raw:  "```json\n{\"capture\": false}\n```",
			want: map[string]any{"capture": false},
		},
		{
			name: "fenced without tag",
			raw:  "```\n{\"kind\": \"decision\"}\n```",
			want: map[string]any{"kind": "decision"},
		},
		{
			name: "preamble before object",
			raw:  "Here is the extraction:\n{\"title\": \"Adopt PostgreSQL\"}\nHope that helps!",
			want: map[string]any{"title": "Adopt PostgreSQL"},
		},
		{
			name: "no json at all",
			raw:  "I could not find a decision in that message.",
			want: map[string]any{},
		},
		{
			name: "empty input",
			raw:  "",
			want: map[string]any{},
		},
		{
			name: "truncated object",
			raw:  `{"capture": tr`,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, provider.ParseJSON(tt.raw))
		})
	}
}

func TestJSONAccessors(t *testing.T) {
	obj := provider.ParseJSON(`{"capture": true, "reason": "r", "tags": ["db", "", 7, "infra"]}`)

	assert.Equal(t, "r", provider.JSONString(obj, "reason"))
	assert.Equal(t, "", provider.JSONString(obj, "missing"))

	assert.True(t, provider.JSONBool(obj, "capture", false))
	assert.True(t, provider.JSONBool(obj, "missing", true))
	assert.False(t, provider.JSONBool(obj, "reason", false))

	assert.Equal(t, []string{"db", "infra"}, provider.JSONStrings(obj, "tags"))
	assert.Nil(t, provider.JSONStrings(obj, "missing"))
}
