// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package anthropic_test

import (
	"context"
	"testing"

	"github.com/rune-dev/rune/internal/provider"
	"github.com/rune-dev/rune/internal/provider/anthropic"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutKeyIsUnavailable(t *testing.T) {
	client, err := anthropic.New(provider.Config{Provider: "anthropic"})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", client.Name())
	assert.False(t, client.Available())

	_, err = client.Generate(context.Background(), provider.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeProviderUnavailable))
}

func TestNewWithKey(t *testing.T) {
	client, err := anthropic.New(provider.Config{
		Provider: "anthropic",
		APIKey:   "sk-ant-test",
		Model:    "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)
	assert.True(t, client.Available())
	assert.Equal(t, "anthropic", client.Name())
}
