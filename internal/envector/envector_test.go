// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package envector_test

import (
	"errors"
	"testing"

	"github.com/rune-dev/rune/internal/envector"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := envector.New(envector.Config{}, nil)
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeStoreUnavailable))
}

func TestSetIndexKeepsConfiguredName(t *testing.T) {
	adapter, err := envector.New(envector.Config{Endpoint: "localhost:1", Index: "configured"}, nil)
	require.NoError(t, err)
	defer adapter.Close()

	adapter.SetIndex("vault_provided")
	assert.Equal(t, "configured", adapter.Index())
}

func TestSetIndexFillsEmpty(t *testing.T) {
	adapter, err := envector.New(envector.Config{Endpoint: "localhost:1"}, nil)
	require.NoError(t, err)
	defer adapter.Close()

	adapter.SetIndex("vault_provided")
	assert.Equal(t, "vault_provided", adapter.Index())
}

func TestRetryable(t *testing.T) {
	assert.True(t, envector.Retryable(status.Error(codes.ResourceExhausted, "rate limited")))
	assert.True(t, envector.Retryable(status.Error(codes.Unavailable, "connection reset")))
	assert.False(t, envector.Retryable(status.Error(codes.InvalidArgument, "bad vector")))
	assert.False(t, envector.Retryable(errors.New("plain")))
}
