// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package vault_test

import (
	"testing"

	"github.com/rune-dev/rune/internal/vault"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := vault.New(vault.Config{})
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeVaultUnavailable))
}

func TestNewDialsLazily(t *testing.T) {
	client, err := vault.New(vault.Config{Endpoint: "localhost:1", Token: "tok"})
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestClassifyRPC(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want runeerr.Code
	}{
		{"permission denied", status.Error(codes.PermissionDenied, "no"), runeerr.CodeVaultPolicyDenied},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "quota"), runeerr.CodeVaultPolicyDenied},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), runeerr.CodePipelineCallTimeout},
		{"unavailable", status.Error(codes.Unavailable, "refused"), runeerr.CodeVaultUnavailable},
		{"policy message on generic code", status.Error(codes.Unknown, "request exceeded top-k cap"), runeerr.CodeVaultPolicyDenied},
		{"generic unknown", status.Error(codes.Unknown, "boom"), runeerr.CodeVaultUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vault.ClassifyRPC(tt.err, "DecryptScores")
			assert.Equal(t, tt.want, runeerr.CodeOf(got))
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	err := vault.ClassifyMessage("policy: max top_k is 10", "decrypt_scores")
	assert.True(t, runeerr.IsPolicyDenied(err))

	err = vault.ClassifyMessage("ciphertext corrupt", "decrypt_scores")
	assert.True(t, runeerr.HasCode(err, runeerr.CodeVaultUnavailable))
}

func TestIsPolicyMessage(t *testing.T) {
	assert.True(t, vault.IsPolicyMessage("request exceeded TOP-K cap"))
	assert.True(t, vault.IsPolicyMessage("denied by tenant policy"))
	assert.False(t, vault.IsPolicyMessage("connection reset by peer"))
}

func TestMaxTopK(t *testing.T) {
	assert.Equal(t, 10, vault.MaxTopK)
}
