// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package rpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/rune-dev/rune/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vault.example.com:50051", "vault.example.com:50051"},
		{"localhost:50050", "localhost:50050"},
		{"vault.example.com", "vault.example.com:50051"},
		{"tcp://vault:50051", "vault:50051"},
		{"http://vault:50080/mcp", "vault:50080"},
		{"https://vault.example.com", "vault.example.com:50051"},
		{"https://vault.example.com/", "vault.example.com:50051"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, rpc.Target(tt.in))
		})
	}
}

func TestWithBearer(t *testing.T) {
	ctx := rpc.WithBearer(context.Background(), "tok")
	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"Bearer tok"}, md.Get("authorization"))

	// Empty token leaves the context untouched.
	plain := rpc.WithBearer(context.Background(), "")
	_, ok = metadata.FromOutgoingContext(plain)
	assert.False(t, ok)
}

func TestWithDeadline(t *testing.T) {
	ctx, cancel := rpc.WithDeadline(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(rpc.DefaultDeadline), deadline, time.Second)

	// An earlier caller deadline is preserved.
	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	child, childCancel := rpc.WithDeadline(parent)
	defer childCancel()
	childDeadline, ok := child.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), childDeadline, 200*time.Millisecond)
}
