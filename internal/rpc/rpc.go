// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package rpc holds the gRPC plumbing shared by the Vault and enVector
// adapters: a JSON call codec, endpoint normalization, and bearer-token
// metadata.
package rpc

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

// CodecName selects the JSON codec on a per-call basis.
const CodecName = "json"

// defaultPort is assumed when an endpoint carries no port.
const defaultPort = "50051"

// DefaultDeadline bounds a single adapter RPC.
const DefaultDeadline = 10 * time.Second

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals request and response messages as JSON. Both remote
// services speak a JSON-framed gRPC dialect, so no generated protobuf
// stubs are involved.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// Target normalizes a configured endpoint into a gRPC dial target.
// Accepted forms: "host:port", "tcp://host:port", and legacy
// "http(s)://host[:port][/path]" (path dropped, default port assumed).
func Target(endpoint string) string {
	endpoint = strings.TrimSpace(strings.TrimSuffix(endpoint, "/"))
	if endpoint == "" {
		return endpoint
	}

	if !strings.Contains(endpoint, "://") {
		if strings.Contains(endpoint, ":") {
			return endpoint
		}
		return endpoint + ":" + defaultPort
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Hostname() == "" {
		return endpoint
	}

	port := parsed.Port()
	if port == "" {
		port = defaultPort
	}
	return parsed.Hostname() + ":" + port
}

// Dial opens a client connection to the endpoint with the JSON codec as
// the default call content type. Connections are lazy; failures surface
// on the first call.
func Dial(endpoint string) (*grpc.ClientConn, error) {
	return grpc.NewClient(Target(endpoint),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
}

// WithBearer attaches the bearer token as outgoing authorization
// metadata.
func WithBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// WithDeadline applies the default RPC deadline unless the context
// already carries an earlier one.
func WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < DefaultDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultDeadline)
}
