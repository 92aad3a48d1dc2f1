// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package vault is the trust-isolated RPC client for Rune-Vault. The
// single secret key lives inside Vault; this client only hands over
// ciphertext it was given and receives plaintext back. It deliberately
// exposes no operation that accepts plaintext vectors or metadata.
package vault

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rune-dev/rune/internal/rpc"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const service = "/rune.vault.v1.VaultService/"

// MaxTopK is the server-enforced cap on indices per decrypt call.
// Exceeding it is a policy denial, not a retryable transport error.
const MaxTopK = 10

// Score is one decrypted similarity entry.
type Score struct {
	Index      int64   `json:"index"`
	Similarity float32 `json:"similarity"`
}

// Status reports Vault reachability and its advertised security mode.
type Status struct {
	Reachable    bool
	SecurityMode string
}

// KeyBundle is the tenant material Vault provisions for the enVector
// session: the team index, the key id, and the per-agent metadata DEK.
// The secret decryption key is never part of the bundle.
type KeyBundle struct {
	IndexName   string
	KeyID       string
	MetadataDEK []byte
}

// Config holds the Vault endpoint and bearer token.
type Config struct {
	Endpoint string
	Token    string
}

// Client is the Vault RPC adapter. It exclusively owns the Vault session;
// no other component speaks the Vault protocol.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// New dials the Vault endpoint. The connection is lazy; failures surface
// on the first call.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, runeerr.New(runeerr.CodeVaultUnavailable, "vault endpoint not configured")
	}

	conn, err := rpc.Dial(cfg.Endpoint)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeVaultUnavailable, "dialing vault %s", cfg.Endpoint)
	}

	return &Client{conn: conn, token: cfg.Token}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type decryptScoresRequest struct {
	EncryptedBlob string `json:"encrypted_blob_b64"`
	TopK          int    `json:"top_k"`
}

type decryptScoresResponse struct {
	Results []Score `json:"results"`
	Error   string  `json:"error,omitempty"`
}

// DecryptScores hands the score ciphertext from an encrypted search to
// Vault and receives the top-k (index, similarity) pairs. Vault enforces
// the top-k cap and keeps the audit trail.
func (c *Client) DecryptScores(ctx context.Context, cipher []byte, topK int) ([]Score, error) {
	req := decryptScoresRequest{
		EncryptedBlob: base64.StdEncoding.EncodeToString(cipher),
		TopK:          topK,
	}

	var resp decryptScoresResponse
	if err := c.invoke(ctx, "DecryptScores", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, classifyMessage(resp.Error, "decrypt_scores")
	}

	return resp.Results, nil
}

type decryptMetadataRequest struct {
	EncryptedMetadata []string `json:"encrypted_metadata_list"`
}

type decryptMetadataResponse struct {
	Decrypted []string `json:"decrypted_metadata"`
	Error     string   `json:"error,omitempty"`
}

// DecryptMetadata decrypts metadata ciphertext blobs, preserving order.
func (c *Client) DecryptMetadata(ctx context.Context, blobs [][]byte) ([][]byte, error) {
	encoded := make([]string, len(blobs))
	for i, blob := range blobs {
		encoded[i] = base64.StdEncoding.EncodeToString(blob)
	}

	var resp decryptMetadataResponse
	if err := c.invoke(ctx, "DecryptMetadata", decryptMetadataRequest{EncryptedMetadata: encoded}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, classifyMessage(resp.Error, "decrypt_metadata")
	}

	out := make([][]byte, len(resp.Decrypted))
	for i, s := range resp.Decrypted {
		plain, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			// Older Vault builds return metadata as raw JSON strings.
			plain = []byte(s)
		}
		out[i] = plain
	}

	return out, nil
}

type statusRequest struct{}

type statusResponse struct {
	SecurityMode string `json:"security_mode"`
	Error        string `json:"error,omitempty"`
}

// Status checks Vault reachability and its security mode. Transport
// failures yield Reachable=false without an error so callers can report
// status instead of failing.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp statusResponse
	if err := c.invoke(ctx, "Status", statusRequest{}, &resp); err != nil {
		if runeerr.IsPolicyDenied(err) {
			return Status{}, err
		}
		return Status{Reachable: false}, nil
	}
	if resp.Error != "" {
		return Status{Reachable: false}, nil
	}

	return Status{Reachable: true, SecurityMode: resp.SecurityMode}, nil
}

type keyBundleRequest struct{}

type keyBundleResponse struct {
	IndexName   string `json:"index_name"`
	KeyID       string `json:"key_id"`
	MetadataDEK string `json:"metadata_dek_b64"`
	Error       string `json:"error,omitempty"`
}

// FetchKeyBundle retrieves the tenant provisioning bundle: team index
// name, key id, and the AES-256 metadata DEK.
func (c *Client) FetchKeyBundle(ctx context.Context) (KeyBundle, error) {
	var resp keyBundleResponse
	if err := c.invoke(ctx, "GetKeyBundle", keyBundleRequest{}, &resp); err != nil {
		return KeyBundle{}, err
	}
	if resp.Error != "" {
		return KeyBundle{}, runeerr.Errorf(runeerr.CodeVaultKeyFailure, "vault key bundle: %s", resp.Error)
	}
	if resp.KeyID == "" {
		return KeyBundle{}, runeerr.New(runeerr.CodeVaultKeyFailure, "vault did not provide a key id")
	}

	bundle := KeyBundle{IndexName: resp.IndexName, KeyID: resp.KeyID}

	if resp.MetadataDEK != "" {
		dek, err := base64.StdEncoding.DecodeString(resp.MetadataDEK)
		if err != nil {
			return KeyBundle{}, runeerr.Wrapf(err, runeerr.CodeVaultKeyFailure, "decoding metadata DEK")
		}
		if len(dek) != 32 {
			return KeyBundle{}, runeerr.Errorf(runeerr.CodeVaultKeyFailure,
				"metadata DEK has invalid length %d (expected 32 for AES-256)", len(dek))
		}
		bundle.MetadataDEK = dek
	}

	return bundle, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	callCtx, cancel := rpc.WithDeadline(rpc.WithBearer(ctx, c.token))
	defer cancel()

	if err := c.conn.Invoke(callCtx, service+method, req, resp); err != nil {
		return classifyRPC(err, method)
	}
	return nil
}

// classifyRPC separates policy denials from transport failures so
// callers never retry a denied request.
func classifyRPC(err error, method string) error {
	st, ok := status.FromError(err)
	if ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.ResourceExhausted:
			return runeerr.Wrapf(err, runeerr.CodeVaultPolicyDenied, "vault %s denied", method)
		case codes.DeadlineExceeded:
			return runeerr.Wrapf(err, runeerr.CodePipelineCallTimeout, "vault %s deadline exceeded", method)
		}
		if isPolicyMessage(st.Message()) {
			return runeerr.Wrapf(err, runeerr.CodeVaultPolicyDenied, "vault %s denied", method)
		}
	}
	return runeerr.Wrapf(err, runeerr.CodeVaultUnavailable, "vault %s failed", method)
}

func classifyMessage(msg, method string) error {
	if isPolicyMessage(msg) {
		return runeerr.Errorf(runeerr.CodeVaultPolicyDenied, "vault %s denied: %s", method, msg)
	}
	return runeerr.Errorf(runeerr.CodeVaultUnavailable, "vault %s failed: %s", method, msg)
}

func isPolicyMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"top-k", "top_k", "policy", "cap exceeded", "denied"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
