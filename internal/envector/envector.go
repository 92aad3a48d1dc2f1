// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package envector is the adapter for the remote FHE-capable vector
// store. Plaintext never leaves the process through it: vectors are
// encrypted by the store's Encrypt RPC under the tenant encryption key,
// and metadata is sealed locally with the Vault-issued DEK before
// insert. Search and metadata fetch return ciphertext only.
package envector

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rune-dev/rune/internal/rpc"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const service = "/rune.envector.v1.IndexService/"

// maxAttempts bounds retries on session-level rate limiting before the
// failure surfaces as store_unavailable.
const maxAttempts = 3

// Config holds the tenant session parameters.
type Config struct {
	Endpoint string
	APIKey   string
	Index    string
}

// Adapter owns the tenant-scoped enVector session. Operations are safe
// for concurrent use; the configured index is ensured once per adapter.
type Adapter struct {
	conn   *grpc.ClientConn
	apiKey string
	sealer *Sealer

	mu    sync.Mutex
	index string

	ensureOnce sync.Once
	ensureErr  error
}

// New dials the store endpoint. The sealer is optional until a Vault key
// bundle provisions the metadata DEK.
func New(cfg Config, sealer *Sealer) (*Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, runeerr.New(runeerr.CodeStoreUnavailable, "envector endpoint not configured")
	}

	conn, err := rpc.Dial(cfg.Endpoint)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeStoreUnavailable, "dialing envector %s", cfg.Endpoint)
	}

	return &Adapter{
		conn:   conn,
		apiKey: cfg.APIKey,
		sealer: sealer,
		index:  cfg.Index,
	}, nil
}

// Close releases the underlying connection.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

// Index returns the index this session targets.
func (a *Adapter) Index() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index
}

// SetIndex installs the Vault-provisioned team index when the config did
// not name one.
func (a *Adapter) SetIndex(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.index == "" {
		a.index = name
	}
}

// SetSealer installs the metadata sealer once the Vault key bundle is
// available.
func (a *Adapter) SetSealer(s *Sealer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealer = s
}

type ensureIndexRequest struct {
	Index string `json:"index_name"`
	Dim   int    `json:"dim"`
}

type ensureIndexResponse struct {
	Error string `json:"error,omitempty"`
}

// EnsureIndex creates the configured index if it does not exist.
// Idempotent; runs at most once per adapter, so a pipeline reload that
// builds a new adapter runs it again.
func (a *Adapter) EnsureIndex(ctx context.Context, dim int) error {
	a.ensureOnce.Do(func() {
		var resp ensureIndexResponse
		a.ensureErr = a.invoke(ctx, "EnsureIndex", ensureIndexRequest{Index: a.Index(), Dim: dim}, &resp)
		if a.ensureErr == nil && resp.Error != "" {
			a.ensureErr = runeerr.Errorf(runeerr.CodeStoreIndexFailure, "ensure index: %s", resp.Error)
		}
	})
	return a.ensureErr
}

type encryptRequest struct {
	Vector []float32 `json:"vector"`
}

type encryptResponse struct {
	Cipher string `json:"cipher_b64"`
	Error  string `json:"error,omitempty"`
}

type insertRequest struct {
	Index          string `json:"index_name"`
	VectorCipher   string `json:"vector_cipher_b64"`
	MetadataCipher string `json:"metadata_cipher_b64"`
}

type insertResponse struct {
	Error string `json:"error,omitempty"`
}

// Insert encrypts the embedding under the tenant encryption key (a
// remote RPC: the FHE public key stays with the store session), seals
// the metadata with the Vault DEK, and inserts both.
func (a *Adapter) Insert(ctx context.Context, vec []float32, metadata []byte) error {
	a.mu.Lock()
	sealer := a.sealer
	a.mu.Unlock()

	if sealer == nil {
		return runeerr.New(runeerr.CodeStoreInsertFailure,
			"metadata sealer not provisioned; fetch the vault key bundle first")
	}

	var enc encryptResponse
	if err := a.invoke(ctx, "Encrypt", encryptRequest{Vector: vec}, &enc); err != nil {
		return err
	}
	if enc.Error != "" {
		return runeerr.Errorf(runeerr.CodeStoreInsertFailure, "encrypt vector: %s", enc.Error)
	}

	sealed, err := sealer.Seal(metadata)
	if err != nil {
		return err
	}

	req := insertRequest{
		Index:          a.Index(),
		VectorCipher:   enc.Cipher,
		MetadataCipher: base64.StdEncoding.EncodeToString(sealed),
	}

	var resp insertResponse
	if err := a.invoke(ctx, "Insert", req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return runeerr.Errorf(runeerr.CodeStoreInsertFailure, "insert: %s", resp.Error)
	}

	return nil
}

type searchRequest struct {
	Index  string    `json:"index_name"`
	Vector []float32 `json:"vector"`
	TopK   int       `json:"topk"`
}

type searchResponse struct {
	ScoreCipher string `json:"score_cipher_b64"`
	Error       string `json:"error,omitempty"`
}

// Search runs encrypted similarity scoring and returns the score
// ciphertext. Only Vault can decrypt it.
func (a *Adapter) Search(ctx context.Context, vec []float32, k int) ([]byte, error) {
	req := searchRequest{Index: a.Index(), Vector: vec, TopK: k}

	var resp searchResponse
	if err := a.invoke(ctx, "Search", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, runeerr.Errorf(runeerr.CodeStoreSearchFailure, "search: %s", resp.Error)
	}

	cipher, err := base64.StdEncoding.DecodeString(resp.ScoreCipher)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeStoreSearchFailure, "decoding score ciphertext")
	}

	return cipher, nil
}

type fetchMetadataRequest struct {
	Index   string  `json:"index_name"`
	Indices []int64 `json:"indices"`
}

type fetchMetadataResponse struct {
	Entries []string `json:"metadata_cipher_b64"`
	Error   string   `json:"error,omitempty"`
}

// FetchMetadata retrieves the metadata ciphertext for the given row
// indices, preserving order.
func (a *Adapter) FetchMetadata(ctx context.Context, indices []int64) ([][]byte, error) {
	req := fetchMetadataRequest{Index: a.Index(), Indices: indices}

	var resp fetchMetadataResponse
	if err := a.invoke(ctx, "FetchMetadata", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, runeerr.Errorf(runeerr.CodeStoreSearchFailure, "fetch metadata: %s", resp.Error)
	}

	out := make([][]byte, len(resp.Entries))
	for i, entry := range resp.Entries {
		blob, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, runeerr.Wrapf(err, runeerr.CodeStoreSearchFailure, "decoding metadata ciphertext")
		}
		out[i] = blob
	}

	return out, nil
}

// invoke dispatches one RPC with bearer auth, a deadline, and retry on
// session-level rate limiting.
func (a *Adapter) invoke(ctx context.Context, method string, req, resp any) error {
	operation := func() (struct{}, error) {
		callCtx, cancel := rpc.WithDeadline(rpc.WithBearer(ctx, a.apiKey))
		defer cancel()

		err := a.conn.Invoke(callCtx, service+method, req, resp)
		if err == nil {
			return struct{}{}, nil
		}
		if retryable(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return runeerr.Wrapf(err, runeerr.CodeStoreUnavailable, "envector %s failed", method)
	}

	return nil
}

// retryable reports whether the error is session-level rate limiting or
// transient unavailability worth backing off for.
func retryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}
