// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package envector

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Sealer encrypts record metadata with the Vault-issued AES-256 DEK
// before it leaves the process. Only Vault can open what it seals; the
// adapter never decrypts.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer wraps a 32-byte DEK in an AES-GCM AEAD.
func NewSealer(dek []byte) (*Sealer, error) {
	if len(dek) != 32 {
		return nil, runeerr.Errorf(runeerr.CodeVaultKeyFailure,
			"metadata DEK must be 32 bytes, got %d", len(dek))
	}

	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeVaultKeyFailure, "initializing metadata cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeVaultKeyFailure, "initializing metadata AEAD")
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext, prepending the random nonce to the ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeStoreInsertFailure, "generating nonce")
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}
