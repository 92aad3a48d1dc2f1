// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package envector_test

import (
	"bytes"
	"testing"

	"github.com/rune-dev/rune/internal/envector"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSealerRejectsBadKey(t *testing.T) {
	_, err := envector.NewSealer([]byte("short"))
	require.Error(t, err)
	assert.True(t, runeerr.HasCode(err, runeerr.CodeVaultKeyFailure))
}

func TestSealProducesUniqueCiphertext(t *testing.T) {
	dek := bytes.Repeat([]byte{0x42}, 32)
	sealer, err := envector.NewSealer(dek)
	require.NoError(t, err)

	plaintext := []byte(`{"id":"dec_2026-08-05_decision_ab12cd"}`)

	first, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	second, err := sealer.Seal(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "nonce must randomize ciphertext")
	assert.NotContains(t, string(first), "dec_2026-08-05")
	assert.Greater(t, len(first), len(plaintext))
}
