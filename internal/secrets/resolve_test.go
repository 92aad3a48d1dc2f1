// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package secrets_test

import (
	"testing"

	"github.com/rune-dev/rune/internal/config"
	"github.com/rune-dev/rune/internal/secrets"
	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]string

func (m mapStore) Retrieve(service, key string) (string, error) {
	if val, ok := m[service+"/"+key]; ok {
		return val, nil
	}
	return "", runeerr.Errorf(runeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
}

func TestParseKeyringURI(t *testing.T) {
	service, key, err := secrets.ParseKeyringURI("keyring://rune/vault-token")
	require.NoError(t, err)
	assert.Equal(t, "rune", service)
	assert.Equal(t, "vault-token", key)

	for _, uri := range []string{"keyring://", "keyring://rune", "keyring:///key", "plain-value"} {
		_, _, err := secrets.ParseKeyringURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestResolveKeyringURI(t *testing.T) {
	store := mapStore{"rune/vault-token": "tok-123"}

	val, err := secrets.ResolveKeyringURI(store, "keyring://rune/vault-token")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", val)

	// Non-URI values pass through.
	val, err = secrets.ResolveKeyringURI(store, "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", val)

	_, err = secrets.ResolveKeyringURI(store, "keyring://rune/missing")
	require.Error(t, err)
}

func TestResolveConfigSecrets(t *testing.T) {
	store := mapStore{
		"rune/vault-token":   "tok",
		"rune/anthropic-key": "sk-ant",
	}

	cfg := &config.Config{}
	cfg.Vault.Token = "keyring://rune/vault-token"
	cfg.LLM.AnthropicAPIKey = "keyring://rune/anthropic-key"
	cfg.LLM.OpenAIAPIKey = "sk-literal"
	cfg.EnVector.APIKey = "keyring://rune/missing"

	secrets.ResolveConfigSecrets(cfg, store)

	assert.Equal(t, "tok", cfg.Vault.Token)
	assert.Equal(t, "sk-ant", cfg.LLM.AnthropicAPIKey)
	assert.Equal(t, "sk-literal", cfg.LLM.OpenAIAPIKey)
	// Unresolvable URIs stay in place so the failure surfaces at use.
	assert.Equal(t, "keyring://rune/missing", cfg.EnVector.APIKey)
}
