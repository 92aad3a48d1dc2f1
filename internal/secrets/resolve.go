// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/rune-dev/rune/internal/config"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key
// URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", runeerr.Errorf(runeerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", runeerr.Errorf(runeerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret
// value. A non-URI value passes through unchanged.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", runeerr.Wrapf(err, runeerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveConfigSecrets walks the credential fields of a loaded config
// and resolves any keyring:// values in place. Resolution failures are
// logged and the URI kept, so the error surfaces where the credential
// is actually used.
func ResolveConfigSecrets(cfg *config.Config, store Store) {
	fields := []*string{
		&cfg.Vault.Token,
		&cfg.EnVector.APIKey,
		&cfg.Embedding.APIKey,
		&cfg.LLM.AnthropicAPIKey,
		&cfg.LLM.OpenAIAPIKey,
		&cfg.LLM.GoogleAPIKey,
	}

	for _, field := range fields {
		if !IsKeyringURI(*field) {
			continue
		}
		resolved, err := ResolveKeyringURI(store, *field)
		if err != nil {
			slog.Warn("failed to resolve keyring URI, keeping original value", "error", err)
			continue
		}
		*field = resolved
	}
}
