// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package secrets

import (
	"errors"

	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringStore implements Store using the OS keyring via
// zalando/go-keyring. On macOS that is Keychain, on Linux
// secret-service (D-Bus), and on Windows the Credential Manager.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if service == "" {
		return "", runeerr.New(runeerr.CodeSecretInvalidInput, "secret retrieve: service must not be empty")
	}
	if key == "" {
		return "", runeerr.New(runeerr.CodeSecretInvalidInput, "secret retrieve: key must not be empty")
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", runeerr.Errorf(runeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", runeerr.Wrapf(err, runeerr.CodeSecretResolveFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}
