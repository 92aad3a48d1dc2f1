// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package secrets resolves credential values from the OS keyring so the
// config file can reference secrets without holding them.
package secrets

// Store provides secure secret retrieval. Implementations may use OS
// keyrings or other backends.
type Store interface {
	// Retrieve fetches the secret value for the given service and key.
	// Returns a not-found error (via runeerr.IsNotFound) when absent.
	Retrieve(service, key string) (string, error)
}
