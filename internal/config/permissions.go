// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// EnforcePermissions tightens the config file to user-only access when it
// is group- or world-readable. The file carries Vault and LLM tokens, so
// anything looser than 0600 exposes them to other users on the system.
func EnforcePermissions(path string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}

	perm := info.Mode().Perm()

	const groupOrOther fs.FileMode = 0o077
	if perm&groupOrOther == 0 {
		return
	}

	if err := os.Chmod(path, 0o600); err != nil {
		slog.Warn("config file has insecure permissions and chmod failed",
			"path", path,
			"mode", info.Mode(),
			"recommended", "0600",
			"error", err,
		)
		return
	}

	slog.Warn("config file permissions tightened to 0600", "path", path, "previous", perm)
}
