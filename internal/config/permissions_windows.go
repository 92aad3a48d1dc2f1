// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

//go:build windows

package config

// EnforcePermissions is a no-op on Windows. NTFS ACLs do not map to POSIX
// permission bits; the config directory inherits the user profile ACL.
func EnforcePermissions(path string) {}
