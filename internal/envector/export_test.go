// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package envector

var Retryable = retryable
