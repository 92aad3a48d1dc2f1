// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package server

var (
	HandleCapture     = handleCapture
	HandleRecall      = handleRecall
	HandleVaultStatus = handleVaultStatus
	HandleReload      = handleReload
)

const PolicyDemotionWindow = policyDemotionWindow
