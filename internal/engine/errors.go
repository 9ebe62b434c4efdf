// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"errors"
)

var (
	// ErrNoBank indicates the engine was created without a bank
	ErrNoBank = errors.New("bank not configured")

	// ErrNoKeyStore indicates a signing key was requested but no keystore is configured
	ErrNoKeyStore = errors.New("keystore not configured")

	// ErrNoSigningKey indicates no signing key is available for an address
	ErrNoSigningKey = errors.New("no signing key available for address")

	// ErrTransactionFailed indicates a transaction was rejected or failed on execution
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrVaultNotInitialized indicates the owner has no vault state account
	ErrVaultNotInitialized = errors.New("vault not initialized")

	// ErrVaultCorrupt indicates the vault state account exists but cannot be trusted
	ErrVaultCorrupt = errors.New("vault state is corrupt")
)
