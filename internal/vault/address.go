// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"github.com/aplane-algo/apvault/internal/pubkey"
)

var (
	statePrefix = []byte("state")
	vaultPrefix = []byte("vault")
)

// StateAddress derives a user's VaultState address and its canonical bump.
func StateAddress(user pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
	return pubkey.FindProgramAddress(stateSeeds(user), ProgramID)
}

// VaultAddress derives the holding account of a VaultState and its canonical bump.
func VaultAddress(state pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
	return pubkey.FindProgramAddress(vaultSeeds(state), ProgramID)
}

// StateAddressWithBump replays the state derivation with a known bump.
func StateAddressWithBump(user pubkey.Pubkey, bump uint8) (pubkey.Pubkey, error) {
	return pubkey.CreateProgramAddress(append(stateSeeds(user), []byte{bump}), ProgramID)
}

// VaultAddressWithBump replays the vault derivation with a known bump, as
// recorded in VaultState.
func VaultAddressWithBump(state pubkey.Pubkey, bump uint8) (pubkey.Pubkey, error) {
	return pubkey.CreateProgramAddress(append(vaultSeeds(state), []byte{bump}), ProgramID)
}

func stateSeeds(user pubkey.Pubkey) [][]byte {
	return [][]byte{statePrefix, user.Bytes()}
}

func vaultSeeds(state pubkey.Pubkey) [][]byte {
	return [][]byte{vaultPrefix, state.Bytes()}
}
