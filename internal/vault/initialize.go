// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
)

// initialize records both bumps and creates the holding account. The vault
// address has no private key, so the program authorizes its creation by
// handing the runtime the exact seeds that derive it.
func (p *Program) initialize(ictx *runtime.InvokeContext) error {
	accts, err := loadInitialize(ictx)
	if err != nil {
		return err
	}

	state := VaultState{
		VaultBump: accts.vaultBump,
		StateBump: accts.stateBump,
	}

	lamports := ictx.Rent().MinimumBalance(0)
	vaultSigner := [][]byte{vaultPrefix, accts.vaultState.Key.Bytes(), {accts.vaultBump}}

	create := runtime.CreateAccount(accts.user.Key, accts.vault.Key, lamports, 0, pubkey.SystemProgramID)
	if err := ictx.InvokeSigned(create, [][][]byte{vaultSigner}); err != nil {
		return err
	}

	data, err := state.MarshalBinary()
	if err != nil {
		return err
	}
	accts.vaultState.SetData(data)
	return nil
}
