// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

// Account loading and constraint checks. Every address is re-derived here
// before a handler runs; handlers never see an account that failed these.

import (
	"fmt"

	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
)

type initializeAccounts struct {
	user          *runtime.AccountInfo
	vaultState    *runtime.AccountInfo
	vault         *runtime.AccountInfo
	systemProgram *runtime.AccountInfo

	stateBump uint8
	vaultBump uint8
}

type depositAccounts struct {
	user          *runtime.AccountInfo
	vault         *runtime.AccountInfo
	vaultState    *runtime.AccountInfo
	systemProgram *runtime.AccountInfo

	state *VaultState
}

// loadInitialize validates [user, vault_state, vault, system_program] and
// creates vault_state. The canonical bumps found here are what the handler
// stores.
func loadInitialize(ictx *runtime.InvokeContext) (*initializeAccounts, error) {
	accts := ictx.Accounts()
	if len(accts) < 4 {
		return nil, ErrAccountNotEnoughKeys
	}
	a := &initializeAccounts{
		user:          accts[0],
		vaultState:    accts[1],
		vault:         accts[2],
		systemProgram: accts[3],
	}

	if err := checkSigner(ictx, "user", a.user); err != nil {
		return nil, err
	}
	if err := checkMut(ictx, "user", a.user); err != nil {
		return nil, err
	}
	if err := checkSystemProgram(ictx, a.systemProgram); err != nil {
		return nil, err
	}

	stateAddr, stateBump, err := StateAddress(a.user.Key)
	if err != nil {
		return nil, err
	}
	if err := checkSeeds(ictx, "vault_state", a.vaultState, stateAddr); err != nil {
		return nil, err
	}
	if err := checkMut(ictx, "vault_state", a.vaultState); err != nil {
		return nil, err
	}
	a.stateBump = stateBump

	stateSigner := append(stateSeeds(a.user.Key), []byte{stateBump})
	if err := initAccount(ictx, a.user, a.vaultState, VaultStateSize, stateSigner); err != nil {
		return nil, err
	}

	vaultAddr, vaultBump, err := VaultAddress(a.vaultState.Key)
	if err != nil {
		return nil, err
	}
	if err := checkMut(ictx, "vault", a.vault); err != nil {
		return nil, err
	}
	if err := checkSeeds(ictx, "vault", a.vault, vaultAddr); err != nil {
		return nil, err
	}
	a.vaultBump = vaultBump

	return a, nil
}

// loadDeposit validates [user, vault, vault_state, system_program]. Both
// derived addresses are replayed with the bumps stored in vault_state, not
// searched for again.
func loadDeposit(ictx *runtime.InvokeContext) (*depositAccounts, error) {
	accts := ictx.Accounts()
	if len(accts) < 4 {
		return nil, ErrAccountNotEnoughKeys
	}
	a := &depositAccounts{
		user:          accts[0],
		vault:         accts[1],
		vaultState:    accts[2],
		systemProgram: accts[3],
	}

	if err := checkSigner(ictx, "user", a.user); err != nil {
		return nil, err
	}
	state, err := loadVaultState(ictx, a.vaultState)
	if err != nil {
		return nil, err
	}
	a.state = state
	if err := checkSystemProgram(ictx, a.systemProgram); err != nil {
		return nil, err
	}

	if err := checkMut(ictx, "user", a.user); err != nil {
		return nil, err
	}
	if err := checkMut(ictx, "vault", a.vault); err != nil {
		return nil, err
	}

	vaultAddr, err := VaultAddressWithBump(a.vaultState.Key, state.VaultBump)
	if err != nil {
		return nil, seedsError(ictx, "vault", err)
	}
	if err := checkSeeds(ictx, "vault", a.vault, vaultAddr); err != nil {
		return nil, err
	}

	stateAddr, err := StateAddressWithBump(a.user.Key, state.StateBump)
	if err != nil {
		return nil, seedsError(ictx, "vault_state", err)
	}
	if err := checkSeeds(ictx, "vault_state", a.vaultState, stateAddr); err != nil {
		return nil, err
	}

	return a, nil
}

// initAccount creates a program-owned account of space bytes at a derived
// address, paid by payer. An address that was pre-funded is topped up and
// then allocated and assigned; one that is already allocated or owned fails
// with runtime.ErrAccountAlreadyInUse.
func initAccount(ictx *runtime.InvokeContext, payer, account *runtime.AccountInfo, space int, seeds [][]byte) error {
	signer := [][][]byte{seeds}
	required := ictx.Rent().MinimumBalance(space)

	if account.Lamports() == 0 {
		return ictx.InvokeSigned(runtime.CreateAccount(payer.Key, account.Key, required, uint64(space), ProgramID), signer) // #nosec G115 - fixed account size
	}

	if topUp := required - min(required, account.Lamports()); topUp > 0 {
		if err := ictx.Invoke(runtime.Transfer(payer.Key, account.Key, topUp)); err != nil {
			return err
		}
	}
	if err := ictx.InvokeSigned(runtime.Allocate(account.Key, uint64(space)), signer); err != nil { // #nosec G115 - fixed account size
		return err
	}
	return ictx.InvokeSigned(runtime.Assign(account.Key, ProgramID), signer)
}

// loadVaultState deserializes an existing VaultState account.
func loadVaultState(ictx *runtime.InvokeContext, acct *runtime.AccountInfo) (*VaultState, error) {
	if acct.Owner() == pubkey.SystemProgramID && acct.Lamports() == 0 {
		return nil, accountError(ictx, "vault_state", ErrAccountNotInitialized)
	}
	if acct.Owner() != ProgramID {
		return nil, accountError(ictx, "vault_state", ErrAccountOwnedByWrongProgram)
	}
	state, err := UnmarshalVaultState(acct.Data())
	if err != nil {
		ictx.Log("AnchorError caused by account: vault_state. %v", err)
		return nil, err
	}
	return state, nil
}

func checkSigner(ictx *runtime.InvokeContext, name string, acct *runtime.AccountInfo) error {
	if !acct.IsSigner {
		return accountError(ictx, name, ErrAccountNotSigner)
	}
	return nil
}

func checkMut(ictx *runtime.InvokeContext, name string, acct *runtime.AccountInfo) error {
	if !acct.IsWritable {
		return accountError(ictx, name, ErrConstraintMut)
	}
	return nil
}

func checkSystemProgram(ictx *runtime.InvokeContext, acct *runtime.AccountInfo) error {
	if acct.Key != pubkey.SystemProgramID || !acct.Executable() {
		return accountError(ictx, "system_program", ErrInvalidProgramID)
	}
	return nil
}

func checkSeeds(ictx *runtime.InvokeContext, name string, acct *runtime.AccountInfo, expected pubkey.Pubkey) error {
	if acct.Key != expected {
		ictx.Log("AnchorError caused by account: %s. Left: %s Right: %s", name, acct.Key, expected)
		return fmt.Errorf("%w: account %s", ErrConstraintSeeds, name)
	}
	return nil
}

// seedsError reports a stored bump that no longer derives a valid address.
func seedsError(ictx *runtime.InvokeContext, name string, cause error) error {
	ictx.Log("AnchorError caused by account: %s. %v", name, cause)
	return fmt.Errorf("%w: account %s: %v", ErrConstraintSeeds, name, cause)
}

func accountError(ictx *runtime.InvokeContext, name string, perr *ProgramError) error {
	ictx.Log("AnchorError caused by account: %s.", name)
	return fmt.Errorf("%w: account %s", perr, name)
}
