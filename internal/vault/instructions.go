// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

// Client-side instruction builders

import (
	"encoding/binary"

	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
)

// InitializeAccounts lists the accounts of an initialize instruction.
type InitializeAccounts struct {
	User       pubkey.Pubkey
	VaultState pubkey.Pubkey
	Vault      pubkey.Pubkey
}

// DepositAccounts lists the accounts of a deposit instruction.
type DepositAccounts struct {
	User       pubkey.Pubkey
	Vault      pubkey.Pubkey
	VaultState pubkey.Pubkey
}

// NewInitializeInstruction derives the user's accounts and builds initialize.
func NewInitializeInstruction(user pubkey.Pubkey) (runtime.Instruction, error) {
	state, _, err := StateAddress(user)
	if err != nil {
		return runtime.Instruction{}, err
	}
	vault, _, err := VaultAddress(state)
	if err != nil {
		return runtime.Instruction{}, err
	}
	return InitializeAccounts{User: user, VaultState: state, Vault: vault}.Instruction(), nil
}

// Instruction builds initialize over explicit accounts.
func (a InitializeAccounts) Instruction() runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.Writable(a.User, true),
			runtime.Writable(a.VaultState, false),
			runtime.Writable(a.Vault, false),
			runtime.Readonly(pubkey.SystemProgramID, false),
		},
		Data: append([]byte(nil), initializeDiscriminator[:]...),
	}
}

// NewDepositInstruction derives the user's accounts with canonical bumps and
// builds deposit.
func NewDepositInstruction(user pubkey.Pubkey, amount uint64) (runtime.Instruction, error) {
	state, _, err := StateAddress(user)
	if err != nil {
		return runtime.Instruction{}, err
	}
	vault, _, err := VaultAddress(state)
	if err != nil {
		return runtime.Instruction{}, err
	}
	return DepositAccounts{User: user, Vault: vault, VaultState: state}.Instruction(amount), nil
}

// Instruction builds deposit over explicit accounts.
func (a DepositAccounts) Instruction(amount uint64) runtime.Instruction {
	data := make([]byte, 0, discriminatorSize+8)
	data = append(data, depositDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	return runtime.Instruction{
		ProgramID: ProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.Writable(a.User, true),
			runtime.Writable(a.Vault, false),
			runtime.Readonly(a.VaultState, false),
			runtime.Readonly(pubkey.SystemProgramID, false),
		},
		Data: data,
	}
}
