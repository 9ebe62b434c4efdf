// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

// Vault transaction methods

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
	"github.com/aplane-algo/apvault/internal/vault"
)

// SubmitResult describes a transaction the bank charged a fee for.
type SubmitResult struct {
	Signature string
	Slot      uint64
	Fee       uint64
	Logs      []string
}

// VaultInfo is an owner's vault as recorded on the ledger.
type VaultInfo struct {
	Owner        pubkey.Pubkey
	StateAddress pubkey.Pubkey
	VaultAddress pubkey.Pubkey
	StateBump    uint8
	VaultBump    uint8

	StateLamports uint64
	VaultLamports uint64

	// Deposited is the vault balance above its rent-exempt reserve.
	Deposited uint64
}

// Initialize creates the signer's vault state and vault accounts.
func (e *Engine) Initialize(ctx context.Context, signer ed25519.PrivateKey) (*SubmitResult, error) {
	ix, err := vault.NewInitializeInstruction(pubkey.Of(signer))
	if err != nil {
		return nil, err
	}
	return e.submit(ctx, signer, ix)
}

// Deposit moves amount lamports from the signer into their vault.
func (e *Engine) Deposit(ctx context.Context, signer ed25519.PrivateKey, amount uint64) (*SubmitResult, error) {
	ix, err := vault.NewDepositInstruction(pubkey.Of(signer), amount)
	if err != nil {
		return nil, err
	}
	result, err := e.submit(ctx, signer, ix)
	if errors.Is(err, vault.ErrAccountNotInitialized) {
		return result, fmt.Errorf("%w: %w", ErrVaultNotInitialized, err)
	}
	return result, err
}

// submit signs ix with signer as fee payer and processes it. The result is
// non-nil whenever a fee was charged, so its logs survive a failed execution.
func (e *Engine) submit(ctx context.Context, signer ed25519.PrivateKey, ix runtime.Instruction) (*SubmitResult, error) {
	payer := pubkey.Of(signer)
	tx, err := runtime.NewTransaction(payer, e.Bank.LatestBlockhash(), ix)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := tx.Sign(signer); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	res, err := e.Bank.ProcessTransaction(ctx, tx)
	var result *SubmitResult
	if res != nil {
		result = &SubmitResult{
			Signature: res.Signature,
			Slot:      res.Slot,
			Fee:       res.Fee,
			Logs:      res.Logs,
		}
	}
	if err != nil {
		e.logger.Debug("transaction failed", "payer", payer.String(), "error", err)
		return result, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	e.logger.Debug("transaction confirmed", "signature", result.Signature, "slot", result.Slot)
	return result, nil
}

// Vault reads owner's vault. The vault address is re-derived from the bump
// stored in the state account, the same way deposits resolve it.
func (e *Engine) Vault(ctx context.Context, owner pubkey.Pubkey) (*VaultInfo, error) {
	stateAddr, _, err := vault.StateAddress(owner)
	if err != nil {
		return nil, err
	}

	acct, err := e.Bank.GetAccount(ctx, stateAddr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotInitialized, owner)
	}
	if err != nil {
		return nil, err
	}
	if acct.Owner != vault.ProgramID {
		return nil, fmt.Errorf("%w: state account %s owned by %s", ErrVaultCorrupt, stateAddr, acct.Owner)
	}
	state, err := vault.UnmarshalVaultState(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultCorrupt, err)
	}

	vaultAddr, err := vault.VaultAddressWithBump(stateAddr, state.VaultBump)
	if err != nil {
		return nil, fmt.Errorf("%w: stored vault bump %d: %w", ErrVaultCorrupt, state.VaultBump, err)
	}
	vaultLamports, err := e.Bank.GetBalance(ctx, vaultAddr)
	if err != nil {
		return nil, err
	}

	reserve := e.Bank.Rent().MinimumBalance(0)
	return &VaultInfo{
		Owner:         owner,
		StateAddress:  stateAddr,
		VaultAddress:  vaultAddr,
		StateBump:     state.StateBump,
		VaultBump:     state.VaultBump,
		StateLamports: acct.Lamports,
		VaultLamports: vaultLamports,
		Deposited:     vaultLamports - min(reserve, vaultLamports),
	}, nil
}
