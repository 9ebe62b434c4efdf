// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/pubkey"
)

// Airdrop credits lamports to address from the development faucet.
func (e *Engine) Airdrop(ctx context.Context, address pubkey.Pubkey, lamports uint64) error {
	if err := e.Bank.Airdrop(ctx, address, lamports); err != nil {
		return fmt.Errorf("airdrop failed: %w", err)
	}
	return nil
}

// Balance returns the committed balance of address.
func (e *Engine) Balance(ctx context.Context, address pubkey.Pubkey) (uint64, error) {
	return e.Bank.GetBalance(ctx, address)
}

// Signer returns the private key for address from the keystore.
// Caller is responsible for zeroing it after use.
func (e *Engine) Signer(ctx context.Context, address pubkey.Pubkey) (ed25519.PrivateKey, error) {
	if e.Keys == nil {
		return nil, ErrNoKeyStore
	}
	key, err := e.Keys.Get(ctx, address)
	if errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoSigningKey, address)
	}
	return key, err
}
