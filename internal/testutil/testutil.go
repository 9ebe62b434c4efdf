// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package testutil provides reusable test infrastructure and utilities.
package testutil

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
	"github.com/aplane-algo/apvault/internal/vault"
)

// LamportsPerSOL is one SOL in lamports.
const LamportsPerSOL = 1_000_000_000

// TestKey represents a generated test key pair
type TestKey struct {
	Address    pubkey.Pubkey
	PrivateKey ed25519.PrivateKey
}

// GenerateTestKey generates a random ed25519 key pair for testing.
func GenerateTestKey(t *testing.T) *TestKey {
	t.Helper()
	addr, priv, err := pubkey.NewKeypair()
	if err != nil {
		t.Fatalf("Failed to generate keypair: %v", err)
	}
	return &TestKey{Address: addr, PrivateKey: priv}
}

// NewBank returns an in-memory bank with the vault program registered.
func NewBank(t *testing.T, opts ...runtime.BankOption) *runtime.Bank {
	t.Helper()
	opts = append([]runtime.BankOption{runtime.WithProgram(vault.New())}, opts...)
	bank, err := runtime.NewBank(ledger.NewMemStore(), opts...)
	if err != nil {
		t.Fatalf("Failed to create bank: %v", err)
	}
	return bank
}

// FundedKey generates a key pair and airdrops lamports to it.
func FundedKey(t *testing.T, bank *runtime.Bank, lamports uint64) *TestKey {
	t.Helper()
	key := GenerateTestKey(t)
	if lamports > 0 {
		if err := bank.Airdrop(context.Background(), key.Address, lamports); err != nil {
			t.Fatalf("Failed to airdrop: %v", err)
		}
	}
	return key
}

// SetupTestDataDir creates a temporary data directory and points
// APVAULT_DATA at it for the duration of the test.
func SetupTestDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "apvault")
	t.Setenv("APVAULT_DATA", dir)
	return dir
}
