// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keystore stores the ed25519 keypairs that sign vault transactions.
//
// Only user keys live here. Vault and state accounts are program-derived and
// have no private key to store.
package keystore

import (
	"context"
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// Common keystore errors
var (
	// ErrKeyNotFound indicates the requested key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a key already exists at the address
	ErrKeyExists = errors.New("key already exists")

	// ErrInvalidPassphrase indicates the passphrase is incorrect
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrInvalidMnemonic indicates a mnemonic that does not decode to a key
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// KeyMetadata contains non-sensitive information about a stored key
type KeyMetadata struct {
	Address   pubkey.Pubkey
	CreatedAt time.Time

	// Encrypted is true when the key file is sealed under a passphrase
	Encrypted bool

	FilePath string
}

// KeyStore abstracts key storage and retrieval.
//
// Implementations must be safe for concurrent use.
type KeyStore interface {
	// List returns metadata for all stored keys, sorted by address.
	List(ctx context.Context) ([]KeyMetadata, error)

	// Get returns the private key for address.
	// Caller is responsible for zeroing the returned key after use.
	Get(ctx context.Context, address pubkey.Pubkey) (ed25519.PrivateKey, error)

	// GetMetadata returns metadata for a single key without decrypting it.
	GetMetadata(ctx context.Context, address pubkey.Pubkey) (*KeyMetadata, error)

	// Put stores key. Returns ErrKeyExists if its address is taken.
	Put(ctx context.Context, key ed25519.PrivateKey) (*KeyMetadata, error)

	// Generate creates and stores a fresh keypair.
	Generate(ctx context.Context) (*KeyMetadata, error)

	// Import stores the keypair encoded by a 25-word mnemonic.
	Import(ctx context.Context, words string) (*KeyMetadata, error)

	// Export returns the 25-word mnemonic of a stored key.
	Export(ctx context.Context, address pubkey.Pubkey) (string, error)

	// Delete removes a key from the store.
	// Returns ErrKeyNotFound if the key does not exist.
	Delete(ctx context.Context, address pubkey.Pubkey) error
}
