// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package ledger stores accounts: their balance, owner program, and data.
//
// The Store interface abstracts the backend. MemStore keeps everything in a
// map and is the default for tests and the memory ledger; SQLStore persists
// accounts to SQLite through bun. Both apply a batch of updates atomically,
// which is what gives each transaction its all-or-nothing commit.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// Common ledger errors
var (
	// ErrAccountNotFound indicates no account exists at the address
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnknownBackend indicates an unsupported ledger kind in configuration
	ErrUnknownBackend = errors.New("unknown ledger backend")

	// ErrStoreClosed indicates use of a store after Close
	ErrStoreClosed = errors.New("ledger store is closed")
)

// Account is the state held at an address.
type Account struct {
	Lamports   uint64
	Owner      pubkey.Pubkey
	Data       []byte
	Executable bool
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}

// Equal compares every field.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Lamports == b.Lamports &&
		a.Owner == b.Owner &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// Update is one entry of a commit batch. An update whose account holds zero
// lamports removes the account: an address with no balance does not exist.
type Update struct {
	Key     pubkey.Pubkey
	Account *Account
}

// deletes reports whether applying the update removes the account.
func (u Update) deletes() bool {
	return u.Account == nil || u.Account.Lamports == 0
}

// Store abstracts account storage.
//
// Implementations must be safe for concurrent use. Commit must apply the whole
// batch or none of it.
type Store interface {
	// Get returns a copy of the account at key, or ErrAccountNotFound.
	Get(ctx context.Context, key pubkey.Pubkey) (*Account, error)

	// Commit applies a batch of updates atomically.
	Commit(ctx context.Context, updates []Update) error

	// Count returns the number of stored accounts.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Backend kinds accepted by Open
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates a store for the configured backend. path is ignored for the
// memory backend.
func Open(ctx context.Context, kind, path string) (Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemStore(), nil
	case BackendSQLite:
		return OpenSQLStore(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s, %s)", ErrUnknownBackend, kind, BackendMemory, BackendSQLite)
	}
}
