// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"
	"sync"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// MemStore implements Store with an in-memory map
type MemStore struct {
	mu       sync.RWMutex
	accounts map[pubkey.Pubkey]*Account
	closed   bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[pubkey.Pubkey]*Account)}
}

// Get returns a copy of the stored account.
func (m *MemStore) Get(_ context.Context, key pubkey.Pubkey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	acct, ok := m.accounts[key]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// Commit applies the batch under a single write lock.
func (m *MemStore) Commit(_ context.Context, updates []Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	for _, u := range updates {
		if u.deletes() {
			delete(m.accounts, u.Key)
			continue
		}
		m.accounts[u.Key] = u.Account.Clone()
	}
	return nil
}

// Count returns the number of accounts.
func (m *MemStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.accounts), nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
