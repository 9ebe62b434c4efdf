// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"context"
	"sync"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// accountLocks grants a transaction all of its account locks at once.
// Writable accounts are held exclusively, read-only accounts are shared.
// Transactions over disjoint accounts never wait on each other.
type accountLocks struct {
	mu       sync.Mutex
	write    map[pubkey.Pubkey]struct{}
	read     map[pubkey.Pubkey]int
	released chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		write:    make(map[pubkey.Pubkey]struct{}),
		read:     make(map[pubkey.Pubkey]int),
		released: make(chan struct{}),
	}
}

// acquire blocks until every lock is available or ctx is done.
func (l *accountLocks) acquire(ctx context.Context, writable, readonly []pubkey.Pubkey) error {
	for {
		l.mu.Lock()
		if l.available(writable, readonly) {
			for _, k := range writable {
				l.write[k] = struct{}{}
			}
			for _, k := range readonly {
				l.read[k]++
			}
			l.mu.Unlock()
			return nil
		}
		wait := l.released
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// available must be called with mu held.
func (l *accountLocks) available(writable, readonly []pubkey.Pubkey) bool {
	for _, k := range writable {
		if _, held := l.write[k]; held {
			return false
		}
		if l.read[k] > 0 {
			return false
		}
	}
	for _, k := range readonly {
		if _, held := l.write[k]; held {
			return false
		}
	}
	return true
}

func (l *accountLocks) release(writable, readonly []pubkey.Pubkey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range writable {
		delete(l.write, k)
	}
	for _, k := range readonly {
		if l.read[k] <= 1 {
			delete(l.read, k)
		} else {
			l.read[k]--
		}
	}
	close(l.released)
	l.released = make(chan struct{})
}
