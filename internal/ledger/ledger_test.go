// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

func testKey(index int) pubkey.Pubkey {
	var pk pubkey.Pubkey
	pk[0] = byte(index)
	pk[1] = byte(index >> 8)
	pk[31] = 0xaa
	return pk
}

// forEachStore runs fn against a fresh instance of every backend
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		s := NewMemStore()
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
		if err != nil {
			t.Fatalf("OpenSQLStore failed: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), testKey(1))
		if !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestStore_CommitAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		acct := &Account{
			Lamports: 1_000_000,
			Owner:    testKey(9),
			Data:     []byte{1, 2, 3, 4},
		}
		if err := s.Commit(ctx, []Update{{Key: testKey(1), Account: acct}}); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		got, err := s.Get(ctx, testKey(1))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Equal(acct) {
			t.Errorf("Get = %+v, want %+v", got, acct)
		}

		// overwrite
		acct.Lamports = 5
		acct.Data = nil
		if err := s.Commit(ctx, []Update{{Key: testKey(1), Account: acct}}); err != nil {
			t.Fatalf("second Commit failed: %v", err)
		}
		got, err = s.Get(ctx, testKey(1))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Lamports != 5 || len(got.Data) != 0 {
			t.Errorf("overwrite not applied: %+v", got)
		}
	})
}

func TestStore_ZeroLamportsDeletes(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Commit(ctx, []Update{
			{Key: testKey(1), Account: &Account{Lamports: 10}},
			{Key: testKey(2), Account: &Account{Lamports: 20}},
		}); err != nil {
			t.Fatal(err)
		}

		if err := s.Commit(ctx, []Update{{Key: testKey(1), Account: &Account{Lamports: 0}}}); err != nil {
			t.Fatal(err)
		}

		if _, err := s.Get(ctx, testKey(1)); !errors.Is(err, ErrAccountNotFound) {
			t.Errorf("zero-lamport account should be removed, got %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Count = %d, want 1", n)
		}
	})
}

func TestStore_GetReturnsCopy(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Commit(ctx, []Update{{Key: testKey(1), Account: &Account{Lamports: 1, Data: []byte{7}}}}); err != nil {
			t.Fatal(err)
		}
		a, _ := s.Get(ctx, testKey(1))
		a.Data[0] = 8
		a.Lamports = 99

		b, _ := s.Get(ctx, testKey(1))
		if b.Data[0] != 7 || b.Lamports != 1 {
			t.Error("mutating a returned account must not change the store")
		}
	})
}

func TestSQLStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	acct := &Account{Lamports: 42, Owner: pubkey.NativeLoaderID, Executable: true}
	if err := s.Commit(ctx, []Update{{Key: testKey(3), Account: acct}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, testKey(3))
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !got.Equal(acct) {
		t.Errorf("reopened account = %+v, want %+v", got, acct)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, BackendMemory, "")
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := s.(*MemStore); !ok {
		t.Errorf("Open(memory) returned %T", s)
	}

	if _, err := Open(ctx, "etcd", ""); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestMemStore_Closed(t *testing.T) {
	s := NewMemStore()
	_ = s.Close()
	if _, err := s.Get(context.Background(), testKey(1)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}
