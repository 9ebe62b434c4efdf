// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aplane-algo/apvault/internal/fsutil"
	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/runtime"
	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/vault"
)

// NewInitializedEngine opens the configured ledger, builds a bank with the
// vault program registered and attaches the file keystore. This is the
// preferred way to create an Engine for a CLI session. Close releases the
// ledger.
func NewInitializedEngine(ctx context.Context, config util.Config, passphrase []byte) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Ledger == util.LedgerSQLite {
		if err := fsutil.MkdirAll(filepath.Dir(config.LedgerPath)); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	store, err := ledger.Open(ctx, config.Ledger, config.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	accounts, err := store.Count(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	util.Debug("Ledger opened", "backend", config.Ledger, "accounts", accounts)

	logger := util.Logger
	bank, err := runtime.NewBank(store,
		runtime.WithRent(runtime.Rent{
			LamportsPerByteYear: config.Rent.LamportsPerByteYear,
			ExemptionThreshold:  config.Rent.ExemptionThreshold,
		}),
		runtime.WithLamportsPerSignature(config.LamportsPerSignature),
		runtime.WithLogger(logger),
		runtime.WithProgram(vault.New()),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}

	keys := keystore.NewFileKeyStore(config.KeysDir, passphrase)

	eng, err := NewEngine(bank,
		WithLogger(logger),
		WithKeyStore(keys),
		withCloser(store.Close),
		withCloser(func() error { keys.Close(); return nil }),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}
