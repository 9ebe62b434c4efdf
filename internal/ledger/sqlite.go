// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// accountModel is the bun row for one account.
type accountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	Pubkey     string `bun:"pubkey,pk"`
	Lamports   int64  `bun:"lamports,notnull"`
	Owner      string `bun:"owner,notnull"`
	Data       []byte `bun:"data"`
	Executable bool   `bun:"executable,notnull"`
}

// SQLStore implements Store on SQLite using bun.
type SQLStore struct {
	db  *sql.DB
	bun *bun.DB
}

// OpenSQLStore opens (creating if needed) the SQLite database at path and
// ensures the accounts table exists.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between
	// concurrently committing transactions.
	sqlDB.SetMaxOpenConns(1)

	bdb := bun.NewDB(sqlDB, sqlitedialect.New())
	if _, err := bdb.NewCreateTable().Model((*accountModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to create accounts table: %w", err)
	}

	return &SQLStore{db: sqlDB, bun: bdb}, nil
}

// Get loads one account.
func (s *SQLStore) Get(ctx context.Context, key pubkey.Pubkey) (*Account, error) {
	var row accountModel
	err := s.bun.NewSelect().Model(&row).Where("pubkey = ?", key.String()).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %s: %w", key, err)
	}
	return row.toAccount()
}

// Commit applies the batch inside one database transaction.
func (s *SQLStore) Commit(ctx context.Context, updates []Update) error {
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, u := range updates {
			if u.deletes() {
				if _, err := tx.NewDelete().Model((*accountModel)(nil)).Where("pubkey = ?", u.Key.String()).Exec(ctx); err != nil {
					return fmt.Errorf("failed to delete account %s: %w", u.Key, err)
				}
				continue
			}

			row, err := modelFromAccount(u.Key, u.Account)
			if err != nil {
				return err
			}
			_, err = tx.NewInsert().Model(row).
				On("CONFLICT (pubkey) DO UPDATE").
				Set("lamports = EXCLUDED.lamports").
				Set("owner = EXCLUDED.owner").
				Set("data = EXCLUDED.data").
				Set("executable = EXCLUDED.executable").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to write account %s: %w", u.Key, err)
			}
		}
		return nil
	})
}

// Count returns the number of rows in the accounts table.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	return s.bun.NewSelect().Model((*accountModel)(nil)).Count(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.bun.Close()
}

func modelFromAccount(key pubkey.Pubkey, a *Account) (*accountModel, error) {
	if a.Lamports > math.MaxInt64 {
		return nil, fmt.Errorf("account %s balance %d exceeds storable range", key, a.Lamports)
	}
	return &accountModel{
		Pubkey:     key.String(),
		Lamports:   int64(a.Lamports),
		Owner:      a.Owner.String(),
		Data:       a.Data,
		Executable: a.Executable,
	}, nil
}

func (m *accountModel) toAccount() (*Account, error) {
	owner, err := pubkey.Parse(m.Owner)
	if err != nil {
		return nil, fmt.Errorf("corrupt owner for account %s: %w", m.Pubkey, err)
	}
	if m.Lamports < 0 {
		return nil, fmt.Errorf("corrupt balance for account %s", m.Pubkey)
	}
	return &Account{
		Lamports:   uint64(m.Lamports),
		Owner:      owner,
		Data:       m.Data,
		Executable: m.Executable,
	}, nil
}
