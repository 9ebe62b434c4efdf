// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package engine provides the core business logic for apvault, independent of any UI.
// It builds, signs and submits vault transactions and reads vault state back
// from the bank.
package engine

import (
	"errors"
	"log/slog"

	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/runtime"
)

// Engine contains all business logic and state, independent of any UI.
type Engine struct {
	Bank *runtime.Bank

	// Keys resolves signing keys by address. Optional.
	Keys keystore.KeyStore

	logger  *slog.Logger
	closers []func() error
}

// EngineOption is a functional option for configuring the Engine
type EngineOption func(*Engine) error

// NewEngine creates a new Engine over bank with the given options.
func NewEngine(bank *runtime.Bank, opts ...EngineOption) (*Engine, error) {
	if bank == nil {
		return nil, ErrNoBank
	}
	e := &Engine{
		Bank:   bank,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// WithLogger sets the logger for submitted transactions
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// WithKeyStore sets the keystore used by Signer
func WithKeyStore(ks keystore.KeyStore) EngineOption {
	return func(e *Engine) error {
		e.Keys = ks
		return nil
	}
}

// withCloser registers fn to run on Close
func withCloser(fn func() error) EngineOption {
	return func(e *Engine) error {
		e.closers = append(e.closers, fn)
		return nil
	}
}

// Close releases the resources opened for the engine, newest first.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
