// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package runtime is a single-node host for builtin programs: it verifies
// and executes signed transactions against a ledger store, with per-account
// locking, cross-program invocation, rent enforcement and atomic commits.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/pubkey"
)

// DefaultLamportsPerSignature is the fee charged per transaction signature.
const DefaultLamportsPerSignature uint64 = 5000

// TransactionResult describes a processed transaction. A result is returned
// for every transaction that was charged a fee, including failed ones.
type TransactionResult struct {
	Signature string
	Slot      uint64
	Fee       uint64
	Logs      []string
	Err       error
}

// Bank executes transactions against a ledger store.
type Bank struct {
	store                ledger.Store
	rent                 Rent
	lamportsPerSignature uint64
	logger               *slog.Logger

	programs map[pubkey.Pubkey]Program
	locks    *accountLocks

	// mu guards the blockhash queue
	mu    sync.Mutex
	queue *blockhashQueue
}

// BankOption is a functional option for configuring the Bank
type BankOption func(*Bank) error

// WithRent sets the rent parameters
func WithRent(rent Rent) BankOption {
	return func(b *Bank) error {
		if rent.ExemptionThreshold < 0 {
			return fmt.Errorf("invalid rent exemption threshold %v", rent.ExemptionThreshold)
		}
		b.rent = rent
		return nil
	}
}

// WithLamportsPerSignature sets the transaction fee rate
func WithLamportsPerSignature(fee uint64) BankOption {
	return func(b *Bank) error {
		b.lamportsPerSignature = fee
		return nil
	}
}

// WithLogger sets the logger for transaction processing
func WithLogger(logger *slog.Logger) BankOption {
	return func(b *Bank) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// WithProgram registers a builtin program
func WithProgram(p Program) BankOption {
	return func(b *Bank) error {
		return b.RegisterProgram(p)
	}
}

// NewBank creates a bank over store. The system program is always registered.
func NewBank(store ledger.Store, opts ...BankOption) (*Bank, error) {
	b := &Bank{
		store:                store,
		rent:                 DefaultRent(),
		lamportsPerSignature: DefaultLamportsPerSignature,
		logger:               slog.Default(),
		programs:             make(map[pubkey.Pubkey]Program),
		locks:                newAccountLocks(),
		queue:                newBlockhashQueue(),
	}
	b.programs[pubkey.SystemProgramID] = SystemProgram{}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// RegisterProgram adds a builtin program. Registering over an existing ID fails.
func (b *Bank) RegisterProgram(p Program) error {
	if _, exists := b.programs[p.ID()]; exists {
		return fmt.Errorf("program %s already registered", p.ID())
	}
	b.programs[p.ID()] = p
	return nil
}

func (b *Bank) program(id pubkey.Pubkey) (Program, bool) {
	p, ok := b.programs[id]
	return p, ok
}

// isWritable demotes builtin program accounts to read-only regardless of
// how the message marks them.
func (b *Bank) isWritable(msg *Message, i int) bool {
	if _, isProgram := b.programs[msg.AccountKeys[i]]; isProgram {
		return false
	}
	return msg.IsWritable(i)
}

// Rent returns the rent parameters.
func (b *Bank) Rent() Rent { return b.rent }

// LamportsPerSignature returns the fee rate.
func (b *Bank) LamportsPerSignature() uint64 { return b.lamportsPerSignature }

// LatestBlockhash returns the blockhash new transactions should reference.
func (b *Bank) LatestBlockhash() Hash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.latest()
}

// Slot returns the current slot.
func (b *Bank) Slot() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.slot
}

// GetAccount returns the committed account at key, or ledger.ErrAccountNotFound.
func (b *Bank) GetAccount(ctx context.Context, key pubkey.Pubkey) (*ledger.Account, error) {
	return b.store.Get(ctx, key)
}

// GetBalance returns the committed balance at key; missing accounts hold zero.
func (b *Bank) GetBalance(ctx context.Context, key pubkey.Pubkey) (uint64, error) {
	acct, err := b.store.Get(ctx, key)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Lamports, nil
}

// Airdrop credits lamports to an account out of thin air. It is the faucet
// for development ledgers.
func (b *Bank) Airdrop(ctx context.Context, to pubkey.Pubkey, lamports uint64) error {
	if _, isProgram := b.programs[to]; isProgram {
		return fmt.Errorf("%w: cannot airdrop to program %s", ErrInvalidArgument, to)
	}
	keys := []pubkey.Pubkey{to}
	if err := b.locks.acquire(ctx, keys, nil); err != nil {
		return err
	}
	defer b.locks.release(keys, nil)

	acct, err := b.loadAccount(ctx, to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(acct.Lamports, lamports, 0)
	if carry != 0 {
		return ErrArithmeticOverflow
	}
	acct.Lamports = sum
	if err := b.store.Commit(ctx, []ledger.Update{{Key: to, Account: acct}}); err != nil {
		return fmt.Errorf("failed to commit airdrop: %w", err)
	}

	b.logger.Debug("airdrop", "to", to.String(), "lamports", lamports)
	return nil
}

// loadAccount returns the staged form of key: builtin programs load as
// executable accounts, unknown addresses as empty system-owned accounts.
func (b *Bank) loadAccount(ctx context.Context, key pubkey.Pubkey) (*ledger.Account, error) {
	if _, ok := b.programs[key]; ok {
		return &ledger.Account{Lamports: 1, Owner: pubkey.NativeLoaderID, Executable: true}, nil
	}
	acct, err := b.store.Get(ctx, key)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return &ledger.Account{Owner: pubkey.SystemProgramID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", key, err)
	}
	return acct, nil
}

// ProcessTransaction verifies, executes and commits tx.
//
// Rejections that happen before the fee is charged (bad signatures, stale
// blockhash, duplicate, unpayable fee) return a nil result. Once the fee is
// charged, a result is returned; if execution failed, only the fee is
// committed and result.Err equals the returned error.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *Transaction) (*TransactionResult, error) {
	msg := &tx.Message
	if err := msg.sanitize(); err != nil {
		return nil, &TransactionError{Instruction: -1, Err: err}
	}
	if err := tx.Verify(); err != nil {
		return nil, &TransactionError{Instruction: -1, Err: err}
	}
	sig := tx.Signatures[0]

	if err := b.reserveSignature(msg.RecentBlockhash, sig); err != nil {
		return nil, &TransactionError{Instruction: -1, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			b.mu.Lock()
			b.queue.forget(msg.RecentBlockhash, sig)
			b.mu.Unlock()
		}
	}()

	var writable, readonly []pubkey.Pubkey
	for i, k := range msg.AccountKeys {
		if b.isWritable(msg, i) {
			writable = append(writable, k)
		} else {
			readonly = append(readonly, k)
		}
	}
	if err := b.locks.acquire(ctx, writable, readonly); err != nil {
		return nil, err
	}
	defer b.locks.release(writable, readonly)

	tc := &txContext{
		bank:     b,
		keys:     msg.AccountKeys,
		accounts: make([]*ledger.Account, len(msg.AccountKeys)),
	}
	for i, k := range msg.AccountKeys {
		acct, err := b.loadAccount(ctx, k)
		if err != nil {
			return nil, err
		}
		tc.accounts[i] = acct
	}
	loaded := make([]*ledger.Account, len(tc.accounts))
	for i, a := range tc.accounts {
		loaded[i] = a.Clone()
	}

	fee := b.lamportsPerSignature * uint64(len(tx.Signatures))
	payer := tc.accounts[0]
	if payer.Lamports < fee {
		return nil, &TransactionError{Instruction: -1, Err: ErrInsufficientFundsForFee}
	}
	payer.Lamports -= fee
	pre, post := b.rent.state(loaded[0].Lamports, len(loaded[0].Data)), b.rent.state(payer.Lamports, len(payer.Data))
	if !transitionAllowed(pre, post, loaded[0].Lamports, payer.Lamports, len(loaded[0].Data), len(payer.Data)) {
		return nil, &TransactionError{Instruction: -1, Err: &AccountError{Account: 0, Err: ErrInsufficientFundsForRent}}
	}
	feePaid := payer.Clone()

	result := &TransactionResult{Signature: tx.ID(), Fee: fee}
	execErr := b.execute(tc, msg)
	if execErr == nil {
		execErr = b.checkRent(tc, msg, loaded)
	}
	result.Logs = tc.logs

	var updates []ledger.Update
	if execErr != nil {
		result.Err = execErr
		if fee > 0 {
			updates = []ledger.Update{{Key: msg.AccountKeys[0], Account: feePaid}}
		}
	} else {
		for i, k := range msg.AccountKeys {
			if !b.isWritable(msg, i) || (i != 0 && tc.accounts[i].Equal(loaded[i])) {
				continue
			}
			updates = append(updates, ledger.Update{Key: k, Account: tc.accounts[i]})
		}
	}

	if len(updates) > 0 {
		if err := b.store.Commit(ctx, updates); err != nil {
			return nil, fmt.Errorf("failed to commit transaction %s: %w", result.Signature, err)
		}
	}
	committed = true

	b.mu.Lock()
	result.Slot = b.queue.slot
	b.queue.advance()
	b.mu.Unlock()

	b.logger.Debug("transaction processed",
		"signature", result.Signature,
		"slot", result.Slot,
		"fee", fee,
		"ok", execErr == nil,
	)
	return result, execErr
}

// reserveSignature rejects stale blockhashes and replays, then records sig.
func (b *Bank) reserveSignature(blockhash Hash, sig Signature) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.queue.isRecent(blockhash) {
		return ErrBlockhashNotFound
	}
	if b.queue.seen(blockhash, sig) {
		return ErrAlreadyProcessed
	}
	b.queue.record(blockhash, sig)
	return nil
}

// execute runs each instruction in order, stopping at the first failure.
func (b *Bank) execute(tc *txContext, msg *Message) error {
	for i, cix := range msg.Instructions {
		programID := msg.AccountKeys[cix.ProgramIDIndex]
		program, ok := b.programs[programID]
		if !ok {
			return &TransactionError{Instruction: i, Err: fmt.Errorf("%w: %s", ErrProgramNotFound, programID)}
		}

		infos := make([]*AccountInfo, len(cix.Accounts))
		for j, idx := range cix.Accounts {
			infos[j] = &AccountInfo{
				Key:        msg.AccountKeys[idx],
				IsSigner:   msg.IsSigner(int(idx)),
				IsWritable: b.isWritable(msg, int(idx)),
				index:      int(idx),
				tx:         tc,
			}
		}

		ictx := newInvokeContext(tc, programID, infos, cix.Data)
		if err := tc.run(program, ictx); err != nil {
			return &TransactionError{Instruction: i, Err: err}
		}
	}
	return nil
}

// checkRent rejects transactions that leave a writable account rent-paying.
func (b *Bank) checkRent(tc *txContext, msg *Message, loaded []*ledger.Account) error {
	for i := range msg.AccountKeys {
		if !b.isWritable(msg, i) {
			continue
		}
		pre, post := loaded[i], tc.accounts[i]
		preState := b.rent.state(pre.Lamports, len(pre.Data))
		postState := b.rent.state(post.Lamports, len(post.Data))
		if !transitionAllowed(preState, postState, pre.Lamports, post.Lamports, len(pre.Data), len(post.Data)) {
			return &TransactionError{Instruction: -1, Err: &AccountError{Account: i, Err: ErrInsufficientFundsForRent}}
		}
	}
	return nil
}
