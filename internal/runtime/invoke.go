// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/pubkey"
)

// MaxInvokeDepth bounds the program call stack, the top-level call included.
const MaxInvokeDepth = 5

// Program is a builtin program the bank dispatches instructions to.
type Program interface {
	// ID returns the program's address.
	ID() pubkey.Pubkey

	// Process executes one instruction. Account changes are verified
	// against the runtime's ownership rules after Process returns.
	Process(ictx *InvokeContext) error
}

// txContext is the working set of one transaction: every account it
// references, staged in memory until the bank commits or discards them.
type txContext struct {
	bank     *Bank
	keys     []pubkey.Pubkey
	accounts []*ledger.Account
	stack    []pubkey.Pubkey
	logs     []string
}

func (t *txContext) logf(format string, args ...any) {
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// run executes program with ictx on top of the call stack.
func (t *txContext) run(program Program, ictx *InvokeContext) error {
	t.stack = append(t.stack, program.ID())
	defer func() { t.stack = t.stack[:len(t.stack)-1] }()

	t.logf("Program %s invoke [%d]", program.ID(), len(t.stack))
	err := program.Process(ictx)
	if err == nil {
		err = ictx.verify()
	}
	if err != nil {
		t.logf("Program %s failed: %v", program.ID(), err)
		return err
	}
	t.logf("Program %s success", program.ID())
	return nil
}

// AccountInfo is a program's view of one account in its instruction.
// Mutations apply to the transaction's staged copy.
type AccountInfo struct {
	Key        pubkey.Pubkey
	IsSigner   bool
	IsWritable bool

	index int
	tx    *txContext
}

func (a *AccountInfo) account() *ledger.Account {
	return a.tx.accounts[a.index]
}

// Lamports returns the balance.
func (a *AccountInfo) Lamports() uint64 { return a.account().Lamports }

// Owner returns the owning program.
func (a *AccountInfo) Owner() pubkey.Pubkey { return a.account().Owner }

// Data returns the account data. Writes through the slice are visible to
// the runtime's verification.
func (a *AccountInfo) Data() []byte { return a.account().Data }

// Executable reports whether the account is a program.
func (a *AccountInfo) Executable() bool { return a.account().Executable }

// SetLamports overwrites the balance.
func (a *AccountInfo) SetLamports(v uint64) { a.account().Lamports = v }

// AddLamports credits the balance.
func (a *AccountInfo) AddLamports(v uint64) error {
	sum, carry := bits.Add64(a.account().Lamports, v, 0)
	if carry != 0 {
		return ErrArithmeticOverflow
	}
	a.account().Lamports = sum
	return nil
}

// SubLamports debits the balance.
func (a *AccountInfo) SubLamports(v uint64) error {
	if a.account().Lamports < v {
		return ErrInsufficientFunds
	}
	a.account().Lamports -= v
	return nil
}

// SetOwner reassigns the account to another program.
func (a *AccountInfo) SetOwner(owner pubkey.Pubkey) { a.account().Owner = owner }

// Realloc resizes the data to n zero-filled bytes, keeping any prefix.
func (a *AccountInfo) Realloc(n int) {
	data := make([]byte, n)
	copy(data, a.account().Data)
	a.account().Data = data
}

// SetData replaces the data with a copy of data.
func (a *AccountInfo) SetData(data []byte) {
	a.account().Data = append([]byte(nil), data...)
}

// IsEmpty reports an account that holds nothing: no balance, no data, and
// owned by the system program.
func (a *AccountInfo) IsEmpty() bool {
	acct := a.account()
	return acct.Lamports == 0 && len(acct.Data) == 0 && acct.Owner == pubkey.SystemProgramID
}

// InvokeContext is passed to a program for one instruction.
type InvokeContext struct {
	tx        *txContext
	programID pubkey.Pubkey
	accounts  []*AccountInfo
	data      []byte

	pre      map[int]*ledger.Account
	writable map[int]bool
}

func newInvokeContext(tx *txContext, programID pubkey.Pubkey, accounts []*AccountInfo, data []byte) *InvokeContext {
	c := &InvokeContext{
		tx:        tx,
		programID: programID,
		accounts:  accounts,
		data:      data,
		writable:  make(map[int]bool, len(accounts)),
	}
	for _, a := range accounts {
		c.writable[a.index] = c.writable[a.index] || a.IsWritable
	}
	c.snapshot()
	return c
}

// ProgramID returns the executing program.
func (c *InvokeContext) ProgramID() pubkey.Pubkey { return c.programID }

// Accounts returns the instruction's accounts in order.
func (c *InvokeContext) Accounts() []*AccountInfo { return c.accounts }

// Data returns the instruction data.
func (c *InvokeContext) Data() []byte { return c.data }

// Rent returns the bank's rent parameters.
func (c *InvokeContext) Rent() Rent { return c.tx.bank.rent }

// StackHeight returns the current call depth, 1 for top-level instructions.
func (c *InvokeContext) StackHeight() int { return len(c.tx.stack) }

// Log appends a program log line to the transaction result.
func (c *InvokeContext) Log(format string, args ...any) {
	c.tx.logf("Program log: "+format, args...)
}

// Invoke calls another program with the caller's own signers.
func (c *InvokeContext) Invoke(ix Instruction) error {
	return c.InvokeSigned(ix, nil)
}

// InvokeSigned calls another program. Each seed set is replayed through
// CreateProgramAddress under the calling program's ID; the resulting
// addresses count as signers for the callee. This is the only way an account
// with no private key can authorize anything.
func (c *InvokeContext) InvokeSigned(ix Instruction, signerSeeds [][][]byte) error {
	stack := c.tx.stack
	if len(stack) >= MaxInvokeDepth {
		return ErrCallDepth
	}
	for i, p := range stack {
		if p == ix.ProgramID && i != len(stack)-1 {
			return ErrReentrancyNotAllowed
		}
	}

	pdaSigners := make(map[pubkey.Pubkey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := pubkey.CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return err
		}
		pdaSigners[addr] = true
	}

	if _, _, _, ok := c.find(ix.ProgramID); !ok {
		return fmt.Errorf("%w: program %s", ErrMissingAccount, ix.ProgramID)
	}
	callee, ok := c.tx.bank.program(ix.ProgramID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, ix.ProgramID)
	}

	infos := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		index, signer, writable, ok := c.find(meta.Pubkey)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, meta.Pubkey)
		}
		if meta.IsWritable && !writable {
			return fmt.Errorf("%w: %s writable privilege escalated", ErrPrivilegeEscalation, meta.Pubkey)
		}
		if meta.IsSigner && !signer && !pdaSigners[meta.Pubkey] {
			return fmt.Errorf("%w: %s signer privilege escalated", ErrPrivilegeEscalation, meta.Pubkey)
		}
		infos[i] = &AccountInfo{
			Key:        meta.Pubkey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			index:      index,
			tx:         c.tx,
		}
	}

	// Changes the caller made so far are judged against the caller's
	// ownership before the callee sees them.
	if err := c.verify(); err != nil {
		return err
	}

	sub := newInvokeContext(c.tx, ix.ProgramID, infos, ix.Data)
	if err := c.tx.run(callee, sub); err != nil {
		return err
	}

	c.snapshot()
	return nil
}

// find returns the merged privileges of key among the caller's accounts.
func (c *InvokeContext) find(key pubkey.Pubkey) (index int, signer, writable, ok bool) {
	for _, a := range c.accounts {
		if a.Key != key {
			continue
		}
		index = a.index
		signer = signer || a.IsSigner
		writable = writable || a.IsWritable
		ok = true
	}
	return index, signer, writable, ok
}

func (c *InvokeContext) snapshot() {
	c.pre = make(map[int]*ledger.Account, len(c.writable))
	for index := range c.writable {
		c.pre[index] = c.tx.accounts[index].Clone()
	}
}

// verify checks every change since the last snapshot against the
// ownership rules for this program, and that no lamports were created or
// destroyed.
func (c *InvokeContext) verify() error {
	var preHi, preLo, postHi, postLo, carry uint64
	for index, pre := range c.pre {
		post := c.tx.accounts[index]
		if err := verifyAccount(c.programID, c.writable[index], pre, post); err != nil {
			return &AccountError{Account: index, Err: err}
		}
		preLo, carry = bits.Add64(preLo, pre.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, post.Lamports, 0)
		postHi += carry
	}
	if preHi != postHi || preLo != postLo {
		return ErrUnbalancedInstruction
	}
	return nil
}

func verifyAccount(program pubkey.Pubkey, writable bool, pre, post *ledger.Account) error {
	if pre.Executable != post.Executable {
		return ErrExecutableModified
	}

	if pre.Owner != post.Owner {
		if !writable || pre.Owner != program || pre.Executable || !isZeroed(post.Data) {
			return ErrModifiedProgramID
		}
	}

	if post.Lamports < pre.Lamports && pre.Owner != program {
		return ErrExternalAccountLamportSpend
	}
	if post.Lamports != pre.Lamports && !writable {
		return ErrReadonlyLamportChange
	}

	if len(pre.Data) != len(post.Data) {
		if !writable || pre.Owner != program {
			return ErrAccountDataSizeChanged
		}
	} else if !bytes.Equal(pre.Data, post.Data) {
		if !writable {
			return ErrReadonlyDataModified
		}
		if pre.Owner != program {
			return ErrExternalAccountDataModified
		}
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
