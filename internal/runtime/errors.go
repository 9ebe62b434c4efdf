// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"errors"
	"fmt"
)

// Transaction-level errors. These reject a transaction before or around
// instruction execution.
var (
	// ErrSanitizeFailure indicates a structurally invalid transaction
	ErrSanitizeFailure = errors.New("transaction failed to sanitize accounts offsets correctly")

	// ErrSignatureFailure indicates a missing or invalid signature
	ErrSignatureFailure = errors.New("transaction did not pass signature verification")

	// ErrBlockhashNotFound indicates the transaction references an unknown or expired blockhash
	ErrBlockhashNotFound = errors.New("blockhash not found")

	// ErrAlreadyProcessed indicates a transaction with the same signature was already seen
	ErrAlreadyProcessed = errors.New("this transaction has already been processed")

	// ErrInsufficientFundsForFee indicates the fee payer cannot pay the fee
	ErrInsufficientFundsForFee = errors.New("insufficient funds for fee")

	// ErrInsufficientFundsForRent indicates an account would be left below the rent-exempt minimum
	ErrInsufficientFundsForRent = errors.New("insufficient funds for rent")

	// ErrTooManyAccounts indicates a message references more accounts than it can index
	ErrTooManyAccounts = errors.New("too many account keys")

	// ErrProgramNotFound indicates an instruction targets an unregistered program
	ErrProgramNotFound = errors.New("attempt to load a program that does not exist")
)

// Instruction-level errors. A program or the runtime's account verification
// returns these; the transaction aborts with no state change except the fee.
var (
	ErrMissingRequiredSignature    = errors.New("missing required signature for instruction")
	ErrMissingAccount              = errors.New("an account required by the instruction is missing")
	ErrNotEnoughAccountKeys        = errors.New("insufficient account keys for instruction")
	ErrInvalidInstructionData      = errors.New("invalid instruction data")
	ErrInvalidArgument             = errors.New("invalid program argument")
	ErrInsufficientFunds           = errors.New("insufficient funds for instruction")
	ErrArithmeticOverflow          = errors.New("program arithmetic overflowed")
	ErrPrivilegeEscalation         = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrCallDepth                   = errors.New("cross-program invocation call depth too deep")
	ErrReentrancyNotAllowed        = errors.New("cross-program invocation reentrancy not allowed for this instruction")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrExternalAccountLamportSpend = errors.New("instruction spent from the balance of an account it does not own")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrReadonlyLamportChange       = errors.New("instruction changed the balance of a read-only account")
	ErrReadonlyDataModified        = errors.New("instruction modified data of a read-only account")
	ErrAccountDataSizeChanged      = errors.New("instruction changed the size of the account data")
	ErrExecutableModified          = errors.New("instruction changed executable bit of an account")
)

// System program errors
var (
	// ErrAccountAlreadyInUse indicates an attempt to create an account that already exists
	ErrAccountAlreadyInUse = errors.New("an account with the same address already exists")

	// ErrResultWithNegativeLamports indicates the source cannot cover the requested lamports
	ErrResultWithNegativeLamports = errors.New("account does not have enough SOL to perform the operation")

	// ErrInvalidProgramID indicates an owner program that cannot be assigned
	ErrInvalidProgramID = errors.New("cannot assign account to this program id")

	// ErrInvalidAccountDataLength indicates a requested allocation beyond the maximum
	ErrInvalidAccountDataLength = errors.New("cannot allocate account data of this length")

	// ErrTransferFromDataAccount indicates a transfer source that carries data
	ErrTransferFromDataAccount = errors.New("transfer: `from` must not carry data")
)

// TransactionError reports why a transaction failed. Instruction is the index
// of the failing instruction, or -1 when the failure is not tied to one.
type TransactionError struct {
	Instruction int
	Err         error
}

func (e *TransactionError) Error() string {
	if e.Instruction < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("error processing instruction %d: %v", e.Instruction, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// AccountError ties an error to the account key index it concerns.
type AccountError struct {
	Account int
	Err     error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("%v (account index %d)", e.Err, e.Account)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}
