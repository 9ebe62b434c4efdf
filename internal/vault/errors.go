// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import "fmt"

// ProgramError is a failure with a stable numeric code, surfaced to clients
// through the transaction error.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Instruction errors
var (
	ErrInstructionMissing           = &ProgramError{100, "InstructionMissing", "8 byte instruction identifier not provided"}
	ErrInstructionFallbackNotFound  = &ProgramError{101, "InstructionFallbackNotFound", "Fallback functions are not supported"}
	ErrInstructionDidNotDeserialize = &ProgramError{102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction"}
)

// Constraint errors
var (
	ErrConstraintMut    = &ProgramError{2000, "ConstraintMut", "A mut constraint was violated"}
	ErrConstraintSigner = &ProgramError{2002, "ConstraintSigner", "A signer constraint was violated"}

	// ErrConstraintSeeds is the derivation-mismatch failure: an account's
	// address does not match the one its seeds produce.
	ErrConstraintSeeds = &ProgramError{2006, "ConstraintSeeds", "A seeds constraint was violated"}
)

// Account errors
var (
	ErrAccountDiscriminatorNotFound = &ProgramError{3001, "AccountDiscriminatorNotFound", "No 8 byte discriminator was found on the account"}
	ErrAccountDiscriminatorMismatch = &ProgramError{3002, "AccountDiscriminatorMismatch", "8 byte discriminator did not match what was expected"}
	ErrAccountDidNotDeserialize     = &ProgramError{3003, "AccountDidNotDeserialize", "Failed to deserialize the account"}
	ErrAccountNotEnoughKeys         = &ProgramError{3005, "AccountNotEnoughKeys", "Not enough account keys given to the instruction"}
	ErrAccountOwnedByWrongProgram   = &ProgramError{3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected"}
	ErrInvalidProgramID             = &ProgramError{3008, "InvalidProgramId", "Program ID was not as expected"}
	ErrAccountNotSigner             = &ProgramError{3010, "AccountNotSigner", "The given account did not sign"}
	ErrAccountNotInitialized        = &ProgramError{3012, "AccountNotInitialized", "The program expected this account to be already initialized"}
)

// errorCodes indexes every ProgramError by code for ErrorByCode.
var errorCodes = map[uint32]*ProgramError{}

func init() {
	for _, e := range []*ProgramError{
		ErrInstructionMissing, ErrInstructionFallbackNotFound, ErrInstructionDidNotDeserialize,
		ErrConstraintMut, ErrConstraintSigner, ErrConstraintSeeds,
		ErrAccountDiscriminatorNotFound, ErrAccountDiscriminatorMismatch, ErrAccountDidNotDeserialize,
		ErrAccountNotEnoughKeys, ErrAccountOwnedByWrongProgram, ErrInvalidProgramID,
		ErrAccountNotSigner, ErrAccountNotInitialized,
	} {
		errorCodes[e.Code] = e
	}
}

// ErrorByCode returns the ProgramError with the given code.
func ErrorByCode(code uint32) (*ProgramError, bool) {
	e, ok := errorCodes[code]
	return e, ok
}
