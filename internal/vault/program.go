// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package vault implements the vault program: every user gets a VaultState
// record at ["state", user] and a holding account at ["vault", state], both
// program-derived. Initialize creates them; Deposit moves lamports from the
// user into the holding account after re-deriving its address from the
// bump recorded in VaultState.
package vault

import (
	"encoding/binary"
	"errors"

	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
)

// ProgramID is the vault program's address.
var ProgramID = pubkey.MustParse("7D9c2HFgZwyZxjQYujKZ4QZmzXihrBKqVVvzDC8jeNPw")

// Program is the vault program, registered with a runtime.Bank.
type Program struct{}

// New returns the vault program.
func New() *Program {
	return &Program{}
}

// ID returns ProgramID.
func (p *Program) ID() pubkey.Pubkey { return ProgramID }

// Process dispatches on the 8-byte instruction discriminator.
func (p *Program) Process(ictx *runtime.InvokeContext) error {
	data := ictx.Data()
	if len(data) < discriminatorSize {
		return ErrInstructionMissing
	}

	var disc [8]byte
	copy(disc[:], data[:discriminatorSize])
	args := data[discriminatorSize:]

	var err error
	switch disc {
	case initializeDiscriminator:
		ictx.Log("Instruction: Initialize")
		err = p.initialize(ictx)
	case depositDiscriminator:
		ictx.Log("Instruction: Deposit")
		// Bytes after the amount are ignored.
		if len(args) < 8 {
			return ErrInstructionDidNotDeserialize
		}
		err = p.deposit(ictx, binary.LittleEndian.Uint64(args[:8]))
	default:
		return ErrInstructionFallbackNotFound
	}

	var perr *ProgramError
	if errors.As(err, &perr) {
		ictx.Log("Error Code: %s. Error Number: %d. Error Message: %s.", perr.Name, perr.Code, perr.Msg)
	}
	return err
}
