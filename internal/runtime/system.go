// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

// System program: account creation, ownership and native transfers

import (
	"encoding/binary"
	"fmt"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// MaxPermittedDataLength is the largest account the system program allocates.
const MaxPermittedDataLength = 10 * 1024 * 1024

// SystemInstruction tags the first four bytes of system instruction data.
type SystemInstruction uint32

const (
	SystemCreateAccount SystemInstruction = 0
	SystemAssign        SystemInstruction = 1
	SystemTransfer      SystemInstruction = 2
	SystemAllocate      SystemInstruction = 8
)

// SystemProgram owns wallet accounts. It creates accounts, assigns them to
// other programs and moves lamports between accounts it owns.
type SystemProgram struct{}

// ID returns the system program address.
func (SystemProgram) ID() pubkey.Pubkey { return pubkey.SystemProgramID }

// Process decodes and executes one system instruction.
func (SystemProgram) Process(ictx *InvokeContext) error {
	data := ictx.Data()
	if len(data) < 4 {
		return ErrInvalidInstructionData
	}
	tag := SystemInstruction(binary.LittleEndian.Uint32(data))
	body := data[4:]
	accounts := ictx.Accounts()

	switch tag {
	case SystemCreateAccount:
		if len(body) != 8+8+pubkey.Size {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys
		}
		lamports := binary.LittleEndian.Uint64(body[0:8])
		space := binary.LittleEndian.Uint64(body[8:16])
		owner, _ := pubkey.FromBytes(body[16:48])
		return createAccount(ictx, accounts[0], accounts[1], lamports, space, owner)

	case SystemAssign:
		if len(body) != pubkey.Size {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 1 {
			return ErrNotEnoughAccountKeys
		}
		owner, _ := pubkey.FromBytes(body)
		return assign(ictx, accounts[0], owner)

	case SystemTransfer:
		if len(body) != 8 {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccountKeys
		}
		return transfer(ictx, accounts[0], accounts[1], binary.LittleEndian.Uint64(body))

	case SystemAllocate:
		if len(body) != 8 {
			return ErrInvalidInstructionData
		}
		if len(accounts) < 1 {
			return ErrNotEnoughAccountKeys
		}
		return allocate(ictx, accounts[0], binary.LittleEndian.Uint64(body))

	default:
		return fmt.Errorf("%w: unsupported system instruction %d", ErrInvalidInstructionData, tag)
	}
}

func createAccount(ictx *InvokeContext, from, to *AccountInfo, lamports, space uint64, owner pubkey.Pubkey) error {
	if to.Lamports() > 0 {
		ictx.Log("Create Account: account %s already in use", to.Key)
		return ErrAccountAlreadyInUse
	}
	if err := allocate(ictx, to, space); err != nil {
		return err
	}
	if err := assign(ictx, to, owner); err != nil {
		return err
	}
	return transfer(ictx, from, to, lamports)
}

func allocate(ictx *InvokeContext, account *AccountInfo, space uint64) error {
	if !account.IsSigner {
		ictx.Log("Allocate: 'to' account %s must sign", account.Key)
		return ErrMissingRequiredSignature
	}
	if len(account.Data()) > 0 || account.Owner() != pubkey.SystemProgramID {
		ictx.Log("Allocate: account %s already in use", account.Key)
		return ErrAccountAlreadyInUse
	}
	if space > MaxPermittedDataLength {
		ictx.Log("Allocate: requested %d, max allowed %d", space, MaxPermittedDataLength)
		return ErrInvalidAccountDataLength
	}
	account.Realloc(int(space)) // #nosec G115 - bounded by MaxPermittedDataLength
	return nil
}

func assign(ictx *InvokeContext, account *AccountInfo, owner pubkey.Pubkey) error {
	if account.Owner() == owner {
		return nil
	}
	if !account.IsSigner {
		ictx.Log("Assign: account %s must sign", account.Key)
		return ErrMissingRequiredSignature
	}
	account.SetOwner(owner)
	return nil
}

func transfer(ictx *InvokeContext, from, to *AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		ictx.Log("Transfer: `from` account %s must sign", from.Key)
		return ErrMissingRequiredSignature
	}
	if len(from.Data()) > 0 {
		return ErrTransferFromDataAccount
	}
	if lamports > from.Lamports() {
		ictx.Log("Transfer: insufficient lamports %d, need %d", from.Lamports(), lamports)
		return ErrResultWithNegativeLamports
	}
	if err := from.SubLamports(lamports); err != nil {
		return err
	}
	return to.AddLamports(lamports)
}

func systemData(tag SystemInstruction, size int) []byte {
	data := make([]byte, 4, 4+size)
	binary.LittleEndian.PutUint32(data, uint32(tag))
	return data
}

// CreateAccount builds an instruction that funds and allocates a new account
// and assigns it to owner. Both from and to must sign.
func CreateAccount(from, to pubkey.Pubkey, lamports, space uint64, owner pubkey.Pubkey) Instruction {
	data := systemData(SystemCreateAccount, 8+8+pubkey.Size)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)
	return Instruction{
		ProgramID: pubkey.SystemProgramID,
		Accounts:  []AccountMeta{Writable(from, true), Writable(to, true)},
		Data:      data,
	}
}

// Transfer builds a native transfer instruction.
func Transfer(from, to pubkey.Pubkey, lamports uint64) Instruction {
	data := systemData(SystemTransfer, 8)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	return Instruction{
		ProgramID: pubkey.SystemProgramID,
		Accounts:  []AccountMeta{Writable(from, true), Writable(to, false)},
		Data:      data,
	}
}

// Assign builds an instruction that changes an account's owner.
func Assign(account, owner pubkey.Pubkey) Instruction {
	data := systemData(SystemAssign, pubkey.Size)
	data = append(data, owner[:]...)
	return Instruction{
		ProgramID: pubkey.SystemProgramID,
		Accounts:  []AccountMeta{Writable(account, true)},
		Data:      data,
	}
}

// Allocate builds an instruction that sizes an account's data.
func Allocate(account pubkey.Pubkey, space uint64) Instruction {
	data := systemData(SystemAllocate, 8)
	data = binary.LittleEndian.AppendUint64(data, space)
	return Instruction{
		ProgramID: pubkey.SystemProgramID,
		Accounts:  []AccountMeta{Writable(account, true)},
		Data:      data,
	}
}
