// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"fmt"
	"sort"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// maxAccountKeys is the number of keys a message can index with a byte.
const maxAccountKeys = 256

// Hash identifies a block; transactions reference a recent one.
type Hash [32]byte

func (h Hash) String() string {
	return base58.Encode(h[:])
}

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	Pubkey     pubkey.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Writable returns a meta for a writable account, optionally a signer.
func Writable(pk pubkey.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: signer, IsWritable: true}
}

// Readonly returns a meta for a read-only account, optionally a signer.
func Readonly(pk pubkey.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: signer}
}

// Instruction is a call to one program with an ordered account list.
type Instruction struct {
	ProgramID pubkey.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader partitions AccountKeys by privilege.
type MessageHeader struct {
	NumRequiredSignatures       uint8 `codec:"sigs"`
	NumReadonlySignedAccounts   uint8 `codec:"rosig"`
	NumReadonlyUnsignedAccounts uint8 `codec:"rounsig"`
}

// CompiledInstruction references accounts by index into AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8   `codec:"prog"`
	Accounts       []uint8 `codec:"accts"`
	Data           []byte  `codec:"data"`
}

// Message is the signed portion of a transaction.
//
// AccountKeys are ordered writable signers (fee payer first), read-only
// signers, writable non-signers, read-only non-signers.
type Message struct {
	Header          MessageHeader         `codec:"hdr"`
	AccountKeys     []pubkey.Pubkey       `codec:"keys"`
	RecentBlockhash Hash                  `codec:"bh"`
	Instructions    []CompiledInstruction `codec:"ixs"`
}

// NewMessage compiles instructions into a message paid for by payer.
func NewMessage(payer pubkey.Pubkey, blockhash Hash, instructions ...Instruction) (*Message, error) {
	type keyEntry struct {
		key      pubkey.Pubkey
		signer   bool
		writable bool
	}

	var entries []*keyEntry
	index := make(map[pubkey.Pubkey]*keyEntry)
	add := func(meta AccountMeta) {
		if e, ok := index[meta.Pubkey]; ok {
			e.signer = e.signer || meta.IsSigner
			e.writable = e.writable || meta.IsWritable
			return
		}
		e := &keyEntry{key: meta.Pubkey, signer: meta.IsSigner, writable: meta.IsWritable}
		index[meta.Pubkey] = e
		entries = append(entries, e)
	}

	add(Writable(payer, true))
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta)
		}
		add(Readonly(ix.ProgramID, false))
	}

	if len(entries) > maxAccountKeys {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(entries))
	}

	group := func(e *keyEntry) int {
		switch {
		case e.signer && e.writable:
			return 0
		case e.signer:
			return 1
		case e.writable:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return group(entries[i]) < group(entries[j])
	})

	msg := &Message{RecentBlockhash: blockhash}
	position := make(map[pubkey.Pubkey]uint8, len(entries))
	for i, e := range entries {
		msg.AccountKeys = append(msg.AccountKeys, e.key)
		position[e.key] = uint8(i) // #nosec G115 - bounded by maxAccountKeys
		switch group(e) {
		case 0:
			msg.Header.NumRequiredSignatures++
		case 1:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case 3:
			msg.Header.NumReadonlyUnsignedAccounts++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: position[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, meta := range ix.Accounts {
			compiled.Accounts[i] = position[meta.Pubkey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}

	return msg, nil
}

// IsSigner reports whether key i must sign.
func (m *Message) IsSigner(i int) bool {
	return i < int(m.Header.NumRequiredSignatures)
}

// IsWritable reports whether key i is writable.
func (m *Message) IsWritable(i int) bool {
	signed := int(m.Header.NumRequiredSignatures)
	if i < signed {
		return i < signed-int(m.Header.NumReadonlySignedAccounts)
	}
	return i < len(m.AccountKeys)-int(m.Header.NumReadonlyUnsignedAccounts)
}

// FeePayer returns the first key.
func (m *Message) FeePayer() pubkey.Pubkey {
	if len(m.AccountKeys) == 0 {
		return pubkey.Pubkey{}
	}
	return m.AccountKeys[0]
}

// Bytes returns the canonical encoding that signers sign.
func (m *Message) Bytes() []byte {
	return msgpack.Encode(m)
}

// sanitize checks header bounds, duplicate keys and instruction indices.
func (m *Message) sanitize() error {
	n := len(m.AccountKeys)
	h := m.Header
	if h.NumRequiredSignatures == 0 || int(h.NumRequiredSignatures) > n {
		return fmt.Errorf("%w: bad signature count", ErrSanitizeFailure)
	}
	if h.NumReadonlySignedAccounts >= h.NumRequiredSignatures {
		return fmt.Errorf("%w: fee payer must be writable", ErrSanitizeFailure)
	}
	if int(h.NumReadonlyUnsignedAccounts) > n-int(h.NumRequiredSignatures) {
		return fmt.Errorf("%w: bad read-only count", ErrSanitizeFailure)
	}

	seen := make(map[pubkey.Pubkey]struct{}, n)
	for _, k := range m.AccountKeys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate account key %s", ErrSanitizeFailure, k)
		}
		seen[k] = struct{}{}
	}

	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= n || ix.ProgramIDIndex == 0 {
			return fmt.Errorf("%w: instruction %d program index", ErrSanitizeFailure, i)
		}
		for _, a := range ix.Accounts {
			if int(a) >= n {
				return fmt.Errorf("%w: instruction %d account index %d", ErrSanitizeFailure, i, a)
			}
		}
	}
	return nil
}
