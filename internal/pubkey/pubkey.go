// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package pubkey defines 32-byte account addresses and the program-derived
// address scheme used to give programs accounts that no private key controls.
package pubkey

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Size is the length of an address in bytes.
const Size = 32

// ErrInvalidPubkey indicates a string that does not decode to a 32-byte address
var ErrInvalidPubkey = errors.New("invalid public key")

// Pubkey is an account address. For wallet accounts it is an ed25519 public
// key; for program-derived accounts it is a hash that is not on the curve.
type Pubkey [Size]byte

var (
	// SystemProgramID owns every wallet account and performs native transfers.
	SystemProgramID = MustParse("11111111111111111111111111111111")

	// NativeLoaderID owns the builtin program accounts.
	NativeLoaderID = MustParse("NativeLoader1111111111111111111111111111111")
)

// Parse decodes a base58 address.
func Parse(s string) (Pubkey, error) {
	var pk Pubkey
	raw := base58.Decode(s)
	if len(raw) != Size {
		return pk, fmt.Errorf("%w: %q", ErrInvalidPubkey, s)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Pubkey {
	pk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// FromBytes copies a 32-byte slice into a Pubkey.
func FromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != Size {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPubkey, Size, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// FromPublicKey converts an ed25519 public key.
func FromPublicKey(pub ed25519.PublicKey) Pubkey {
	var pk Pubkey
	copy(pk[:], pub)
	return pk
}

// String returns the base58 encoding.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the address bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, p[:])
	return out
}

// IsZero reports whether every byte is zero.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// Equals reports byte equality.
func (p Pubkey) Equals(other Pubkey) bool {
	return bytes.Equal(p[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}
