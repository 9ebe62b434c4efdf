// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"crypto/sha256"
	"fmt"
)

const discriminatorSize = 8

// VaultStateSize is the on-chain size of a VaultState account:
// discriminator, vault bump, state bump.
const VaultStateSize = discriminatorSize + 2

var (
	VaultStateDiscriminator = sha256First8("account:VaultState")

	initializeDiscriminator = sha256First8("global:initialize")
	depositDiscriminator    = sha256First8("global:deposit")
)

// VaultState remembers how a user's accounts were derived. Its bumps are
// written once at initialization and never change; every later operation
// re-derives addresses from them instead of trusting addresses it is given.
type VaultState struct {
	VaultBump uint8
	StateBump uint8
}

// MarshalBinary encodes the account data, discriminator first.
func (s VaultState) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, VaultStateSize)
	data = append(data, VaultStateDiscriminator[:]...)
	data = append(data, s.VaultBump, s.StateBump)
	return data, nil
}

// UnmarshalVaultState decodes account data written by MarshalBinary.
func UnmarshalVaultState(data []byte) (*VaultState, error) {
	if err := validateDiscriminator(data, VaultStateDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < VaultStateSize {
		return nil, fmt.Errorf("%w: data is %d bytes, want %d", ErrAccountDidNotDeserialize, len(data), VaultStateSize)
	}
	return &VaultState{
		VaultBump: data[discriminatorSize],
		StateBump: data[discriminatorSize+1],
	}, nil
}

func sha256First8(s string) [8]byte {
	h := sha256.Sum256([]byte(s))
	var disc [8]byte
	copy(disc[:], h[:8])
	return disc
}

func validateDiscriminator(data []byte, expected [8]byte) error {
	if len(data) < discriminatorSize {
		return fmt.Errorf("%w: data too short", ErrAccountDiscriminatorNotFound)
	}
	var got [8]byte
	copy(got[:], data[:8])
	if got != expected {
		return fmt.Errorf("%w: got %x, want %x", ErrAccountDiscriminatorMismatch, got, expected)
	}
	return nil
}
