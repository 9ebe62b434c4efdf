// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package pubkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// NewKeypair generates a random ed25519 key pair and returns its address.
func NewKeypair() (Pubkey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Pubkey{}, nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return FromPublicKey(pub), priv, nil
}

// KeypairFromSeed derives a key pair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (Pubkey, ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return Pubkey{}, nil, fmt.Errorf("invalid seed size: expected %d, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return FromPublicKey(priv.Public().(ed25519.PublicKey)), priv, nil
}

// Of returns the address of a private key.
func Of(priv ed25519.PrivateKey) Pubkey {
	return FromPublicKey(priv.Public().(ed25519.PublicKey))
}
