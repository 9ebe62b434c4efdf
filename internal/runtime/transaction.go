// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/aplane-algo/apvault/internal/pubkey"
)

// Signature is an ed25519 signature over a message.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Transaction is a message plus one signature per required signer.
type Transaction struct {
	Signatures []Signature `codec:"sigs"`
	Message    Message     `codec:"msg"`
}

// NewTransaction compiles instructions into an unsigned transaction.
func NewTransaction(payer pubkey.Pubkey, blockhash Hash, instructions ...Instruction) (*Transaction, error) {
	msg, err := NewMessage(payer, blockhash, instructions...)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    *msg,
	}, nil
}

// Sign fills the signature slots of every required signer. Each required
// signer must be among keys.
func (tx *Transaction) Sign(keys ...ed25519.PrivateKey) error {
	byAddr := make(map[pubkey.Pubkey]ed25519.PrivateKey, len(keys))
	for _, k := range keys {
		byAddr[pubkey.Of(k)] = k
	}

	n := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != n {
		tx.Signatures = make([]Signature, n)
	}

	msg := tx.Message.Bytes()
	for i := 0; i < n; i++ {
		signer := tx.Message.AccountKeys[i]
		key, ok := byAddr[signer]
		if !ok {
			return fmt.Errorf("%w: no key for signer %s", ErrSignatureFailure, signer)
		}
		copy(tx.Signatures[i][:], ed25519.Sign(key, msg))
	}
	return nil
}

// Verify checks every signature against its signer key.
func (tx *Transaction) Verify() error {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != n || n > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: expected %d signatures, got %d", ErrSignatureFailure, n, len(tx.Signatures))
	}

	msg := tx.Message.Bytes()
	for i := 0; i < n; i++ {
		signer := tx.Message.AccountKeys[i]
		if !ed25519.Verify(signer[:], msg, tx.Signatures[i][:]) {
			return fmt.Errorf("%w: signer %s", ErrSignatureFailure, signer)
		}
	}
	return nil
}

// ID returns the base58 fee payer signature, which identifies the transaction.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return tx.Signatures[0].String()
}

// MarshalBinary encodes the transaction for transport.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return msgpack.Encode(tx), nil
}

// UnmarshalTransaction decodes a transaction produced by MarshalBinary.
func UnmarshalTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := msgpack.Decode(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}
