// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/mnemonic"

	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/pubkey"
)

// Import stores the keypair encoded by a 25-word mnemonic.
func (f *FileKeyStore) Import(ctx context.Context, words string) (*KeyMetadata, error) {
	priv, err := mnemonic.ToPrivateKey(strings.Join(strings.Fields(words), " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	defer crypto.ZeroBytes(priv)
	return f.Put(ctx, priv)
}

// Export returns the 25-word mnemonic of the key stored for address.
func (f *FileKeyStore) Export(ctx context.Context, address pubkey.Pubkey) (string, error) {
	priv, err := f.Get(ctx, address)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(priv)

	words, err := mnemonic.FromPrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return words, nil
}
