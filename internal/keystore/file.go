// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/fsutil"
	"github.com/aplane-algo/apvault/internal/pubkey"
)

const keyFileExt = ".key"

// keyFile is the on-disk form of a keypair, before optional sealing.
type keyFile struct {
	Address string `json:"address"`
	KeyType string `json:"key_type"`
	Seed    string `json:"seed"` // hex-encoded 32-byte ed25519 seed
	Created string `json:"created"`
}

// FileKeyStore implements KeyStore with one JSON file per key, named by
// base58 address. With a passphrase, new files are sealed with
// crypto.Seal; existing plain files stay readable.
type FileKeyStore struct {
	keysDir    string
	passphrase []byte

	mu sync.RWMutex
}

var _ KeyStore = (*FileKeyStore)(nil)

// NewFileKeyStore creates a key store rooted at keysDir. An empty
// passphrase stores keys unencrypted.
func NewFileKeyStore(keysDir string, passphrase []byte) *FileKeyStore {
	var pass []byte
	if len(passphrase) > 0 {
		pass = append([]byte(nil), passphrase...)
	}
	return &FileKeyStore{keysDir: keysDir, passphrase: pass}
}

// Close zeroes the cached passphrase.
func (f *FileKeyStore) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	crypto.ZeroBytes(f.passphrase)
	f.passphrase = nil
}

func (f *FileKeyStore) path(address pubkey.Pubkey) string {
	return filepath.Join(f.keysDir, address.String()+keyFileExt)
}

// Generate creates and stores a fresh keypair.
func (f *FileKeyStore) Generate(ctx context.Context) (*KeyMetadata, error) {
	_, priv, err := pubkey.NewKeypair()
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(priv)
	return f.Put(ctx, priv)
}

// Put stores key.
func (f *FileKeyStore) Put(ctx context.Context, key ed25519.PrivateKey) (*KeyMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(key))
	}

	address := pubkey.Of(key)
	created := time.Now().UTC()
	kf := keyFile{
		Address: address.String(),
		KeyType: "ed25519",
		Seed:    hex.EncodeToString(key.Seed()),
		Created: created.Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode key file: %w", err)
	}
	defer crypto.ZeroBytes(data)

	f.mu.Lock()
	defer f.mu.Unlock()

	encrypted := len(f.passphrase) > 0
	if encrypted {
		sealed, err := crypto.Seal(data, f.passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt key: %w", err)
		}
		data = sealed
	}

	if err := fsutil.MkdirAll(f.keysDir); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}
	path := f.path(address)
	file, err := fsutil.CreateFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	return &KeyMetadata{
		Address:   address,
		CreatedAt: created.Truncate(time.Second),
		Encrypted: encrypted,
		FilePath:  path,
	}, nil
}

// Get returns the private key stored for address.
func (f *FileKeyStore) Get(ctx context.Context, address pubkey.Pubkey) (ed25519.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	kf, err := f.read(address)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(kf.Seed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("corrupt key file for %s", address)
	}
	defer crypto.ZeroBytes(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	if pubkey.Of(priv) != address {
		crypto.ZeroBytes(priv)
		return nil, fmt.Errorf("key file for %s holds a different key", address)
	}
	return priv, nil
}

// GetMetadata returns metadata for address. Sealed files are not opened,
// so their CreatedAt comes from the file's modification time.
func (f *FileKeyStore) GetMetadata(ctx context.Context, address pubkey.Pubkey) (*KeyMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.metadata(address)
}

func (f *FileKeyStore) metadata(address pubkey.Pubkey) (*KeyMetadata, error) {
	path := f.path(address)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path built from a validated address
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	meta := &KeyMetadata{
		Address:   address,
		CreatedAt: info.ModTime().UTC().Truncate(time.Second),
		Encrypted: crypto.IsSealed(data),
		FilePath:  path,
	}
	if !meta.Encrypted {
		var kf keyFile
		if err := json.Unmarshal(data, &kf); err == nil {
			if t, err := time.Parse(time.RFC3339, kf.Created); err == nil {
				meta.CreatedAt = t
			}
		}
		crypto.ZeroBytes(data)
	}
	return meta, nil
}

// List returns metadata for every key file in the keys directory.
func (f *FileKeyStore) List(ctx context.Context) ([]KeyMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.keysDir)
	if errors.Is(err, os.ErrNotExist) {
		return []KeyMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	result := make([]KeyMetadata, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, keyFileExt) {
			continue
		}
		address, err := pubkey.Parse(strings.TrimSuffix(name, keyFileExt))
		if err != nil {
			continue
		}
		meta, err := f.metadata(address)
		if err != nil {
			return nil, err
		}
		result = append(result, *meta)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address.String() < result[j].Address.String()
	})
	return result, nil
}

// Delete removes the key file for address.
func (f *FileKeyStore) Delete(ctx context.Context, address pubkey.Pubkey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(address))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}
	return err
}

// read loads and, if sealed, opens the key file for address.
func (f *FileKeyStore) read(address pubkey.Pubkey) (*keyFile, error) {
	path := f.path(address)
	data, err := os.ReadFile(path) // #nosec G304 - path built from a validated address
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	if crypto.IsSealed(data) {
		if len(f.passphrase) == 0 {
			return nil, fmt.Errorf("%w: key %s is encrypted", ErrInvalidPassphrase, address)
		}
		plain, err := crypto.Open(data, f.passphrase)
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, fmt.Errorf("%w: key %s", ErrInvalidPassphrase, address)
		}
		if err != nil {
			return nil, err
		}
		data = plain
	}
	defer crypto.ZeroBytes(data)

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	return &kf, nil
}
