// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil provides filesystem helpers for the apvault data directory.
// Key files and the ledger are private to the owning user (0600 files,
// 0700 dirs).
package fsutil

import (
	"fmt"
	"os"
)

// PrivateDirPerm is the permission mode for data directories.
const PrivateDirPerm os.FileMode = 0700

// PrivateFilePerm is the permission mode for key and ledger files.
const PrivateFilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents with private permissions.
// Unlike os.MkdirAll, this explicitly sets permissions on the leaf after
// creation to bypass umask restrictions.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, PrivateDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, PrivateDirPerm)
}

// WriteFile writes data to a file with private permissions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, PrivateFilePerm); err != nil {
		return err
	}
	return os.Chmod(path, PrivateFilePerm)
}

// CreateFile opens a file for writing with private permissions.
// Caller is responsible for closing it.
func CreateFile(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, PrivateFilePerm) // #nosec G304 - caller-controlled data directory
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(PrivateFilePerm); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return f, nil
}
